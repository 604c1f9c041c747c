package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	logOutput = &buf
	t.Cleanup(func() {
		logOutput = os.Stderr
		verbose = false
		noDisplay = false
		rootCmd.SetArgs(nil)
	})
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return buf.String()
}

func writeFragment(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "a.bin.fragment_0"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSubcommandLogsUseConfiguredLogger(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir)

	out := runRoot(t, "clean", dir, "-v")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level with -v, got %s", zerolog.GlobalLevel())
	}
	if !strings.Contains(out, "Removed fragment file") {
		t.Fatalf("expected the clean debug line in the configured writer, got %q", out)
	}
	if strings.Contains(out, `"level":"debug"`) {
		t.Errorf("expected console formatted output, got JSON: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.bin.fragment_0")); !os.IsNotExist(err) {
		t.Errorf("fragment was not removed: %v", err)
	}
}

func TestSubcommandWithoutVerboseHidesDebug(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir)

	out := runRoot(t, "clean", dir, "--no-display")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", zerolog.GlobalLevel())
	}
	if strings.Contains(out, "Removed fragment file") {
		t.Errorf("debug line leaked without -v: %q", out)
	}
	if display {
		t.Error("display must be off with --no-display")
	}
}
