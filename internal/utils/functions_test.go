package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{
		"Authorization: Bearer abc",
		"X-Test",
		": no-name",
		"X-Empty:",
		"X-Colon: a:b:c",
		"  Spaced  :   value  ",
	})
	want := []Header{
		{Name: "Authorization", Value: "Bearer abc"},
		{Name: "X-Empty", Value: ""},
		{Name: "X-Colon", Value: "a:b:c"},
		{Name: "Spaced", Value: "value"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d headers, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestParseHeaderArgsMalformedOnly(t *testing.T) {
	if got := ParseHeaderArgs([]string{"X-Test"}); len(got) != 0 {
		t.Errorf("expected no headers, got %+v", got)
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://example.com/files/archive.tar.gz", "archive.tar.gz", false},
		{"http://example.com/a.bin?token=xyz#frag", "a.bin", false},
		{"https://example.com/dir/name%20with%20space.txt", "name with space.txt", false},
		{"https://example.com/", "", true},
		{"https://example.com", "", true},
		{"https://example.com/dir/", "", true},
		{"ftp://example.com/file", "", true},
		{"example.com/file", "", true},
		{"http:///file", "", true},
		{"://bad", "", true},
	}
	for _, tt := range tests {
		got, err := FileNameFromURL(tt.url)
		if tt.wantErr {
			if !IsKind(err, KindInput) {
				t.Errorf("%q: expected input error, got %q, %v", tt.url, got, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.url, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.url, tt.want, got)
		}
	}
}

func TestFragmentPathRoundTrip(t *testing.T) {
	path := FragmentPath("/tmp/out", "video.mp4", 12)
	if path != filepath.Join("/tmp/out", "video.mp4.fragment_12") {
		t.Fatalf("unexpected fragment path %s", path)
	}
	id, err := ExtractFragmentID(filepath.Base(path))
	if err != nil || id != 12 {
		t.Errorf("expected id 12, got %d (%v)", id, err)
	}
	if _, err := ExtractFragmentID("video.mp4"); err == nil {
		t.Error("expected an error for a non-fragment name")
	}
}

func TestResolveThreads(t *testing.T) {
	cpus := runtime.NumCPU()
	tests := []struct{ in, want int }{
		{0, 1},
		{-3, 1},
		{1, 1},
		{cpus, cpus},
		{cpus + 10, cpus},
	}
	for _, tt := range tests {
		if got := ResolveThreads(tt.in); got != tt.want {
			t.Errorf("ResolveThreads(%d) = %d, expected %d", tt.in, got, tt.want)
		}
	}
}

func TestEnsureOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if err := EnsureOutputDir(dir); err != nil {
		t.Fatalf("EnsureOutputDir: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("write probe left files behind: %v", entries)
	}

	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureOutputDir(file); !IsKind(err, KindFilesystem) {
		t.Errorf("expected filesystem error for a regular file, got %v", err)
	}
}

func TestCleanFragments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bin.fragment_0", "a.bin.fragment_1", "a.bin", "notes.fragment_x", "b.iso.fragment_17"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := CleanFragments(dir)
	if err != nil {
		t.Fatalf("CleanFragments: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}
	left, _ := os.ReadDir(dir)
	if len(left) != 2 {
		t.Errorf("expected 2 files to remain, got %d", len(left))
	}
	if _, err := CleanFragments(filepath.Join(dir, "missing")); !IsKind(err, KindFilesystem) {
		t.Errorf("expected filesystem error for a missing directory, got %v", err)
	}
}
