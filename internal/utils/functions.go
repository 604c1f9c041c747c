package utils

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// ParseHeaderArgs keeps the input order. Entries without a colon or with an
// empty name are dropped.
func ParseHeaderArgs(headers []string) []Header {
	result := make([]Header, 0, len(headers))
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "" {
			continue
		}
		result = append(result, Header{Name: name, Value: strings.TrimSpace(parts[1])})
	}
	return result
}

// FileNameFromURL returns the final path segment of an http(s) URL.
func FileNameFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", InputError("parse url", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", InputError("parse url", fmt.Errorf("unsupported scheme %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return "", InputError("parse url", errors.New("missing host"))
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" || strings.HasSuffix(parsed.Path, "/") {
		return "", InputError("parse url", fmt.Errorf("no file name in %q", rawURL))
	}
	return name, nil
}

func FragmentPath(outputDir, fileName string, index int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s.fragment_%d", fileName, index))
}

func ExtractFragmentID(fileName string) (int, error) {
	matches := FragmentIDRegex.FindStringSubmatch(fileName)
	if len(matches) < 2 {
		return -1, fmt.Errorf("could not extract fragment ID from %s", fileName)
	}
	return strconv.Atoi(matches[1])
}

// ResolveThreads clamps the requested job concurrency to [1, NumCPU].
func ResolveThreads(requested int) int {
	return min(max(requested, 1), runtime.NumCPU())
}

// EnsureOutputDir creates dir if needed and checks that it accepts new files.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return FilesystemError("create output directory", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return FilesystemError("stat output directory", err)
	}
	if !info.IsDir() {
		return FilesystemError("check output directory", fmt.Errorf("%s is not a directory", dir))
	}
	probe, err := os.CreateTemp(dir, ".splitfetch-probe-*")
	if err != nil {
		return FilesystemError("check output directory", fmt.Errorf("%s is not writable: %w", dir, err))
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// CleanFragments removes leftover fragment files in dir and reports how many
// were deleted.
func CleanFragments(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, FilesystemError("read directory", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := ExtractFragmentID(entry.Name()); err != nil {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, FilesystemError("remove fragment", err)
		}
		log.Debug().Str("op", "utils/clean").Str("file", entry.Name()).Msg("Removed fragment file")
		removed++
	}
	return removed, nil
}
