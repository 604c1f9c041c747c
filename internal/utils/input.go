package utils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var errNoCurlURL = errors.New("no http(s) URL in curl command")

// ParseCurlCommand pulls the URL and -H/--header values out of a curl
// command line. Shell quoting is honoured so header values may contain spaces.
func ParseCurlCommand(command string) (string, []string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return "", nil, InputError("parse curl command", err)
	}
	url := ""
	var headers []string
	for i := 0; i < len(words); i++ {
		word := words[i]
		switch {
		case word == "-H" || word == "--header":
			if i+1 < len(words) {
				headers = append(headers, words[i+1])
				i++
			}
		case strings.HasPrefix(word, "--header="):
			headers = append(headers, strings.TrimPrefix(word, "--header="))
		case strings.HasPrefix(word, "-H") && len(word) > 2:
			headers = append(headers, word[2:])
		case url == "" && (strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://")):
			url = word
		}
	}
	if url == "" {
		return "", nil, InputError("parse curl command", errNoCurlURL)
	}
	return url, headers, nil
}

// ReadURLList reads one URL (or one curl command when curlFormat is set) per
// line. Blank lines and lines starting with # are ignored.
func ReadURLList(filePath string, curlFormat bool) ([]BatchEntry, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, FilesystemError("open url list", err)
	}
	defer f.Close()

	var entries []BatchEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !curlFormat {
			entries = append(entries, BatchEntry{URL: line})
			continue
		}
		url, headers, err := ParseCurlCommand(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, BatchEntry{URL: url, Headers: headers})
	}
	if err := scanner.Err(); err != nil {
		return nil, FilesystemError("read url list", err)
	}
	log.Debug().Str("op", "utils/input").Int("count", len(entries)).Bool("curl", curlFormat).Msg("Entries loaded from list")
	return entries, nil
}

// ReadBatchFile loads a YAML list of batch entries.
func ReadBatchFile(filePath string) ([]BatchEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, FilesystemError("read batch file", err)
	}
	var entries []BatchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, InputError("parse batch file", err)
	}
	for i, entry := range entries {
		if entry.URL == "" {
			return nil, InputError("parse batch file", fmt.Errorf("missing link for entry %d", i+1))
		}
		if entry.Fragments < 0 {
			return nil, InputError("parse batch file", fmt.Errorf("negative fragment count for entry %d", i+1))
		}
	}
	log.Debug().Str("op", "utils/input").Int("count", len(entries)).Msg("Entries loaded from YAML")
	return entries, nil
}
