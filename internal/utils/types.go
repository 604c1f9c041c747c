package utils

import (
	"context"
	"time"
)

type Downloader interface {
	Download(ctx context.Context, job DownloadJob) DownloadResult
}

// DownloadJob is one requested URL-to-file download.
type DownloadJob struct {
	ID           string
	URL          string
	Headers      []string // raw "Name: Value" entries, applied in order
	OutputDir    string
	Fragments    int
	ProgressFunc func(downloaded, total int64)
}

// Config is resolved once before any job runs and passed by value.
type Config struct {
	Threads          int
	Fragments        int
	OutputDir        string
	Display          bool
	HTTPClientConfig HTTPClientConfig
}

type Header struct {
	Name  string
	Value string
}

type ResourceMeta struct {
	SupportsRanges bool
	TotalSize      uint64 // 0 when the server did not declare a usable length
}

// FragmentSpec is an inclusive byte range of the remote resource.
type FragmentSpec struct {
	Index     int
	StartByte uint64
	EndByte   uint64
}

func (f FragmentSpec) Size() uint64 {
	return f.EndByte - f.StartByte + 1
}

type DownloadResult struct {
	Job        DownloadJob
	Path       string
	Skipped    bool
	Fragmented bool
	Bytes      int64
	Elapsed    time.Duration
	Err        error
}

func (r DownloadResult) OK() bool {
	return r.Err == nil
}

// BatchEntry is one item of a YAML batch file.
type BatchEntry struct {
	URL       string   `yaml:"link"`
	Headers   []string `yaml:"headers,omitempty"`
	OutputDir string   `yaml:"dir,omitempty"`
	Fragments int      `yaml:"fragments,omitempty"`
}
