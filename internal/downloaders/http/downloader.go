package splithttp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tanq16/splitfetch/internal/utils"
)

type HTTPDownloader struct {
	client utils.HTTPDoer
	// serializes jobs that resolve to the same destination path
	pathLocks *kmutex.Kmutex
}

func NewHTTPDownloader(client utils.HTTPDoer) *HTTPDownloader {
	return &HTTPDownloader{
		client:    client,
		pathLocks: kmutex.New(),
	}
}

// Download runs one job to completion. A failed job is reported through
// result.Err, tagged with a utils.ErrorKind.
func (d *HTTPDownloader) Download(ctx context.Context, job utils.DownloadJob) (result utils.DownloadResult) {
	startTime := time.Now()
	result = utils.DownloadResult{Job: job}
	defer func() {
		result.Elapsed = time.Since(startTime)
	}()
	logger := log.With().Str("op", "http/downloader").Str("job", job.ID).Logger()

	fileName, err := utils.FileNameFromURL(job.URL)
	if err != nil {
		result.Err = err
		return result
	}
	dest := filepath.Join(job.OutputDir, fileName)
	result.Path = dest

	d.pathLocks.Lock(dest)
	defer d.pathLocks.Unlock(dest)

	if _, err := os.Stat(dest); err == nil {
		logger.Info().Str("output", dest).Msgf("File already exists, skipping %s", job.URL)
		result.Skipped = true
		return result
	} else if !errors.Is(err, os.ErrNotExist) {
		result.Err = utils.FilesystemError("stat output", err)
		return result
	}

	logger.Info().Str("url", job.URL).Msg("Downloading")
	meta, err := Probe(ctx, d.client, job.URL, job.Headers)
	if err != nil {
		result.Err = err
		return result
	}

	fragments := job.Fragments
	if fragments <= 0 {
		fragments = utils.DefaultFragments
	}
	if meta.TotalSize > 0 && meta.TotalSize < uint64(fragments) {
		fragments = int(meta.TotalSize)
	}

	progressCh := make(chan int64, 100)
	progressDone := make(chan struct{})
	go reportProgress(job.ProgressFunc, int64(meta.TotalSize), progressCh, progressDone)
	// runs on panic too
	defer func() {
		close(progressCh)
		<-progressDone
	}()

	if !meta.SupportsRanges || meta.TotalSize == 0 || fragments == 1 {
		logger.Debug().Bool("ranges", meta.SupportsRanges).Uint64("size", meta.TotalSize).Msg("Using single unfragmented download")
		result.Bytes, result.Err = simpleDownload(ctx, d.client, job, dest, progressCh)
	} else {
		result.Fragmented = true
		result.Bytes, result.Err = d.downloadFragmented(ctx, job, fileName, meta.TotalSize, fragments, dest, progressCh)
	}

	if result.Err != nil {
		logger.Error().Err(result.Err).Msgf("Download failed for %s", job.URL)
		return result
	}
	logger.Info().Str("output", dest).Int64("bytes", result.Bytes).Bool("fragmented", result.Fragmented).Msgf("Downloaded %s", job.URL)
	return result
}

// downloadFragmented fetches all fragments concurrently and assembles them.
// The first failing fragment cancels its siblings; every fragment file is
// removed before returning, whatever the outcome.
func (d *HTTPDownloader) downloadFragmented(ctx context.Context, job utils.DownloadJob, fileName string, totalSize uint64, fragments int, dest string, progressCh chan<- int64) (int64, error) {
	specs := PlanFragments(totalSize, fragments)
	fragmentPaths := make([]string, len(specs))
	for i, spec := range specs {
		fragmentPaths[i] = utils.FragmentPath(job.OutputDir, fileName, spec.Index)
	}
	defer removeFragments(fragmentPaths)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = utils.ConcurrencyError(fmt.Sprintf("fragment %d", spec.Index), fmt.Errorf("fragment task panicked: %v", r))
				}
			}()
			return fetchFragment(groupCtx, d.client, job, spec, fragmentPaths[spec.Index], progressCh)
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}
	return assembleFragments(fragmentPaths, dest)
}

func removeFragments(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("op", "http/downloader").Err(err).Str("file", path).Msg("Could not remove fragment file")
		}
	}
}

// reportProgress is the only reader of progressCh and the only caller of
// progressFunc for a job, so fragment goroutines never share a counter.
func reportProgress(progressFunc func(downloaded, total int64), total int64, progressCh <-chan int64, done chan<- struct{}) {
	defer close(done)
	var downloaded, lastReported int64
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case n, ok := <-progressCh:
			if !ok {
				if progressFunc != nil {
					progressFunc(downloaded, total)
				}
				return
			}
			downloaded += n
		case <-ticker.C:
			if progressFunc != nil && downloaded != lastReported {
				progressFunc(downloaded, total)
				lastReported = downloaded
			}
		}
	}
}
