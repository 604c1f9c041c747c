package scheduler

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	splithttp "github.com/tanq16/splitfetch/internal/downloaders/http"
	"github.com/tanq16/splitfetch/internal/output"
	"github.com/tanq16/splitfetch/internal/utils"
)

type Scheduler struct {
	downloader utils.Downloader
	outputMgr  *output.Manager
	threads    int
}

func New(downloader utils.Downloader, outputMgr *output.Manager, threads int) *Scheduler {
	return &Scheduler{
		downloader: downloader,
		outputMgr:  outputMgr,
		threads:    max(threads, 1),
	}
}

// Run builds the shared HTTP client and output manager for cfg, executes all
// jobs and prints the summary.
func Run(ctx context.Context, jobs []utils.DownloadJob, cfg utils.Config) []utils.DownloadResult {
	clientConfig := cfg.HTTPClientConfig
	clientConfig.HighThreadMode = cfg.Fragments > utils.HighThreadFragments
	client := utils.NewHTTPClient(clientConfig)
	defer client.CloseIdleConnections()

	outputMgr := output.NewManager(os.Stdout, cfg.Display)
	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()

	return New(splithttp.NewHTTPDownloader(client), outputMgr, cfg.Threads).Run(ctx, jobs)
}

// Run executes every job with at most s.threads in flight and returns one
// result per job in input order. A failing job never stops the others.
func (s *Scheduler) Run(ctx context.Context, jobs []utils.DownloadJob) []utils.DownloadResult {
	log.Info().Str("op", "scheduler").Int("jobs", len(jobs)).Int("threads", s.threads).Msg("Initiating downloads")
	results := make([]utils.DownloadResult, len(jobs))
	var group errgroup.Group
	group.SetLimit(s.threads)
	for i, job := range jobs {
		funcID := s.outputMgr.RegisterFunction(job.URL)
		group.Go(func() error {
			results[i] = s.runJob(ctx, funcID, job)
			return nil
		})
	}
	group.Wait()
	return results
}

func (s *Scheduler) runJob(ctx context.Context, funcID int, job utils.DownloadJob) (result utils.DownloadResult) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	defer func() {
		if r := recover(); r != nil {
			result = utils.DownloadResult{Job: job, Err: utils.ConcurrencyError("job", fmt.Errorf("download task panicked: %v", r))}
			s.outputMgr.ReportError(funcID, result.Err)
		}
	}()

	progressFunc := job.ProgressFunc
	job.ProgressFunc = func(downloaded, total int64) {
		s.outputMgr.UpdateProgress(funcID, downloaded, total)
		if progressFunc != nil {
			progressFunc(downloaded, total)
		}
	}
	s.outputMgr.SetStatus(funcID, "running")
	s.outputMgr.SetMessage(funcID, fmt.Sprintf("Downloading %s", job.URL))

	result = s.downloader.Download(ctx, job)
	switch {
	case result.Err != nil:
		s.outputMgr.ReportError(funcID, result.Err)
	case result.Skipped:
		s.outputMgr.Complete(funcID, "skipped", fmt.Sprintf("Skipped %s (already exists)", result.Path))
	default:
		s.outputMgr.Complete(funcID, "success", fmt.Sprintf("Downloaded %s (%s)", result.Path, output.FormatBytes(uint64(result.Bytes))))
	}
	return result
}

// BuildJobs turns parsed entries into jobs. Global headers are applied before
// per-entry headers; empty entry fields fall back to cfg.
func BuildJobs(entries []utils.BatchEntry, globalHeaders []string, cfg utils.Config) []utils.DownloadJob {
	jobs := make([]utils.DownloadJob, 0, len(entries))
	for _, entry := range entries {
		job := utils.DownloadJob{
			ID:        uuid.NewString(),
			URL:       entry.URL,
			Headers:   append(append([]string{}, globalHeaders...), entry.Headers...),
			OutputDir: entry.OutputDir,
			Fragments: entry.Fragments,
		}
		if job.OutputDir == "" {
			job.OutputDir = cfg.OutputDir
		}
		if job.Fragments <= 0 {
			job.Fragments = cfg.Fragments
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Failed counts results that carry an error.
func Failed(results []utils.DownloadResult) int {
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	return failed
}
