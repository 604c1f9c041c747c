package splithttp

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitfetch/internal/utils"
)

// simpleDownload fetches the whole resource with a single GET and streams it
// straight into dest.
func simpleDownload(ctx context.Context, client utils.HTTPDoer, job utils.DownloadJob, dest string, progressCh chan<- int64) (int64, error) {
	logger := log.With().Str("op", "http/simple-downloader").Str("job", job.ID).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return 0, utils.InputError("request", fmt.Errorf("error creating GET request: %w", err))
	}
	utils.ApplyHeaders(req, job.Headers)
	resp, err := client.Do(req)
	if err != nil {
		return 0, utils.TransportError("get", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, utils.TransportError("get", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	outFile, err := os.Create(dest)
	if err != nil {
		return 0, utils.FilesystemError("create output", err)
	}
	written, copyErr := copyWithProgress(outFile, resp.Body, progressCh)
	if copyErr == nil {
		if err := outFile.Sync(); err != nil {
			copyErr = utils.FilesystemError("sync output", err)
		}
	}
	closeErr := outFile.Close()
	if copyErr != nil {
		logger.Warn().Int64("written", written).Str("output", dest).Msg("Download failed, partial output left in place")
		return written, copyErr
	}
	if closeErr != nil {
		return written, utils.FilesystemError("close output", closeErr)
	}
	logger.Debug().Int64("bytes", written).Msgf("Simple download successful for %s", dest)
	return written, nil
}
