package splithttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitfetch/internal/utils"
)

// fetchFragment downloads one byte range into tempPath. The fragment is not
// retried; any failure fails the whole job.
func fetchFragment(ctx context.Context, client utils.HTTPDoer, job utils.DownloadJob, spec utils.FragmentSpec, tempPath string, progressCh chan<- int64) error {
	logger := log.With().Str("op", "http/fragment").Str("job", job.ID).Int("fragment", spec.Index).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return utils.InputError("fragment request", err)
	}
	utils.ApplyHeaders(req, job.Headers)
	rangeHeader := fmt.Sprintf("bytes=%d-%d", spec.StartByte, spec.EndByte)
	req.Header.Set("Range", rangeHeader)
	logger.Debug().Str("range", rangeHeader).Msg("Sending range request")

	resp, err := client.Do(req)
	if err != nil {
		return utils.TransportError(fmt.Sprintf("fragment %d", spec.Index), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return utils.TransportError(fmt.Sprintf("fragment %d", spec.Index), fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	start, err := contentRangeStart(resp.Header.Get("Content-Range"))
	if err != nil {
		return utils.TransportError(fmt.Sprintf("fragment %d", spec.Index), err)
	}
	if start != spec.StartByte {
		return utils.TransportError(fmt.Sprintf("fragment %d", spec.Index), fmt.Errorf("server sent range starting at %d, requested %d", start, spec.StartByte))
	}

	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return utils.FilesystemError(fmt.Sprintf("fragment %d", spec.Index), fmt.Errorf("error opening temp file: %w", err))
	}
	written, copyErr := copyWithProgress(tempFile, resp.Body, progressCh)
	closeErr := tempFile.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return utils.FilesystemError(fmt.Sprintf("fragment %d", spec.Index), closeErr)
	}
	if expected := spec.Size(); uint64(written) != expected {
		return utils.TransportError(fmt.Sprintf("fragment %d", spec.Index), fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, written))
	}
	logger.Debug().Int64("bytes", written).Msg("Fragment download completed")
	return nil
}

// contentRangeStart returns the first byte offset of a
// "bytes <start>-<end>/<total>" Content-Range value.
func contentRangeStart(value string) (uint64, error) {
	rangeSpec, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	startText, _, ok := strings.Cut(rangeSpec, "-")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	start, err := strconv.ParseUint(strings.TrimSpace(startText), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return start, nil
}

// copyWithProgress streams src into dst, classifying read failures as
// transport errors and write failures as filesystem errors.
func copyWithProgress(dst io.Writer, src io.Reader, progressCh chan<- int64) (int64, error) {
	buffer := make([]byte, 32*1024)
	var total int64
	for {
		bytesRead, readErr := src.Read(buffer)
		if bytesRead > 0 {
			if _, writeErr := dst.Write(buffer[:bytesRead]); writeErr != nil {
				return total, utils.FilesystemError("write", writeErr)
			}
			total += int64(bytesRead)
			if progressCh != nil {
				progressCh <- int64(bytesRead)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return total, nil
			}
			return total, utils.TransportError("read body", readErr)
		}
	}
}
