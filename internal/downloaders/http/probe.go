package splithttp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitfetch/internal/utils"
)

// Probe issues a HEAD request carrying the job headers and reports range
// support and declared size. A missing Content-Length yields a size of 0.
// Error statuses are not fatal here: the whole-file GET that follows reports
// the real failure.
func Probe(ctx context.Context, client utils.HTTPDoer, url string, headers []string) (utils.ResourceMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return utils.ResourceMeta{}, utils.InputError("probe", fmt.Errorf("error creating request: %w", err))
	}
	utils.ApplyHeaders(req, headers)
	resp, err := client.Do(req)
	if err != nil {
		return utils.ResourceMeta{}, utils.TransportError("probe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Debug().Str("op", "http/probe").Int("status", resp.StatusCode).Msgf("HEAD refused for %s, falling back to single GET", url)
		return utils.ResourceMeta{}, nil
	}

	meta := utils.ResourceMeta{
		SupportsRanges: strings.EqualFold(strings.TrimSpace(resp.Header.Get("Accept-Ranges")), "bytes"),
	}
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseUint(strings.TrimSpace(contentLength), 10, 64); err == nil {
			meta.TotalSize = size
		}
	}
	log.Debug().Str("op", "http/probe").Bool("ranges", meta.SupportsRanges).Uint64("size", meta.TotalSize).Msgf("Probed %s", url)
	return meta, nil
}
