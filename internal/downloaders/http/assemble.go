package splithttp

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitfetch/internal/utils"
)

// assembleFragments concatenates fragment files into dest in the order given,
// which must be ascending fragment index. Each fragment is deleted right after
// it is appended. On failure the partially written dest is left in place.
func assembleFragments(fragmentPaths []string, dest string) (int64, error) {
	logger := log.With().Str("op", "http/assemble").Str("output", dest).Logger()
	destFile, err := os.Create(dest)
	if err != nil {
		return 0, utils.FilesystemError("create output", err)
	}
	defer destFile.Close()

	var totalWritten int64
	for _, fragmentPath := range fragmentPaths {
		written, err := appendFragment(destFile, fragmentPath)
		totalWritten += written
		if err != nil {
			logger.Warn().Int64("written", totalWritten).Msg("Assembly failed, partial output left in place")
			return totalWritten, err
		}
		if err := os.Remove(fragmentPath); err != nil {
			logger.Warn().Int64("written", totalWritten).Msg("Assembly failed, partial output left in place")
			return totalWritten, utils.FilesystemError("remove fragment", err)
		}
	}
	if err := destFile.Sync(); err != nil {
		return totalWritten, utils.FilesystemError("sync output", err)
	}
	logger.Debug().Int("fragments", len(fragmentPaths)).Int64("totalBytes", totalWritten).Msg("File assembly completed")
	return totalWritten, nil
}

func appendFragment(dst io.Writer, fragmentPath string) (int64, error) {
	fragmentFile, err := os.Open(fragmentPath)
	if err != nil {
		return 0, utils.FilesystemError("open fragment", err)
	}
	defer fragmentFile.Close()
	fileInfo, err := fragmentFile.Stat()
	if err != nil {
		return 0, utils.FilesystemError("stat fragment", err)
	}
	written, err := io.Copy(dst, fragmentFile)
	if err != nil {
		return written, utils.FilesystemError("copy fragment", err)
	}
	if written != fileInfo.Size() {
		return written, utils.FilesystemError("copy fragment", fmt.Errorf("wrote %d bytes but fragment size is %d", written, fileInfo.Size()))
	}
	return written, nil
}
