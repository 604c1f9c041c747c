package output

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger routes the global zerolog logger to w. Debug enables debug
// level; otherwise level is the minimum level written.
func InitLogger(w io.Writer, debug bool, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}
