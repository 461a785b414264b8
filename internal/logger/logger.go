package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// New builds a zerolog logger writing to w. format is "json" or "console";
// an unparsable level falls back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// Init configures the process-wide logger on stdout and returns it.
func Init(level, format string) zerolog.Logger {
	l := New(os.Stdout, level, format)
	zlog.Logger = l
	return l
}
