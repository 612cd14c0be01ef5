package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Level falls back to info on an
// unrecognized value.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Component derives a named sub-logger from the root logger.
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
