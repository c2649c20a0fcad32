package store

import (
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// GooseLogger routes goose migration output through zerolog.
func GooseLogger(logger zerolog.Logger) goose.Logger {
	return gooseLogger{logger.With().Str("component", "migrations").Logger()}
}

type gooseLogger struct{ l zerolog.Logger }

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Info().Msgf(strings.TrimSpace(format), v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Fatal().Msgf(strings.TrimSpace(format), v...)
}
