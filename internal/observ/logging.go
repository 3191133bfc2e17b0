package observ

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Level strings follow zerolog
// ("debug", "info", "warn", "error"); anything unrecognized falls back to info.
func Init(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// Log emits one structured event with arbitrary fields.
func Log(event string, kv map[string]any) {
	log.Info().Fields(kv).Msg(event)
}

// Warn emits a warning-level event.
func Warn(event string, kv map[string]any) {
	log.Warn().Fields(kv).Msg(event)
}

// Error emits an error-level event.
func Error(event string, err error, kv map[string]any) {
	log.Error().Err(err).Fields(kv).Msg(event)
}
