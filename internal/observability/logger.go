package observability

import (
	"log/slog"
	"os"

	"github.com/stonezone/surfcast-fusion/internal/config"
)

// NewLogger builds the process-wide structured logger from cfg.LogLevel
// ("debug"|"info"|"warn"|"error") and cfg.LogFormat ("json"|"text"),
// writing to stdout.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
