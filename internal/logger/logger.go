package logger

import (
	"log/slog"
	"os"

	"github.com/optica-backoffice/cash-ledger/internal/config"
)

// NewLogger builds the application-wide slog.Logger: JSON to stdout, level
// from config, source locations only at debug level.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler)
	logger.Info("logger initialized", "level", level.String(), "app", cfg.Application.Name)

	return logger
}
