package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/fractured-truths/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(os.Stdout, cfg)
}

func setup(w io.Writer, cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.Level(),
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With("service", "fractured-truths")
	slog.SetDefault(logger)

	return logger
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithPlayerID adds player ID to logger context
func WithPlayerID(logger *slog.Logger, playerID string) *slog.Logger {
	return logger.With("player_id", playerID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
