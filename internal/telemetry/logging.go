package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig — настройки логгера сервиса.
type LogConfig struct {
	Level  slog.Level
	Format string // "json" или "text"
}

// LogConfigFromEnv читает LOG_LEVEL (debug|info|warn|error) и
// LOG_FORMAT (json|text). Неизвестные значения дают info и json.
func LogConfigFromEnv() LogConfig {
	return LogConfig{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: os.Getenv("LOG_FORMAT"),
	}
}

func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SetupLogger создаёт логгер сервиса в stdout по LogConfigFromEnv
// и делает его slog.Default.
func SetupLogger() *slog.Logger {
	cfg := LogConfigFromEnv()
	logger := NewLogger(os.Stdout, cfg.Level, cfg.Format)
	slog.SetDefault(logger)
	return logger
}

// NewLogger не трогает slog.Default. На уровне debug в записи
// добавляется source.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type loggerKey struct{}

// WithLogger кладёт логгер запроса в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom достаёт логгер, положенный WithLogger, иначе fallback.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}

func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

func WithPipeline(logger *slog.Logger, pipeline string) *slog.Logger {
	return logger.With("pipeline", pipeline)
}
