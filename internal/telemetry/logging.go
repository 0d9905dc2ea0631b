package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel переводит строку (DEBUG, INFO, WARN, ERROR) в уровень slog.
// Неизвестное значение — INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger создаёт логгер, пишущий в stdout.
//
// format:
//   - "json" (по умолчанию) — для production
//   - "text" — человекочитаемый формат для разработки
func SetupLogger(level, format string) *slog.Logger {
	return NewLogger(os.Stdout, level, format)
}

// NewLogger создаёт логгер, пишущий в w.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// WithJob возвращает логгер с полями задачи.
func WithJob(logger *slog.Logger, jobID, jobType, dataset string) *slog.Logger {
	return logger.With("job_id", jobID, "job_type", jobType, "dataset", dataset)
}
