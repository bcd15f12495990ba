package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// NewJSONLogger builds the process-wide JSON logger. Every record carries
// the service name so aggregated logs separate the validator from its
// collaborators. Debug level additionally records source positions.
func NewJSONLogger(service, level string) *slog.Logger {
	parsed := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parsed,
		AddSource: parsed == slog.LevelDebug,
	})
	return slog.New(handler).With("service", service)
}

// WithJob scopes a logger to one validation job.
func WithJob(logger *slog.Logger, jobID string) *slog.Logger {
	return logger.With("job_id", jobID)
}

// JobOutcome records the terminal result of one pipeline run, at a level
// matching the outcome.
func JobOutcome(logger *slog.Logger, jobID, status, disposition string, took time.Duration, err error) {
	scoped := WithJob(logger, jobID).With("status", status, "took_ms", took.Milliseconds())
	switch {
	case err != nil:
		scoped.Error("job_failed", "error", err)
	case disposition != "":
		scoped.Info("job_completed", "disposition", disposition)
	default:
		scoped.Info("job_finished")
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
