package logger

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger routes gocron's log output through slog.
type gocronLogger struct {
	log *slog.Logger
}

// Gocron wraps a slog logger in the gocron.Logger interface.
//
//nolint:ireturn // Interface return is required by gocron's API contract
func Gocron(log *slog.Logger) gocron.Logger {
	return &gocronLogger{log: log.With("component", "scheduler")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
