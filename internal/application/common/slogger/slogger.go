// Package slogger is the process-wide logger. Commands install the configured
// logger once at startup; everything else logs through the package functions.
package slogger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"eventtracker/internal/application/common/logging"
)

// Fields is an alias for logging.Fields for convenience.
type Fields = logging.Fields

type holder struct {
	logging.ApplicationLogger
}

var (
	current     atomic.Pointer[holder] //nolint:gochecknoglobals // process-wide logger
	defaultOnce sync.Once              //nolint:gochecknoglobals // lazy default
)

func get() logging.ApplicationLogger {
	if h := current.Load(); h != nil {
		return h.ApplicationLogger
	}
	defaultOnce.Do(func() {
		logger, err := logging.NewApplicationLogger(logging.Config{Level: "info", Format: "text"})
		if err != nil {
			panic("slogger: default logger: " + err.Error())
		}
		current.CompareAndSwap(nil, &holder{logger})
	})
	return current.Load().ApplicationLogger
}

// Set installs logger and returns a function restoring the previous one.
func Set(logger logging.ApplicationLogger) (restore func()) {
	prev := current.Swap(&holder{logger})
	return func() { current.Store(prev) }
}

// Configure builds a logger from config and installs it.
func Configure(config logging.Config) error {
	logger, err := logging.NewApplicationLogger(config)
	if err != nil {
		return err
	}
	Set(logger)
	return nil
}

func Debug(ctx context.Context, msg string, fields Fields) { get().Debug(ctx, msg, fields) }
func Info(ctx context.Context, msg string, fields Fields)  { get().Info(ctx, msg, fields) }
func Warn(ctx context.Context, msg string, fields Fields)  { get().Warn(ctx, msg, fields) }
func Error(ctx context.Context, msg string, fields Fields) { get().Error(ctx, msg, fields) }

// WarnNoCtx logs from code paths that have no context, such as fsnotify
// callbacks.
func WarnNoCtx(msg string, fields Fields) { get().Warn(context.Background(), msg, fields) }

// ErrorNoCtx is the error-level counterpart of WarnNoCtx.
func ErrorNoCtx(msg string, fields Fields) { get().Error(context.Background(), msg, fields) }

// LogPerformance logs the duration of an operation.
func LogPerformance(ctx context.Context, operation string, duration time.Duration, fields Fields) {
	get().LogPerformance(ctx, operation, duration, fields)
}

// Fields3 creates a Fields map with three key-value pairs.
func Fields3(k1 string, v1 interface{}, k2 string, v2 interface{}, k3 string, v3 interface{}) Fields {
	return Fields{k1: v1, k2: v2, k3: v3}
}

// WithComponent returns the current logger tagged with component.
func WithComponent(component string) logging.ApplicationLogger {
	return get().WithComponent(component)
}
