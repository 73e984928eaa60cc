// Package retry repeats file operations that fail because another process,
// usually the editor, briefly holds the file.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"syscall"
	"time"

	"eventtracker/internal/application/common/slogger"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultConfig returns the configuration used for project file writes.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// Operation is a step that may be repeated.
type Operation func(ctx context.Context) error

// Checker classifies errors worth retrying.
type Checker func(err error) bool

// Executor runs operations with exponential backoff.
type Executor struct {
	config    Config
	retryable Checker
}

// NewExecutor creates an executor retrying transient file errors.
func NewExecutor(config Config) *Executor {
	return NewExecutorWithChecker(config, IsTransientFileError)
}

// NewExecutorWithChecker creates an executor with custom error classification.
func NewExecutorWithChecker(config Config, checker Checker) *Executor {
	if checker == nil {
		checker = IsTransientFileError
	}
	return &Executor{config: config, retryable: checker}
}

// Execute runs operation until it succeeds, fails with an error the checker
// rejects, or runs out of attempts.
func (r *Executor) Execute(ctx context.Context, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.delay(attempt)
			slogger.Debug(ctx, "Retrying file operation", slogger.Fields3(
				"attempt", attempt,
				"max_retries", r.config.MaxRetries,
				"delay_ms", delay.Milliseconds(),
			))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !r.retryable(err) {
			return err
		}

		slogger.Warn(ctx, "File operation failed, will retry", slogger.Fields3(
			"error", err.Error(),
			"attempt", attempt+1,
			"max_retries", r.config.MaxRetries,
		))
	}

	return fmt.Errorf("operation failed after %d retries: %w", r.config.MaxRetries, lastErr)
}

func (r *Executor) delay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}

// IsTransientFileError reports whether err looks like a file held open or
// locked by another process.
func IsTransientFileError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ETXTBSY) {
		return true
	}

	// Sharing violations on Windows surface as access errors with these texts.
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"being used by another process",
		"sharing violation",
		"lock violation",
		"resource temporarily unavailable",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// WithRetry runs operation with the default configuration.
func WithRetry(ctx context.Context, operation Operation) error {
	return NewExecutor(DefaultConfig()).Execute(ctx, operation)
}
