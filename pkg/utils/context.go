package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep.
type SleepResult int

const (
	// SleepCompleted indicates the full duration elapsed.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled first.
	SleepCancelled
)

// ContextSleep sleeps for the given duration unless the context is cancelled.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextSleepWithLog behaves like ContextSleep and logs cancelMessage on cancellation.
func ContextSleepWithLog(ctx context.Context, duration time.Duration, logger *zap.Logger, cancelMessage string) SleepResult {
	result := ContextSleep(ctx, duration)
	if result == SleepCancelled && logger != nil && cancelMessage != "" {
		logger.Info(cancelMessage)
	}

	return result
}

// ContextGuard reports whether the context has already been cancelled.
func ContextGuard(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// ErrorSleep pauses a worker after a failed cycle.
// Returns false if the worker should stop because the context was cancelled.
func ErrorSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	return ContextSleepWithLog(ctx, duration, logger,
		"Context cancelled during error wait, stopping "+workerName) == SleepCompleted
}

// IntervalSleep pauses a worker between cycles.
// Returns false if the worker should stop because the context was cancelled.
func IntervalSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	return ContextSleepWithLog(ctx, duration, logger,
		"Context cancelled during pause, stopping "+workerName) == SleepCompleted
}
