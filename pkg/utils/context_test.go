package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/warden/pkg/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		cancelAfter time.Duration
		want        utils.SleepResult
	}{
		{
			name:     "sleep completes normally",
			duration: 10 * time.Millisecond,
			want:     utils.SleepCompleted,
		},
		{
			name:        "context cancelled before sleep completes",
			duration:    time.Second,
			cancelAfter: 10 * time.Millisecond,
			want:        utils.SleepCancelled,
		},
		{
			name:     "zero duration sleep",
			duration: 0,
			want:     utils.SleepCompleted,
		},
		{
			name:     "negative duration sleep",
			duration: -time.Second,
			want:     utils.SleepCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			if tt.cancelAfter > 0 {
				go func() {
					time.Sleep(tt.cancelAfter)
					cancel()
				}()
			}

			assert.Equal(t, tt.want, utils.ContextSleep(ctx, tt.duration))
		})
	}
}

func TestIntervalAndErrorSleep(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()

	t.Run("completed interval continues", func(t *testing.T) {
		t.Parallel()
		assert.True(t, utils.IntervalSleep(t.Context(), time.Millisecond, logger, "expiry worker"))
	})

	t.Run("cancelled error wait stops", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		assert.False(t, utils.ErrorSleep(ctx, time.Minute, logger, "expiry worker"))
	})
}

func TestContextGuard(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	assert.False(t, utils.ContextGuard(ctx))

	cancel()
	assert.True(t, utils.ContextGuard(ctx))
}
