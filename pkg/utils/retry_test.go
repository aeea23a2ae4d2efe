package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalyx/warden/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary error")

func TestWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		failures      int
		expectedCalls int
		expectErr     bool
	}{
		{
			name:          "succeeds first try",
			failures:      0,
			expectedCalls: 1,
		},
		{
			name:          "succeeds after retries",
			failures:      2,
			expectedCalls: 3,
		},
		{
			name:          "fails all retries",
			failures:      10,
			expectedCalls: 4,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			result, err := utils.WithRetry(t.Context(), func() (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, errTemporary
				}
				return calls, nil
			}, utils.RetryOptions{
				MaxElapsedTime:  time.Second,
				InitialInterval: time.Millisecond,
				MaxInterval:     2 * time.Millisecond,
				MaxRetries:      3,
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectErr {
				require.ErrorIs(t, err, errTemporary)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCalls, result)
		})
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	calls := 0
	_, err := utils.WithRetry(ctx, func() (struct{}, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return struct{}{}, errTemporary
	}, utils.GetReconnectRetryOptions())

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
