package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, logger.NewTestLogger())

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return gatewayerr.Timeout("dial timeout", errors.New("i/o timeout"))
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_GivesUpAfterMaxAttempts(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, logger.NewTestLogger())

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return gatewayerr.UpstreamServer(503, "unavailable", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrier_DoesNotRetryNonRetryable4xx(t *testing.T) {
	r := NewRetrier(DefaultRetryConfig(), logger.NewTestLogger())

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return gatewayerr.UpstreamClient(404, "not found", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_DoesNotRetryCircuitOpen(t *testing.T) {
	r := NewRetrier(DefaultRetryConfig(), logger.NewTestLogger())

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return gatewayerr.CircuitOpen("aruba-central")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_Honors429RetryAfterVerbatim(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxAttempts: 2, BaseDelay: 10 * time.Second, MaxDelay: time.Minute}, logger.NewTestLogger())

	calls := 0
	start := time.Now()

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return gatewayerr.UpstreamClient(429, "rate limited", nil).WithRetryAfter(20 * time.Millisecond)
		}

		return nil
	})

	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 5*time.Second, "should use the short Retry-After value, not the 10s backoff base")
}

func TestRetrier_CancelledDuringBackoffSleep(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Second}, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Do(ctx, func(context.Context) error {
		return gatewayerr.Timeout("timed out", nil)
	})

	require.Error(t, err)

	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.KindCancelled, ge.Kind)
}
