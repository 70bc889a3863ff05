package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
)

func TestRateLimiter_AcquireConsumesToken(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Capacity: 2, Window: time.Second})

	before := rl.Tokens()
	require.NoError(t, rl.Acquire(context.Background()))
	after := rl.Tokens()

	assert.Less(t, after, before)
}

func TestRateLimiter_BlocksWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Capacity: 1, Window: 200 * time.Millisecond})

	require.NoError(t, rl.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, rl.Acquire(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestRateLimiter_CancelledDuringWaitReturnsCancelled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Capacity: 1, Window: time.Minute})
	require.NoError(t, rl.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := rl.Acquire(ctx)
	require.Error(t, err)

	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "cancelled", ge.Kind.String())
}

func TestRateLimiter_UtilizationAndCapacity(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Capacity: 4, Window: time.Second})
	assert.Equal(t, 4, rl.Capacity())
	assert.InDelta(t, 0, rl.Utilization(), 0.01)
}
