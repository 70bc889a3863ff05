package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/auth"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/resilience"
)

type fakeAuth struct {
	token auth.Token
}

func (f fakeAuth) Snapshot() auth.Token { return f.token }

func newLimiter(capacity int) *resilience.RateLimiter {
	return resilience.NewRateLimiter(resilience.RateLimiterConfig{Capacity: capacity, Window: time.Minute})
}

func TestCheck_AllHealthy(t *testing.T) {
	p := New(
		fakeAuth{token: auth.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}},
		resilience.NewCircuitBreaker("vendor", resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		newLimiter(100),
		func(context.Context) (int, error) { return 200, nil },
	)

	text, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "overall status: healthy")
	assert.Contains(t, text, "auth: token valid")
	assert.Contains(t, text, "circuit breaker: closed")
	assert.Contains(t, text, "vendor api: reachable")
}

func TestCheck_MissingTokenIsUnhealthy(t *testing.T) {
	p := New(
		fakeAuth{token: auth.Token{}},
		resilience.NewCircuitBreaker("vendor", resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		newLimiter(100),
		func(context.Context) (int, error) { return 200, nil },
	)

	text, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "no token acquired")
	assert.Contains(t, text, "overall status: unhealthy")
}

func TestCheck_ExpiringSoonTokenIsDegraded(t *testing.T) {
	p := New(
		fakeAuth{token: auth.Token{AccessToken: "tok", Expiry: time.Now().Add(10 * time.Second)}},
		resilience.NewCircuitBreaker("vendor", resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		newLimiter(100),
		func(context.Context) (int, error) { return 200, nil },
	)

	text, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "overall status: degraded")
}

func TestCheck_OpenBreakerIsUnhealthy(t *testing.T) {
	cb := resilience.NewCircuitBreaker("vendor", resilience.BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}, logger.NewTestLogger())
	_ = cb.Guard(context.Background(), func(context.Context) error { return errors.New("boom") })
	_ = cb.Guard(context.Background(), func(context.Context) error { return errors.New("boom") })

	p := New(
		fakeAuth{token: auth.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}},
		cb,
		newLimiter(100),
		func(context.Context) (int, error) { return 200, nil },
	)

	text, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "circuit breaker: open")
	assert.Contains(t, text, "overall status: unhealthy")
}

func TestCheck_VendorErrorIsUnhealthy(t *testing.T) {
	p := New(
		fakeAuth{token: auth.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}},
		resilience.NewCircuitBreaker("vendor", resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		newLimiter(100),
		func(context.Context) (int, error) { return 0, errors.New("dial tcp: timeout") },
	)

	text, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "vendor api: unreachable")
	assert.Contains(t, text, "overall status: unhealthy")
}

func TestCheck_HighUtilizationIsDegraded(t *testing.T) {
	limiter := newLimiter(10)

	for i := 0; i < 9; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
	}

	p := New(
		fakeAuth{token: auth.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}},
		resilience.NewCircuitBreaker("vendor", resilience.DefaultBreakerConfig(), logger.NewTestLogger()),
		limiter,
		func(context.Context) (int, error) { return 200, nil },
	)

	text, err := p.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "overall status: degraded") || strings.Contains(text, "overall status: unhealthy"))
}
