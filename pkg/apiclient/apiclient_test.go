package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/resilience"
)

type fakeTokens struct {
	token        string
	forceCalls   int32
	ensureErr    error
	refreshToken string
}

func (f *fakeTokens) EnsureFresh(context.Context) (string, error) {
	if f.ensureErr != nil {
		return "", f.ensureErr
	}

	return f.token, nil
}

func (f *fakeTokens) ForceRefresh(context.Context) (string, error) {
	atomic.AddInt32(&f.forceCalls, 1)

	if f.refreshToken != "" {
		return f.refreshToken, nil
	}

	return f.token, nil
}

func newClient(baseURL string, tokens TokenSource) *Client {
	return New(
		baseURL,
		http.DefaultClient,
		tokens,
		resilience.NewRateLimiter(resilience.RateLimiterConfig{Capacity: 1000, Window: time.Second}),
		resilience.NewCircuitBreaker("test", resilience.BreakerConfig{FailureThreshold: 5, OpenTimeout: time.Minute}, logger.NewTestLogger()),
		resilience.NewRetrier(resilience.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, logger.NewTestLogger()),
		logger.NewTestLogger(),
	)
}

func TestCall_SuccessDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"devices":[{"serial":"AB123"}]}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, &fakeTokens{token: "good-token"})

	result, err := c.Call(context.Background(), http.MethodGet, "/monitoring/v2/devices", nil, nil)
	require.NoError(t, err)

	devices, ok := result["devices"].([]any)
	require.True(t, ok)
	assert.Len(t, devices, 1)
}

func TestCall_EmptyBodyDecodesToEmptyMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newClient(srv.URL, &fakeTokens{token: "good-token"})

	result, err := c.Call(context.Background(), http.MethodDelete, "/configuration/v1/thing", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestCall_401TriggersSingleForceRefreshThenSucceeds(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Equal(t, "Bearer refreshed-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale-token", refreshToken: "refreshed-token"}
	c := newClient(srv.URL, tokens)

	_, err := c.Call(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.forceCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCall_DoubleUnauthorizedSurfacesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale-token", refreshToken: "still-stale"}
	c := newClient(srv.URL, tokens)

	_, err := c.Call(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)

	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.KindAuth, ge.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.forceCalls), "only one forced refresh per call")
}

func TestCall_NilParamsOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("next"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, &fakeTokens{token: "t"})

	_, err := c.Call(context.Background(), http.MethodGet, "/x", map[string]any{
		"limit": 100,
		"next":  nil,
	}, nil)
	require.NoError(t, err)
}

func TestCall_5xxRetriesThenFails(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(srv.URL, &fakeTokens{token: "t"})

	_, err := c.Call(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "MaxAttempts=2 in this client")
}

func TestCall_4xxDoesNotRetry(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newClient(srv.URL, &fakeTokens{token: "t"})

	_, err := c.Call(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.KindUpstreamClient, ge.Kind)
}
