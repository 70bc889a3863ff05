package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/config"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

func newTestServer(t *testing.T, exchanges *int32, expiresIn int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(exchanges, 1)

		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "token-" + time.Now().Add(time.Duration(n)*time.Nanosecond).String(),
			ExpiresIn:   expiresIn,
		})
	}))

	t.Cleanup(srv.Close)

	return srv
}

func TestEnsureFresh_RefreshesWhenEmpty(t *testing.T) {
	var exchanges int32

	srv := newTestServer(t, &exchanges, 3600)
	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	tok, err := m.EnsureFresh(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestEnsureFresh_ReusesUnexpiredToken(t *testing.T) {
	var exchanges int32

	srv := newTestServer(t, &exchanges, 3600)
	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	first, err := m.EnsureFresh(context.Background())
	require.NoError(t, err)

	second, err := m.EnsureFresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestEnsureFresh_RefreshesWithinBuffer(t *testing.T) {
	var exchanges int32

	srv := newTestServer(t, &exchanges, 1) // expires in 1s, well inside any reasonable buffer
	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	_, err := m.EnsureFresh(context.Background())
	require.NoError(t, err)

	_, err = m.EnsureFresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&exchanges), "token within refresh buffer must be refreshed again")
}

func TestEnsureFresh_ConcurrentCallersRefreshOnlyOnce(t *testing.T) {
	var exchanges int32

	srv := newTestServer(t, &exchanges, 3600)
	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := m.EnsureFresh(context.Background())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestForceRefresh_SkipsExpiryCheck(t *testing.T) {
	var exchanges int32

	srv := newTestServer(t, &exchanges, 3600)
	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	_, err := m.EnsureFresh(context.Background())
	require.NoError(t, err)

	_, err = m.ForceRefresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&exchanges))
}

func TestExchange_NonTwoxxIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "bad"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	_, err := m.EnsureFresh(context.Background())
	require.Error(t, err)

	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gatewayerr.KindAuth, ge.Kind)
}

func TestExchange_FailureDoesNotMutateStoredToken(t *testing.T) {
	var exchanges int32

	srv := newTestServer(t, &exchanges, 3600)
	m := NewTokenManager(config.Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 60*time.Second, srv.Client(), logger.NewTestLogger())

	good, err := m.EnsureFresh(context.Background())
	require.NoError(t, err)

	srv.Close() // subsequent exchange attempts now fail

	_, err = m.ForceRefresh(context.Background())
	require.Error(t, err)

	assert.Equal(t, good, m.Snapshot().AccessToken, "a failed refresh must not clobber the last-good token")
}
