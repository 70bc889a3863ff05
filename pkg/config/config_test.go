package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCredentials_FromEnv(t *testing.T) {
	t.Setenv("ARUBA_CLIENT_ID", "abc123")
	t.Setenv("ARUBA_CLIENT_SECRET", "shh")

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "abc123", creds.ClientID)
	assert.Equal(t, "shh", creds.ClientSecret)
}

func TestLoadCredentials_PlaceholderTreatedAsAbsent(t *testing.T) {
	t.Setenv("ARUBA_CLIENT_ID", "your_client_id")
	t.Setenv("ARUBA_CLIENT_SECRET", "your_client_secret")

	_, err := LoadCredentials()
	require.Error(t, err)
}

func TestLoadCredentials_MissingReturnsConfigError(t *testing.T) {
	t.Setenv("ARUBA_CLIENT_ID", "")
	t.Setenv("ARUBA_CLIENT_SECRET", "")

	_, err := LoadCredentials()
	require.Error(t, err)
}

func TestDefaultRuntimeConfig(t *testing.T) {
	cfg := DefaultRuntimeConfig()

	assert.Equal(t, BaseURLAmericas, cfg.BaseURL)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 60*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
	assert.Equal(t, 4, cfg.RetryMaxAttempts)
	assert.False(t, cfg.ObservabilityEnabled, "observability defaults to disabled absent credentials/config")
}

func TestLoadRuntimeConfig_ObservabilityDisabledByDefault(t *testing.T) {
	cfg, err := LoadRuntimeConfig()
	require.NoError(t, err)
	assert.False(t, cfg.ObservabilityEnabled)
}

func TestLoadRuntimeConfig_ObservabilityEnabledViaEnv(t *testing.T) {
	t.Setenv("ARUBA_OTEL_ENABLED", "true")

	cfg, err := LoadRuntimeConfig()
	require.NoError(t, err)
	assert.True(t, cfg.ObservabilityEnabled)
}

func TestLoadRuntimeConfig_ObservabilityUnparseableLeavesDefault(t *testing.T) {
	t.Setenv("ARUBA_OTEL_ENABLED", "not-a-bool")

	cfg, err := LoadRuntimeConfig()
	require.NoError(t, err)
	assert.False(t, cfg.ObservabilityEnabled)
}

func TestLoadRuntimeConfig_EnvOverridesDefault(t *testing.T) {
	t.Setenv("ARUBA_BASE_URL", BaseURLEurope)
	t.Setenv("ARUBA_RATE_LIMIT_REQUESTS", "250")
	t.Setenv("ARUBA_CIRCUIT_BREAKER_TIMEOUT", "90")

	cfg, err := LoadRuntimeConfig()
	require.NoError(t, err)
	assert.Equal(t, BaseURLEurope, cfg.BaseURL)
	assert.Equal(t, 250, cfg.RateLimitRequests)
	assert.Equal(t, 90*time.Second, cfg.CircuitBreakerTimeout)
}

func TestLoadRuntimeConfig_YAMLOverrideThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit_requests: 42\n"), 0o600))

	t.Setenv("ARUBA_CONFIG_FILE", path)
	t.Setenv("ARUBA_CIRCUIT_BREAKER_THRESHOLD", "9")

	cfg, err := LoadRuntimeConfig()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.RateLimitRequests, "YAML override should apply")
	assert.Equal(t, 9, cfg.CircuitBreakerThreshold, "env var layered on top of YAML should win")
}

func TestLoadRuntimeConfig_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("ARUBA_CONFIG_FILE", "/nonexistent/gateway.yaml")

	_, err := LoadRuntimeConfig()
	require.NoError(t, err)
}
