/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
)

// Regional base URLs — the closed set spec.md §6.2 requires.
const (
	BaseURLAmericas = "https://us1.api.central.arubanetworks.com"
	BaseURLEurope   = "https://eu1.api.central.arubanetworks.com"
	BaseURLAPAC     = "https://apac1.api.central.arubanetworks.com"
	BaseURLInternal = "https://internal.api.central.arubanetworks.com"
)

// RuntimeConfig holds the tunable knobs threaded through construction of
// the resilience stack and the API client, instead of package-level
// globals.
type RuntimeConfig struct {
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	APITimeout   time.Duration `yaml:"api_timeout"`
	RefreshBuffer time.Duration `yaml:"refresh_buffer"`

	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`

	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `yaml:"circuit_breaker_timeout"`

	RetryMaxAttempts int           `yaml:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay    time.Duration `yaml:"retry_max_delay"`

	ObservabilityEnabled bool `yaml:"observability_enabled"`
}

// DefaultRuntimeConfig matches spec.md §6.4's documented defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		BaseURL:       BaseURLAmericas,
		TokenURL:      "https://sso.common.cloud.hpe.com/as/token.oauth2",
		APITimeout:    30 * time.Second,
		RefreshBuffer: 60 * time.Second,

		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,

		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,

		RetryMaxAttempts: 4,
		RetryBaseDelay:   time.Second,
		RetryMaxDelay:    30 * time.Second,

		ObservabilityEnabled: false,
	}
}

// LoadRuntimeConfig builds a RuntimeConfig by layering, in order: built-in
// defaults, an optional YAML override file named by ARUBA_CONFIG_FILE (if
// set and present), then environment variables. Each layer only overrides
// the fields it sets; the last layer applied wins.
func LoadRuntimeConfig() (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	if path := os.Getenv("ARUBA_CONFIG_FILE"); path != "" {
		if err := applyYAMLOverride(&cfg, path); err != nil {
			return RuntimeConfig{}, err
		}
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyYAMLOverride(cfg *RuntimeConfig, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return gatewayerr.Config("failed to read ARUBA_CONFIG_FILE", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return gatewayerr.Config("failed to parse ARUBA_CONFIG_FILE as YAML", err)
	}

	return nil
}

func applyEnvOverrides(cfg *RuntimeConfig) {
	if v := os.Getenv("ARUBA_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}

	if v, ok := envDuration("ARUBA_API_TIMEOUT"); ok {
		cfg.APITimeout = v
	}

	if v, ok := envDuration("ARUBA_REFRESH_BUFFER"); ok {
		cfg.RefreshBuffer = v
	}

	if v, ok := envInt("ARUBA_RATE_LIMIT_REQUESTS"); ok {
		cfg.RateLimitRequests = v
	}

	if v, ok := envDuration("ARUBA_RATE_LIMIT_WINDOW"); ok {
		cfg.RateLimitWindow = v
	}

	if v, ok := envInt("ARUBA_CIRCUIT_BREAKER_THRESHOLD"); ok {
		cfg.CircuitBreakerThreshold = v
	}

	if v, ok := envDuration("ARUBA_CIRCUIT_BREAKER_TIMEOUT"); ok {
		cfg.CircuitBreakerTimeout = v
	}

	if v, ok := envBool("ARUBA_OTEL_ENABLED"); ok {
		cfg.ObservabilityEnabled = v
	}
}

// envBool follows the teacher logger package's OTEL_*_ENABLED convention:
// absent or unparseable means "not set", leaving the default untouched.
func envBool(name string) (bool, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, false
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}

	return v, true
}

// envDuration reads an environment variable as a number of seconds, as
// spec.md's env var table documents all of its duration knobs in seconds.
func envDuration(name string) (time.Duration, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}

	return v, true
}
