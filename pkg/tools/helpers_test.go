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

package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/resilience"
)

type staticTokens struct{}

func (staticTokens) EnsureFresh(context.Context) (string, error) { return "test-token", nil }
func (staticTokens) ForceRefresh(context.Context) (string, error) { return "test-token", nil }

// newTestClient wires an apiclient.Client to an httptest.Server, with the
// resilience stack loosened so tests never wait on real rate limiting or
// backoff delays.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*apiclient.Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := apiclient.New(
		srv.URL,
		http.DefaultClient,
		staticTokens{},
		resilience.NewRateLimiter(resilience.RateLimiterConfig{Capacity: 1000, Window: time.Second}),
		resilience.NewCircuitBreaker("test", resilience.BreakerConfig{FailureThreshold: 100, OpenTimeout: time.Minute}, logger.NewTestLogger()),
		resilience.NewRetrier(resilience.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, logger.NewTestLogger()),
		logger.NewTestLogger(),
	)

	return client, srv
}
