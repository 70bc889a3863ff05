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

// Package apiclient is the only HTTP surface tool handlers use to reach
// Aruba Central. It composes token freshness, the rate limiter, the
// circuit breaker and the retry wrapper around a single inner HTTP
// request in a fixed order, plus a single-shot 401 re-authentication
// orthogonal to that stack.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/resilience"
)

// TokenSource is the seam the orchestrator uses to obtain and force-refresh
// the bearer token; *auth.TokenManager satisfies it.
type TokenSource interface {
	EnsureFresh(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// HTTPDoer is the seam tests substitute for the inner transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP call orchestrator.
type Client struct {
	baseURL string
	http    HTTPDoer
	tokens  TokenSource
	limiter *resilience.RateLimiter
	breaker *resilience.CircuitBreaker
	retrier *resilience.Retrier
	logger  logger.Logger
}

// New builds a Client. doer should apply the spec's connect/overall
// timeouts (10s/30s) via its own Transport/Timeout configuration.
func New(baseURL string, doer HTTPDoer, tokens TokenSource, limiter *resilience.RateLimiter,
	breaker *resilience.CircuitBreaker, retrier *resilience.Retrier, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		tokens:  tokens,
		limiter: limiter,
		breaker: breaker,
		retrier: retrier,
		logger:  log,
	}
}

// Call issues endpoint with method, encoding params as a query string
// (nil-valued entries are omitted) and body as a JSON request body, and
// decodes the JSON response into the returned map. An empty 2xx body
// decodes to an empty map.
func (c *Client) Call(ctx context.Context, method, endpoint string, params map[string]any, body any) (map[string]any, error) {
	token, err := c.tokens.EnsureFresh(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	firstAttempt := true

	var result map[string]any

	err = c.breaker.Guard(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			resp, reqErr := c.doOnce(ctx, method, endpoint, params, body, token)
			if reqErr != nil {
				return reqErr
			}

			if resp.unauthorized && firstAttempt {
				firstAttempt = false

				refreshed, refreshErr := c.tokens.ForceRefresh(ctx)
				if refreshErr != nil {
					return refreshErr
				}

				token = refreshed

				resp, reqErr = c.doOnce(ctx, method, endpoint, params, body, token)
				if reqErr != nil {
					return reqErr
				}
			}

			if resp.unauthorized {
				return gatewayerr.Auth("vendor API rejected the access token twice", nil)
			}

			result = resp.decoded

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

type attemptResult struct {
	unauthorized bool
	decoded      map[string]any
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, params map[string]any, body any, token string) (attemptResult, error) {
	req, err := c.buildRequest(ctx, method, endpoint, params, body, token)
	if err != nil {
		return attemptResult{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{}, gatewayerr.Cancelled(ctx.Err())
		}

		if isTimeoutErr(err) {
			return attemptResult{}, gatewayerr.Timeout("request timed out", err)
		}

		return attemptResult{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck,gosec // draining the body to allow connection reuse

		return attemptResult{unauthorized: true}, nil
	}

	decoded, classifyErr := classify(resp, endpoint)
	if classifyErr != nil {
		return attemptResult{}, classifyErr
	}

	return attemptResult{decoded: decoded}, nil
}

func (c *Client) buildRequest(ctx context.Context, method, endpoint string, params map[string]any, body any, token string) (*http.Request, error) {
	u := c.baseURL + endpoint

	if len(params) > 0 {
		q := url.Values{}

		for k, v := range params {
			if v == nil {
				continue
			}

			q.Set(k, fmt.Sprintf("%v", v))
		}

		if encoded := q.Encode(); encoded != "" {
			u += "?" + encoded
		}
	}

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, gatewayerr.Other("failed to encode request body", err)
		}

		reader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, gatewayerr.Other("failed to build request", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// classify turns a non-401 response into either a decoded body or a
// gatewayerr classified by status so the breaker and retrier upstream can
// act on it.
func classify(resp *http.Response, endpoint string) (map[string]any, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeBody(resp)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		ce := gatewayerr.UpstreamClient(resp.StatusCode, fmt.Sprintf("%s: rate limited", endpoint), nil)

		if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
			ce = ce.WithRetryAfter(ra)
		}

		return nil, ce
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, gatewayerr.UpstreamClient(resp.StatusCode, fmt.Sprintf("%s: %s", endpoint, http.StatusText(resp.StatusCode)), nil)
	}

	return nil, gatewayerr.UpstreamServer(resp.StatusCode, fmt.Sprintf("%s: upstream server error", endpoint), nil)
}

func decodeBody(resp *http.Response) (map[string]any, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayerr.Other("failed to read response body", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, gatewayerr.Other("failed to decode JSON response", err)
	}

	return decoded, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}

	if secs, err := time.ParseDuration(v + "s"); err == nil {
		return secs
	}

	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

func isTimeoutErr(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}

	return false
}
