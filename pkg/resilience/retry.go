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

package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

// RetryConfig holds the bounded exponential backoff parameters.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches spec.md's documented defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Retrier executes a callable up to MaxAttempts times, sleeping between
// attempts with jittered exponential backoff.
type Retrier struct {
	config RetryConfig
	logger logger.Logger
}

// NewRetrier builds a Retrier.
func NewRetrier(config RetryConfig, log logger.Logger) *Retrier {
	return &Retrier{config: config, logger: log}
}

// Do runs fn, retrying on retryable errors up to MaxAttempts. Retryable:
// network errors, timeouts, HTTP 429, HTTP 502/503/504. Non-retryable: all
// other 4xx (including 401, handled one level up), all successes,
// CircuitOpen. On 429 with a Retry-After value, that value is used verbatim
// instead of the backoff formula.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delayFor(err, attempt)

		r.logger.Warn().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying after transient failure")

		select {
		case <-ctx.Done():
			return gatewayerr.Cancelled(ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (r *Retrier) delayFor(err error, attempt int) time.Duration {
	if ge, ok := gatewayerr.As(err); ok && ge.RetryAfter > 0 {
		return ge.RetryAfter
	}

	backoff := float64(r.config.BaseDelay) * math.Pow(2, float64(attempt-1))
	jitter := 0.5 + rand.Float64() // nolint:gosec // jitter does not need crypto-grade randomness
	delay := time.Duration(backoff * jitter)

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	return delay
}

func isRetryable(err error) bool {
	ge, ok := gatewayerr.As(err)
	if !ok {
		// Plain network/IO errors that never got classified into a
		// gatewayerr.Error (dial failures, connection resets) are retryable.
		return true
	}

	switch ge.Kind {
	case gatewayerr.KindTimeout:
		return true
	case gatewayerr.KindUpstreamServer:
		return ge.Status == 502 || ge.Status == 503 || ge.Status == 504
	case gatewayerr.KindUpstreamClient:
		return ge.Status == 429
	case gatewayerr.KindCircuitOpen, gatewayerr.KindCancelled, gatewayerr.KindAuth,
		gatewayerr.KindSchema, gatewayerr.KindConfig, gatewayerr.KindOther:
		return false
	default:
		return false
	}
}
