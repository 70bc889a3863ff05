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
	"time"

	"golang.org/x/time/rate"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
)

// RateLimiterConfig holds the token-bucket parameters.
type RateLimiterConfig struct {
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity int
	// Window is the duration over which the bucket fully refills.
	Window time.Duration
}

// DefaultRateLimiterConfig matches the vendor API's documented ceiling.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{Capacity: 100, Window: 60 * time.Second}
}

// RateLimiter is a blocking token bucket: Acquire waits until a token is
// available, then consumes it. Refill accrues continuously at
// capacity/window tokens per second, which is exactly the limiter rate.Limit
// that golang.org/x/time/rate already implements, so the refill arithmetic
// itself is delegated there rather than hand-rolled.
type RateLimiter struct {
	limiter  *rate.Limiter
	capacity int
}

// NewRateLimiter builds a RateLimiter with the given capacity/window.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	r := rate.Limit(float64(config.Capacity) / config.Window.Seconds())

	return &RateLimiter{
		limiter:  rate.NewLimiter(r, config.Capacity),
		capacity: config.Capacity,
	}
}

// Acquire blocks until a token is available, then consumes it. If ctx is
// cancelled while waiting, it returns a gatewayerr.Cancelled error without
// consuming a token.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return gatewayerr.Cancelled(ctx.Err())
		}

		// rate.Limiter gives up before the deadline when the wait would
		// outlast it; that is the same abandoned wait, so it is Cancelled too.
		if _, ok := ctx.Deadline(); ok {
			return gatewayerr.Cancelled(context.DeadlineExceeded)
		}

		return gatewayerr.Other("rate limiter wait failed", err)
	}

	return nil
}

// Tokens reports the number of whole tokens currently available, for the
// health probe (§4.8's "rate limiter: tokens available").
func (rl *RateLimiter) Tokens() float64 {
	return math.Floor(rl.limiter.TokensAt(time.Now()))
}

// Utilization reports the fraction of capacity currently consumed, in
// [0, 1], for the health probe's utilization percentage.
func (rl *RateLimiter) Utilization() float64 {
	if rl.capacity == 0 {
		return 0
	}

	available := rl.Tokens()
	if available > float64(rl.capacity) {
		available = float64(rl.capacity)
	}

	return 1 - available/float64(rl.capacity)
}

// Capacity returns the configured bucket capacity.
func (rl *RateLimiter) Capacity() int {
	return rl.capacity
}
