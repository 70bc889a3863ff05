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
	"sync"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

// BreakerState is one of the three states of the circuit breaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the circuit breaker's thresholds.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in CLOSED
	// before the breaker opens.
	FailureThreshold int
	// OpenTimeout is how long the breaker stays OPEN before admitting a
	// single probe call into HALF_OPEN.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig matches spec.md's documented defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, OpenTimeout: 60 * time.Second}
}

// CircuitBreaker implements the three-state breaker: CLOSED admits every
// call and counts consecutive failures; OPEN rejects every call until
// OpenTimeout elapses; HALF_OPEN admits exactly one probe call at a time,
// closing on its success and reopening on its failure. Concurrent arrivals
// while a probe is already in flight are rejected with CircuitOpen. State
// inspection and every transition run under one lock so the OPEN ->
// HALF_OPEN transition and the single-probe admission are both atomic: of
// several callers observing an expired timeout or an idle half-open state
// simultaneously, only one is admitted.
type CircuitBreaker struct {
	name   string
	config BreakerConfig
	logger logger.Logger

	mu                 sync.Mutex
	state              BreakerState
	consecutiveFailure int
	lastFailureAt      time.Time
	probeInFlight      bool
}

// NewCircuitBreaker builds a breaker with the given name (used in logs and
// in the CircuitOpen error message) and configuration.
func NewCircuitBreaker(name string, config BreakerConfig, log logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: log,
		state:  StateClosed,
	}
}

// Guard wraps fn. Before invocation it may short-circuit with a
// gatewayerr.CircuitOpen error; after invocation it records success or
// failure. A cancelled context is neither a success nor a failure.
func (cb *CircuitBreaker) Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return gatewayerr.CircuitOpen(cb.name)
	}

	err := fn(ctx)

	if ctx.Err() != nil {
		cb.mu.Lock()
		if cb.state == StateHalfOpen {
			cb.probeInFlight = false
		}
		cb.mu.Unlock()

		return err
	}

	cb.record(isBreakerFailure(err))

	return err
}

// isBreakerFailure reports whether err counts as a circuit-breaker failure:
// HTTP >=500 and network/IO/timeout errors do; 4xx (including 429) and
// cancellation do not.
func isBreakerFailure(err error) bool {
	if err == nil {
		return false
	}

	ge, ok := gatewayerr.As(err)
	if !ok {
		return true
	}

	switch ge.Kind {
	case gatewayerr.KindUpstreamServer, gatewayerr.KindTimeout:
		return true
	case gatewayerr.KindUpstreamClient, gatewayerr.KindCancelled, gatewayerr.KindAuth,
		gatewayerr.KindCircuitOpen, gatewayerr.KindSchema, gatewayerr.KindConfig, gatewayerr.KindOther:
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.lastFailureAt) >= cb.config.OpenTimeout {
			cb.state = StateHalfOpen
			cb.probeInFlight = true
			cb.logger.Info().Str("circuit_breaker", cb.name).Msg("circuit breaker half-open, admitting probe")

			return true
		}

		return false

	case StateHalfOpen:
		if cb.probeInFlight {
			return false
		}

		cb.probeInFlight = true

		return true

	default:
		return false
	}
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if failed {
		cb.consecutiveFailure++
		cb.lastFailureAt = time.Now()

		switch cb.state {
		case StateClosed:
			if cb.consecutiveFailure >= cb.config.FailureThreshold {
				cb.state = StateOpen
				cb.logger.Warn().
					Str("circuit_breaker", cb.name).
					Int("consecutive_failures", cb.consecutiveFailure).
					Msg("circuit breaker open")
			}
		case StateHalfOpen:
			cb.state = StateOpen
			cb.probeInFlight = false
			cb.logger.Warn().Str("circuit_breaker", cb.name).Msg("circuit breaker reopened after half-open probe failed")
		}

		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.consecutiveFailure = 0
		cb.probeInFlight = false
		cb.logger.Info().Str("circuit_breaker", cb.name).Msg("circuit breaker closed after successful probe")
	case StateClosed:
		cb.consecutiveFailure = 0
	}
}

// State returns the current breaker state, for the health probe.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Snapshot returns the breaker's state and consecutive-failure count for the
// health probe (§4.8).
func (cb *CircuitBreaker) Snapshot() (state BreakerState, consecutiveFailures int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state, cb.consecutiveFailure
}
