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

// Package health implements the check_server_health pseudo-tool: it
// synthesizes a report from subsystem state (auth, circuit breaker, rate
// limiter) plus one lightweight probe request to the vendor API, and rolls
// those components up into an overall status.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/auth"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
	"github.com/aruba-noc/mcp-gateway/pkg/resilience"
)

// Status is one of the three overall (and per-component) health levels.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

func worse(a, b Status) Status {
	rank := map[Status]int{Healthy: 0, Degraded: 1, Unhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}

	return a
}

// AuthSnapshotter is the seam *auth.TokenManager satisfies.
type AuthSnapshotter interface {
	Snapshot() auth.Token
}

// expiringSoonWindow is the window inside which a present-but-soon-expiring
// token is reported degraded rather than healthy.
const expiringSoonWindow = 60 * time.Second

// utilizationDegraded is the rate limiter utilization fraction at or above
// which the probe reports degraded.
const utilizationDegraded = 0.9

// PingFunc issues the one lightweight vendor GET and returns its status code,
// or an error if the request itself failed (timeout, connection refused).
type PingFunc func(ctx context.Context) (statusCode int, err error)

// Prober holds the dependencies check_server_health reads.
type Prober struct {
	Auth    AuthSnapshotter
	Breaker *resilience.CircuitBreaker
	Limiter *resilience.RateLimiter
	Ping    PingFunc
}

// New builds a Prober.
func New(auth AuthSnapshotter, breaker *resilience.CircuitBreaker, limiter *resilience.RateLimiter, ping PingFunc) *Prober {
	return &Prober{Auth: auth, Breaker: breaker, Limiter: limiter, Ping: ping}
}

// Check runs the probe and renders a report. The vendor ping gets at most
// 5 seconds regardless of what ctx already carries.
func (p *Prober) Check(ctx context.Context) (string, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	b := report.New()
	overall := Healthy

	overall = worse(overall, p.reportAuth(b))
	overall = worse(overall, p.reportBreaker(b))
	overall = worse(overall, p.reportLimiter(b))
	overall = worse(overall, p.reportVendor(pingCtx, b))

	switch overall {
	case Unhealthy:
		b.Line(report.CRIT, "overall status: unhealthy")
	case Degraded:
		b.Line(report.WARN, "overall status: degraded")
	default:
		b.Line(report.OK, "overall status: healthy")
	}

	return b.Build()
}

func (p *Prober) reportAuth(b *report.Builder) Status {
	tok := p.Auth.Snapshot()

	if tok.AccessToken == "" {
		b.Line(report.ERR, "auth: no token acquired")
		return Unhealthy
	}

	remaining := time.Until(tok.Expiry)
	if remaining <= 0 {
		b.Line(report.ERR, "auth: token expired %s ago", (-remaining).Round(time.Second))
		return Unhealthy
	}

	if remaining <= expiringSoonWindow {
		b.Line(report.WARN, "auth: token expires in %s", remaining.Round(time.Second))
		return Degraded
	}

	b.Line(report.OK, "auth: token valid for %s", remaining.Round(time.Second))

	return Healthy
}

func (p *Prober) reportBreaker(b *report.Builder) Status {
	state, failures := p.Breaker.Snapshot()

	switch state {
	case resilience.StateOpen:
		b.Line(report.CRIT, "circuit breaker: open (%d consecutive failures)", failures)
		return Unhealthy
	case resilience.StateHalfOpen:
		b.Line(report.WARN, "circuit breaker: half-open, probing")
		return Degraded
	default:
		b.Line(report.OK, "circuit breaker: closed (%d consecutive failures)", failures)
		return Healthy
	}
}

func (p *Prober) reportLimiter(b *report.Builder) Status {
	tokens := p.Limiter.Tokens()
	utilization := p.Limiter.Utilization()

	b.Line(report.STATS, "rate limiter: %.1f tokens available, %s utilization",
		tokens, report.Percent(utilization*100))

	if utilization >= utilizationDegraded {
		return Degraded
	}

	return Healthy
}

func (p *Prober) reportVendor(ctx context.Context, b *report.Builder) Status {
	if p.Ping == nil {
		return Healthy
	}

	status, err := p.Ping(ctx)
	if err != nil {
		b.Line(report.ERR, "vendor api: unreachable (%s)", err)
		return Unhealthy
	}

	if status >= http.StatusInternalServerError {
		b.Line(report.ERR, "vendor api: returned %d", status)
		return Unhealthy
	}

	if status >= http.StatusBadRequest {
		b.Line(report.WARN, "vendor api: returned %d", status)
		return Degraded
	}

	b.Line(report.OK, "vendor api: reachable (%d)", status)

	return Healthy
}
