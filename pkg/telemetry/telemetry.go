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

// Package telemetry is the observability shim: start_span/end_span around
// every tool invocation, plus the counters, histograms and gauges described
// in §4.9. When observability is disabled (no credentials, or explicitly
// turned off) every operation is a no-op so tool handlers never need to
// branch on whether a provider is wired.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

// redactedNames are argument keys whose values are replaced with
// "[REDACTED]" in span attributes, matched case-insensitively.
var redactedNames = map[string]bool{
	"client_secret": true,
	"access_token":  true,
	"token":         true,
	"password":      true,
	"api_key":       true,
	"secret":        true,
}

// Provider holds the process-wide tracer and meter plus the fixed set of
// instruments every tool call and resilience component updates. A zero
// Provider (returned by Disabled) makes every method a no-op.
type Provider struct {
	enabled bool
	tracer  trace.Tracer
	logger  logger.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       http.Handler

	apiCalls      metric.Int64Counter
	callDuration  metric.Float64Histogram
	tokenRefresh  metric.Int64Counter
	breakerState  metric.Int64Gauge
	limiterTokens metric.Float64Gauge
}

// Disabled returns a Provider whose every method is a no-op, for when
// credentials or observability configuration are absent.
func Disabled() *Provider {
	return &Provider{enabled: false}
}

// New builds an enabled Provider: a trace pipeline that logs completed spans
// through log, and a Prometheus-scrapable metrics pipeline.
func New(serviceName string, log logger.Logger) (*Provider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, gatewayerr.Other("failed to build telemetry resource", err)
	}

	exporter := &logSpanExporter{logger: log}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, gatewayerr.Other("failed to build prometheus exporter", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("mcp-gateway")

	apiCalls, err := meter.Int64Counter("gateway.api_calls",
		metric.WithDescription("vendor API calls by endpoint and status class"))
	if err != nil {
		return nil, gatewayerr.Other("failed to create api_calls counter", err)
	}

	callDuration, err := meter.Float64Histogram("gateway.call_duration_seconds",
		metric.WithDescription("tool call duration in seconds"))
	if err != nil {
		return nil, gatewayerr.Other("failed to create call_duration histogram", err)
	}

	tokenRefresh, err := meter.Int64Counter("gateway.token_refreshes",
		metric.WithDescription("oauth2 token refresh count"))
	if err != nil {
		return nil, gatewayerr.Other("failed to create token_refreshes counter", err)
	}

	breakerState, err := meter.Int64Gauge("gateway.circuit_breaker_state",
		metric.WithDescription("0=closed 1=half-open 2=open"))
	if err != nil {
		return nil, gatewayerr.Other("failed to create circuit_breaker_state gauge", err)
	}

	limiterTokens, err := meter.Float64Gauge("gateway.rate_limiter_tokens",
		metric.WithDescription("rate limiter tokens currently available"))
	if err != nil {
		return nil, gatewayerr.Other("failed to create rate_limiter_tokens gauge", err)
	}

	return &Provider{
		enabled:        true,
		tracer:         tp.Tracer("mcp-gateway"),
		logger:         log,
		tracerProvider: tp,
		meterProvider:  mp,
		registry:       promhttp.Handler(),
		apiCalls:       apiCalls,
		callDuration:   callDuration,
		tokenRefresh:   tokenRefresh,
		breakerState:   breakerState,
		limiterTokens:  limiterTokens,
	}, nil
}

// MetricsHandler returns the http.Handler that serves the Prometheus scrape
// endpoint, or nil when telemetry is disabled.
func (p *Provider) MetricsHandler() http.Handler {
	if p == nil || !p.enabled {
		return nil
	}

	return p.registry
}

// Span wraps an OTel span with the end_span contract: a single call with a
// terminal status and optional error.
type Span struct {
	span    trace.Span
	started time.Time
	enabled bool
	onEnd   func(durationSeconds float64)
}

// StartSpan implements start_span(tool, args): one span per tool invocation,
// with the argument map attached as attributes after secret redaction.
func (p *Provider) StartSpan(ctx context.Context, tool string, args map[string]any) (context.Context, *Span) {
	if p == nil || !p.enabled {
		return ctx, &Span{enabled: false}
	}

	attrs := []attribute.KeyValue{attribute.String("tool", tool)}
	for k, v := range redact(args) {
		attrs = append(attrs, attribute.String("arg."+k, v))
	}

	ctx, span := p.tracer.Start(ctx, tool, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:    span,
		started: time.Now(),
		enabled: true,
		onEnd: func(durationSeconds float64) {
			p.callDuration.Record(ctx, durationSeconds, metric.WithAttributes(attribute.String("tool", tool)))
		},
	}
}

// End implements end_span(status, error). status is "success" or "failure".
func (s *Span) End(status string, err error) {
	if s == nil || !s.enabled {
		return
	}

	s.span.SetAttributes(attribute.String("status", status))

	if err != nil {
		s.span.RecordError(err)

		if ge, ok := gatewayerr.As(err); ok {
			s.span.SetAttributes(attribute.String("error.kind", ge.Kind.String()))
		}
	}

	s.span.End()

	if s.onEnd != nil {
		s.onEnd(time.Since(s.started).Seconds())
	}
}

// RecordAPICall increments the per-endpoint, per-status-class call counter.
func (p *Provider) RecordAPICall(ctx context.Context, endpoint string, statusClass string) {
	if p == nil || !p.enabled {
		return
	}

	p.apiCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status_class", statusClass),
	))
}

// RecordTokenRefresh increments the token refresh counter.
func (p *Provider) RecordTokenRefresh(ctx context.Context) {
	if p == nil || !p.enabled {
		return
	}

	p.tokenRefresh.Add(ctx, 1)
}

// RecordBreakerState sets the circuit breaker state gauge (0/1/2).
func (p *Provider) RecordBreakerState(ctx context.Context, state int64) {
	if p == nil || !p.enabled {
		return
	}

	p.breakerState.Record(ctx, state)
}

// RecordLimiterTokens sets the rate limiter tokens-available gauge.
func (p *Provider) RecordLimiterTokens(ctx context.Context, tokens float64) {
	if p == nil || !p.enabled {
		return
	}

	p.limiterTokens.Record(ctx, tokens)
}

// Shutdown flushes and stops the trace and metrics pipelines.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || !p.enabled {
		return nil
	}

	var firstErr error

	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		firstErr = err
	}

	if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func redact(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))

	for k, v := range args {
		if redactedNames[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
			continue
		}

		out[k] = toAttrString(v)
	}

	return out
}

func toAttrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}
