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

// Command gateway is the stdio entrypoint: it wires the OAuth2 token
// manager, the resilience stack, the vendor HTTP client, telemetry, and
// every tool handler into a registry, then serves line-delimited JSON-RPC
// on stdin/stdout until the stream closes.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/auth"
	"github.com/aruba-noc/mcp-gateway/pkg/config"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/health"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/mcpgateway"
	"github.com/aruba-noc/mcp-gateway/pkg/resilience"
	"github.com/aruba-noc/mcp-gateway/pkg/telemetry"
	"github.com/aruba-noc/mcp-gateway/pkg/tools"
)

const (
	exitOK            = 0
	exitFatalConfig   = 1
	exitFatalRuntime  = 2
	metricsAddrEnvVar = "ARUBA_METRICS_ADDR"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := logger.InitWithDefaults(); err != nil {
		logger.Error().Err(err).Msg("failed to initialize logger")
		return exitFatalConfig
	}

	impl, err := logger.NewImpl(logger.DefaultConfig())
	if err != nil {
		logger.Error().Err(err).Msg("failed to build logger")
		return exitFatalConfig
	}

	log := impl.Component("gateway")

	creds, err := config.LoadCredentials()
	if err != nil {
		log.Error().Err(err).Msg("failed to load credentials")
		return exitFatalConfig
	}

	runtimeCfg, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Error().Err(err).Msg("failed to load runtime config")
		return exitFatalConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{
		Timeout: runtimeCfg.APITimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		},
	}

	tokenManager := auth.NewTokenManager(creds, runtimeCfg.TokenURL, runtimeCfg.RefreshBuffer, httpClient, log)

	limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Capacity: runtimeCfg.RateLimitRequests,
		Window:   runtimeCfg.RateLimitWindow,
	})

	breaker := resilience.NewCircuitBreaker("aruba-central", resilience.BreakerConfig{
		FailureThreshold: runtimeCfg.CircuitBreakerThreshold,
		OpenTimeout:      runtimeCfg.CircuitBreakerTimeout,
	}, log)

	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts: runtimeCfg.RetryMaxAttempts,
		BaseDelay:   runtimeCfg.RetryBaseDelay,
		MaxDelay:    runtimeCfg.RetryMaxDelay,
	}, log)

	client := apiclient.New(runtimeCfg.BaseURL, httpClient, tokenManager, limiter, breaker, retrier, log)

	telem := telemetry.Disabled()
	if runtimeCfg.ObservabilityEnabled {
		telem, err = telemetry.New("aruba-central-gateway", log)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled: failed to initialize provider")
			telem = telemetry.Disabled()
		}
	} else {
		log.Info().Msg("telemetry disabled: set ARUBA_OTEL_ENABLED=true to enable")
	}
	defer telem.Shutdown(context.Background()) //nolint:errcheck // best-effort flush on exit

	if mh := telem.MetricsHandler(); mh != nil {
		serveMetrics(ctx, log, mh)
	}

	prober := health.New(tokenManager, breaker, limiter, vendorPing(runtimeCfg.BaseURL, httpClient, tokenManager))

	reg := buildRegistry(telem, log, client, prober)

	server := mcpgateway.NewServer(reg, log)

	log.Info().Msg("gateway serving on stdin/stdout")

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("fatal runtime error")
		return exitFatalRuntime
	}

	log.Info().Msg("gateway shutting down normally")

	return exitOK
}

// buildRegistry registers every catalog tool plus check_server_health and
// verify_facts, sharing one FactStore and one siteResolver across the
// handlers that need them.
func buildRegistry(telem *telemetry.Provider, log logger.Logger, client *apiclient.Client, prober *health.Prober) *mcpgateway.Registry {
	reg := mcpgateway.NewRegistry(telem, log)

	facts := tools.NewFactStore()
	sites := tools.NewSiteResolver()

	handlers := []mcpgateway.Handler{
		&tools.ListDevicesHandler{Client: client, Facts: facts},
		&tools.GetDeviceInventoryHandler{Client: client},
		&tools.GetTenantDeviceHealthHandler{Client: client},

		&tools.GetSitesHealthHandler{Client: client},
		&tools.GetSiteDetailsHandler{Client: client, Facts: facts},

		&tools.ListAllClientsHandler{Client: client, Sites: sites, Facts: facts},
		&tools.GetClientTrendsHandler{Client: client},
		&tools.GetTopClientsByUsageHandler{Client: client},

		&tools.ListGatewaysHandler{Client: client},
		&tools.GetGatewayDetailsHandler{Client: client, Facts: facts},
		&tools.GetGatewayClusterInfoHandler{Client: client},
		&tools.GetGatewayCPUUtilizationHandler{Client: client},
		&tools.GetGatewayUplinksHandler{Client: client},
		&tools.ListGatewayTunnelsHandler{Client: client},

		&tools.ListWLANsHandler{Client: client},
		&tools.GetWLANDetailsHandler{Client: client, Facts: facts},
		&tools.GetAPDetailsHandler{Client: client},
		&tools.GetAPRadiosHandler{Client: client, Facts: facts},
		&tools.GetAPCPUUtilizationHandler{Client: client},
		&tools.GetTopAPsByBandwidthHandler{Client: client},

		&tools.GetSwitchDetailsHandler{Client: client, Facts: facts},
		&tools.GetSwitchInterfacesHandler{Client: client},
		&tools.GetStackMembersHandler{Client: client, Facts: facts},

		&tools.GetFirmwareDetailsHandler{Client: client, Facts: facts},

		&tools.ListIDPSThreatsHandler{Client: client},
		&tools.GetFirewallSessionsHandler{Client: client},

		&tools.PingFromAPHandler{Client: client},
		&tools.PingFromGatewayHandler{Client: client},
		&tools.TracerouteFromAPHandler{Client: client},
		&tools.GetAsyncTestResultHandler{Client: client, Facts: facts},

		&tools.CheckServerHealthHandler{Prober: prober},
		&tools.VerifyFactsHandler{Facts: facts},
	}

	for _, h := range handlers {
		reg.Register(h)
	}

	return reg
}

// vendorPing builds the check_server_health probe function: a single
// lightweight GET bypassing the rate limiter and circuit breaker, since the
// health check itself must never be the thing that trips them.
func vendorPing(baseURL string, doer *http.Client, tokens *auth.TokenManager) health.PingFunc {
	return func(ctx context.Context) (int, error) {
		token, err := tokens.EnsureFresh(ctx)
		if err != nil {
			return 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/network-monitoring/v1alpha1/sites-health?limit=1", nil)
		if err != nil {
			return 0, gatewayerr.Other("failed to build health probe request", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := doer.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		return resp.StatusCode, nil
	}
}

// serveMetrics starts the Prometheus scrape endpoint in the background.
// Listen failures are logged, not fatal: metrics are an observability
// extra, not load-bearing for serving tool calls.
func serveMetrics(ctx context.Context, log logger.Logger, handler http.Handler) {
	addr := os.Getenv(metricsAddrEnvVar)
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx) //nolint:errcheck // best-effort on shutdown
	}()
}
