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

// Package tools implements the catalog of Aruba Central read and diagnostic
// operations exposed through the gateway's tool registry. Every handler
// follows the same shape: build vendor query parameters from validated
// arguments, call the vendor API through apiclient.Client, and render a
// plain-text report via report.Builder.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

// paginationParams extracts the limit/offset/filter/sort/next parameters
// every list endpoint accepts, in the vendor's expected shape.
func paginationParams(args map[string]any) map[string]any {
	params := map[string]any{"limit": optFloat(args, "limit", 100)}

	if offset, ok := args["offset"]; ok {
		params["offset"] = offset
	}

	if filter, ok := optString(args, "filter"); ok {
		params["filter"] = filter
	}

	if sortBy, ok := optString(args, "sort"); ok {
		params["sort"] = sortBy
	}

	if next, ok := optString(args, "next"); ok {
		params["next"] = next
	}

	return params
}

func optString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	return s, ok && s != ""
}

func reqString(args map[string]any, key string) (string, error) {
	s, ok := optString(args, key)
	if !ok {
		return "", gatewayerr.Schema(key, "is required")
	}

	return s, nil
}

func optFloat(args map[string]any, key string, def float64) float64 {
	v, ok := args[key]
	if !ok {
		return def
	}

	f, ok := v.(float64)
	if !ok {
		return def
	}

	return f
}

func optInt(args map[string]any, key string, def int) int {
	return int(optFloat(args, key, float64(def)))
}

// items extracts the "items" array of a vendor list response as a slice of
// plain maps, skipping entries that are not objects.
func items(data map[string]any) []map[string]any {
	raw, _ := data["items"].([]any)

	out := make([]map[string]any, 0, len(raw))

	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}

	return out
}

func str(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}

	return def
}

func num(m map[string]any, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}

	return 0
}

func intOf(m map[string]any, key string) int {
	return int(num(m, key))
}

func total(data map[string]any) int {
	return intOf(data, "total")
}

func nextCursor(data map[string]any) (string, bool) {
	return optString(data, "next")
}

// countParts converts a label -> count breakdown into the plain counts
// report.Builder.CheckTotal expects, so a handler can assert a breakdown
// sums to the total it states alongside it.
func countParts(counts map[string]int) []float64 {
	parts := make([]float64, 0, len(counts))
	for _, v := range counts {
		parts = append(parts, float64(v))
	}

	return parts
}

// sortedCounts renders a map of label -> count as lines sorted by key, for
// the many "by status"/"by model" breakdown sections the catalog renders.
func sortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %d", k, counts[k]))
	}

	return out
}

// siteResolver implements the vendor API's requirement that most endpoints
// carry a "site-id" parameter, by caching the first site discovered from
// the sites-health or devices endpoint for five minutes.
type siteResolver struct {
	mu        sync.Mutex
	siteID    string
	fetchedAt time.Time
}

const siteCacheTTL = 5 * time.Minute

// NewSiteResolver returns an empty siteResolver, shared across every
// handler that needs default-site resolution so they share one cache.
func NewSiteResolver() *siteResolver {
	return &siteResolver{}
}

// EnsureSiteID adds a "site-id" entry to params if one is not already
// present, resolving it from the cache or the vendor API.
func (s *siteResolver) EnsureSiteID(ctx context.Context, client *apiclient.Client, params map[string]any) error {
	if _, ok := params["site-id"]; ok {
		return nil
	}

	siteID, err := s.defaultSiteID(ctx, client)
	if err != nil {
		return err
	}

	params["site-id"] = siteID

	return nil
}

func (s *siteResolver) defaultSiteID(ctx context.Context, client *apiclient.Client) (string, error) {
	s.mu.Lock()
	if s.siteID != "" && time.Since(s.fetchedAt) < siteCacheTTL {
		defer s.mu.Unlock()
		return s.siteID, nil
	}
	s.mu.Unlock()

	data, err := client.Call(ctx, "GET", "/network-monitoring/v1alpha1/sites-health", map[string]any{"limit": 1}, nil)
	if err == nil {
		if sites := items(data); len(sites) > 0 {
			if id := str(sites[0], "siteId", str(sites[0], "id", "")); id != "" {
				s.cache(id)
				return id, nil
			}
		}
	}

	data, err = client.Call(ctx, "GET", "/network-monitoring/v1alpha1/devices", map[string]any{"limit": 1}, nil)
	if err != nil {
		return "", err
	}

	devices := items(data)
	if len(devices) == 0 {
		return "", gatewayerr.Other("unable to determine a default site id: no devices found", nil)
	}

	id := str(devices[0], "siteId", "")
	if id == "" {
		return "", gatewayerr.Other("unable to determine a default site id: no devices found", nil)
	}

	s.cache(id)

	return id, nil
}

func (s *siteResolver) cache(id string) {
	s.mu.Lock()
	s.siteID = id
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}

// cpuUtilization implements the shared CPU-utilization-trend report shape
// used by get_ap_cpu_utilization and get_gateway_cpu_utilization. The two
// endpoints disagree on both the response shape and field names (APs return
// "trends" entries keyed "cpuUtilization", gateways return "samples" entries
// keyed "cpuPercent"), so both are branched on deviceKind alongside the
// endpoint path.
func cpuUtilization(ctx context.Context, client *apiclient.Client, deviceKind string, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	serial = strings.ToUpper(strings.TrimSpace(serial))

	params := map[string]any{}

	if v, ok := optString(args, "start_time"); ok {
		params["start-time"] = v
	}

	if v, ok := optString(args, "end_time"); ok {
		params["end-time"] = v
	}

	interval := "1hour"
	if v, ok := optString(args, "interval"); ok {
		interval = v
	}

	params["interval"] = interval

	endpoint := "/network-monitoring/v1alpha1/" + deviceKind + "/" + serial + "/cpu-utilization"

	seriesKey, cpuKey := "samples", "cpuPercent"
	if deviceKind == "aps" {
		endpoint += "-trends"
		seriesKey, cpuKey = "trends", "cpuUtilization"
	}

	data, err := client.Call(ctx, "GET", endpoint, params, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, deviceKind+" "+serial+" not found", nil)
		}

		return "", err
	}

	seriesRaw, _ := data[seriesKey].([]any)

	var maxCPU, minCPU, currentCPU float64
	var sum float64

	peakTime := "No data"

	for i, v := range seriesRaw {
		t, _ := v.(map[string]any)
		cpu := num(t, cpuKey)

		if i == 0 || cpu > maxCPU {
			maxCPU = cpu
			peakTime = str(t, "timestamp", "Unknown")
		}

		if i == 0 || cpu < minCPU {
			minCPU = cpu
		}

		sum += cpu
		currentCPU = cpu
	}

	n := len(seriesRaw)

	var avgCPU float64
	if n > 0 {
		avgCPU = sum / float64(n)
	}

	name := str(data, deviceKindNameField(deviceKind), serial)

	b := report.New()
	b.Line(report.STATS, "%s current CPU %.0f%%, %d data points at %s intervals", name, currentCPU, n, interval)
	b.Line(report.TREND, "Peak %.0f%% at %s, minimum %.0f%%, average %.1f%%", maxCPU, peakTime, minCPU, avgCPU)

	switch {
	case maxCPU >= 90:
		b.Line(report.CRIT, "CPU usage reached %.0f%%, severely overloaded", maxCPU)
	case maxCPU >= 80:
		b.Line(report.WARN, "CPU usage reached %.0f%%, under heavy load", maxCPU)
	case avgCPU >= 70:
		b.Line(report.WARN, "Average CPU at %.1f%%, monitor for performance issues", avgCPU)
	default:
		b.Line(report.OK, "CPU utilization is normal")
	}

	b.Fact("Current CPU", fmt.Sprintf("%.0f%%", currentCPU))
	b.Fact("Average CPU", fmt.Sprintf("%.1f%%", avgCPU))
	b.Fact("Peak CPU", fmt.Sprintf("%.0f%%", maxCPU))

	return b.Build()
}

func deviceKindNameField(deviceKind string) string {
	if deviceKind == "aps" {
		return "apName"
	}

	return "deviceName"
}

// deviceSiteID resolves the site hosting the device with the given serial
// number, bypassing the cached default.
func deviceSiteID(ctx context.Context, client *apiclient.Client, serial string) (string, error) {
	data, err := client.Call(ctx, "GET", "/network-monitoring/v1alpha1/devices", map[string]any{"limit": 100}, nil)
	if err != nil {
		return "", err
	}

	for _, d := range items(data) {
		if str(d, "serialNumber", "") == serial {
			if id := str(d, "siteId", ""); id != "" {
				return id, nil
			}

			return "", gatewayerr.Other(fmt.Sprintf("device %s has no site id assigned", serial), nil)
		}
	}

	return "", gatewayerr.Other(fmt.Sprintf("device with serial %s not found", serial), nil)
}
