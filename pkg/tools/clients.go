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
	"strconv"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

// ListAllClientsHandler implements list_all_clients.
type ListAllClientsHandler struct {
	Client *apiclient.Client
	Sites  *siteResolver
	Facts  *FactStore
}

func (h *ListAllClientsHandler) Name() string { return "list_all_clients" }
func (h *ListAllClientsHandler) Description() string {
	return "Lists connected and recently-seen wireless/wired clients with connection details."
}

func (h *ListAllClientsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"serial_number": {"type": "string"},
			"start_query_time": {"type": "string"},
			"end_query_time": {"type": "string"},
			"filter": {"type": "string"},
			"sort": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100},
			"next": {"type": "string"}
		},
		"additionalProperties": false
	}`)
}

func (h *ListAllClientsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := paginationParams(args)

	if v, ok := optString(args, "site_id"); ok {
		params["site-id"] = v
	}

	if v, ok := optString(args, "serial_number"); ok {
		params["serial-number"] = v
	}

	if v, ok := optString(args, "start_query_time"); ok {
		params["start-query-time"] = v
	}

	if v, ok := optString(args, "end_query_time"); ok {
		params["end-query-time"] = v
	}

	if err := h.Sites.EnsureSiteID(ctx, h.Client, params); err != nil {
		return "", err
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/clients", params, nil)
	if err != nil {
		return "", err
	}

	clients := items(data)
	count := len(clients)

	byType := map[string]int{}
	byStatus := map[string]int{}
	byExperience := map[string]int{}

	for _, c := range clients {
		byType[str(c, "type", "Unknown")]++
		byStatus[str(c, "status", "Unknown")]++
		byExperience[str(c, "experience", "Unknown")]++
	}

	b := report.New()
	b.Line(report.INFO, "Clients: %d total, %d in this page", total(data), count)
	b.ListSection(report.NET, "By connection type", sortedCounts(byType))
	b.ListSection(report.STATS, "By status", sortedCounts(byStatus))
	b.ListSection(report.STATS, "By experience", sortedCounts(byExperience))

	b.CheckTotal("By connection type", float64(count), countParts(byType)...)
	b.CheckTotal("By status", float64(count), countParts(byStatus)...)
	b.CheckTotal("By experience", float64(count), countParts(byExperience)...)

	if next, ok := nextCursor(data); ok {
		b.Line(report.INFO, "More results available, pass next=%q to continue", next)
	}

	b.FactInt("Total clients", total(data))
	b.FactInt("Wireless clients", byType["Wireless"])
	b.FactInt("Wired clients", byType["Wired"])

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Total clients":   strconv.Itoa(total(data)),
		"Wireless clients": strconv.Itoa(byType["Wireless"]),
		"Wired clients":    strconv.Itoa(byType["Wired"]),
		"Good experience":  strconv.Itoa(byExperience["Good"]),
		"Poor experience":  strconv.Itoa(byExperience["Poor"]),
	})

	return out, nil
}

// GetClientTrendsHandler implements get_client_trends.
type GetClientTrendsHandler struct {
	Client *apiclient.Client
}

func (h *GetClientTrendsHandler) Name() string { return "get_client_trends" }
func (h *GetClientTrendsHandler) Description() string {
	return "Returns peak/minimum/average client connection counts over a time window."
}

func (h *GetClientTrendsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"start_time": {"type": "string"},
			"end_time": {"type": "string"},
			"interval": {"type": "string", "enum": ["5min", "15min", "1hour", "1day"], "default": "1hour"}
		},
		"additionalProperties": false
	}`)
}

func (h *GetClientTrendsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := map[string]any{}

	if v, ok := optString(args, "site_id"); ok {
		params["site-id"] = v
	}

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

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/clients/trends", params, nil)
	if err != nil {
		return "", err
	}

	trendsRaw, _ := data["trends"].([]any)

	var maxClients, minClients int
	var sumTotal, sumWireless, sumWired float64

	peakTime := "No data"

	for i, v := range trendsRaw {
		t, _ := v.(map[string]any)
		count := intOf(t, "totalClients")

		if i == 0 || count > maxClients {
			maxClients = count
			peakTime = str(t, "timestamp", "Unknown")
		}

		if i == 0 || count < minClients {
			minClients = count
		}

		sumTotal += float64(count)
		sumWireless += num(t, "wirelessClients")
		sumWired += num(t, "wiredClients")
	}

	n := len(trendsRaw)

	var avgClients, avgWireless, avgWired float64
	if n > 0 {
		avgClients = sumTotal / float64(n)
		avgWireless = sumWireless / float64(n)
		avgWired = sumWired / float64(n)
	}

	b := report.New()
	b.Line(report.TREND, "%d data points at %s intervals", n, interval)
	b.Line(report.STATS, "Peak %d clients at %s, minimum %d, average %.1f", maxClients, peakTime, minClients, avgClients)
	b.Line(report.INFO, "Average breakdown: %.1f wireless, %.1f wired", avgWireless, avgWired)

	if maxClients > 0 && avgClients > 0 && float64(maxClients) > avgClients*1.5 {
		b.Line(report.WARN, "Peak usage is more than 50%% above average, consider capacity planning")
	}

	return b.Build()
}

// GetTopClientsByUsageHandler implements get_top_clients_by_usage.
type GetTopClientsByUsageHandler struct {
	Client *apiclient.Client
}

func (h *GetTopClientsByUsageHandler) Name() string { return "get_top_clients_by_usage" }
func (h *GetTopClientsByUsageHandler) Description() string {
	return "Ranks clients by bandwidth consumption over a time range."
}

func (h *GetTopClientsByUsageHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10},
			"time_range": {"type": "string", "enum": ["1hour", "24hours", "7days"], "default": "24hours"},
			"connection_type": {"type": "string", "enum": ["WIRELESS", "WIRED", "ALL"], "default": "ALL"}
		},
		"additionalProperties": false
	}`)
}

func (h *GetTopClientsByUsageHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	timeRange := "24hours"
	if v, ok := optString(args, "time_range"); ok {
		timeRange = v
	}

	params := map[string]any{
		"limit":      optFloat(args, "limit", 10),
		"time-range": timeRange,
	}

	if v, ok := optString(args, "site_id"); ok {
		params["site-id"] = v
	}

	if v, ok := optString(args, "connection_type"); ok && v != "ALL" {
		params["connection-type"] = v
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/clients/usage/topn", params, nil)
	if err != nil {
		return "", err
	}

	clients := items(data)

	var totalBytes int64
	for _, c := range clients {
		totalBytes += int64(num(c, "totalBytes"))
	}

	b := report.New()
	b.Line(report.STATS, "Top %d bandwidth consumers (%s), combined usage %s", len(clients), timeRange, report.Bytes(totalBytes))

	limit := len(clients)
	if limit > 10 {
		limit = 10
	}

	for i := 0; i < limit; i++ {
		c := clients[i]
		connType := str(c, "connectionType", "UNKNOWN")

		label := report.WIRED
		if connType == "WIRELESS" {
			label = report.WIFI
		}

		b.Line(label, "#%d %s (%s, MAC %s): %s total, %s down / %s up, via %s",
			i+1, str(c, "hostname", "Unknown"), connType, str(c, "macAddress", "Unknown"),
			report.Bytes(int64(num(c, "totalBytes"))), report.Bytes(int64(num(c, "downloadBytes"))),
			report.Bytes(int64(num(c, "uploadBytes"))), str(c, "connectedDevice", "Unknown"))
	}

	return b.Build()
}
