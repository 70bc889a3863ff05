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
	"sort"
	"strconv"
	"strings"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

var healthLabels = map[string]report.Label{
	"GOOD": report.OK,
	"FAIR": report.WARN,
	"POOR": report.CRIT,
}

// GetSitesHealthHandler implements get_sites_health.
type GetSitesHealthHandler struct {
	Client *apiclient.Client
}

func (h *GetSitesHealthHandler) Name() string { return "get_sites_health" }
func (h *GetSitesHealthHandler) Description() string {
	return "Returns a health overview of every site: device/client counts, alert counts and health scores."
}

func (h *GetSitesHealthHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100},
			"offset": {"type": "integer", "minimum": 0, "default": 0}
		},
		"additionalProperties": false
	}`)
}

func (h *GetSitesHealthHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := map[string]any{
		"limit":  optFloat(args, "limit", 100),
		"offset": optFloat(args, "offset", 0),
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/sites-health", params, nil)
	if err != nil {
		return "", err
	}

	sites := items(data)

	byHealth := map[string]int{}
	var totalDevices, totalClients, totalAlerts int

	type alertedSite struct {
		name   string
		id     string
		alerts int
	}

	var alerted []alertedSite

	for _, site := range sites {
		health := strings.ToUpper(str(site, "overallHealth", "UNKNOWN"))
		byHealth[health]++

		totalDevices += intOf(site, "deviceCount")
		totalClients += intOf(site, "clientCount")

		if alerts := intOf(site, "alertCount"); alerts > 0 {
			totalAlerts += alerts
			alerted = append(alerted, alertedSite{
				name:   str(site, "siteName", "Unknown"),
				id:     str(site, "siteId", "N/A"),
				alerts: alerts,
			})
		}
	}

	sort.SliceStable(alerted, func(i, j int) bool { return alerted[i].alerts > alerted[j].alerts })

	b := report.New()
	b.Line(report.INFO, "Sites analyzed: %d", len(sites))

	healthLines := make([]string, 0, len(byHealth))
	for _, k := range sortedStrings(healthKeys(byHealth)) {
		label, ok := healthLabels[k]
		if !ok {
			label = report.INFO
		}

		healthLines = append(healthLines, string(label)+" "+k+": "+strconv.Itoa(byHealth[k]))
	}

	b.ListSection(report.STATS, "Health distribution", healthLines)
	b.Line(report.DEV, "Total devices: %d", totalDevices)
	b.Line(report.INFO, "Total clients: %d", totalClients)
	b.Line(report.WARN, "Total active alerts: %d", totalAlerts)

	if len(alerted) > 5 {
		alerted = alerted[:5]
	}

	alertLines := make([]string, 0, len(alerted))
	for _, s := range alerted {
		alertLines = append(alertLines, s.name+" ("+s.id+"): "+strconv.Itoa(s.alerts)+" alerts")
	}

	if len(alertLines) > 0 {
		b.ListSection(report.WARN, "Top sites with alerts", alertLines)
	}

	return b.Build()
}

func healthKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	return out
}

// GetSiteDetailsHandler implements get_site_details.
type GetSiteDetailsHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetSiteDetailsHandler) Name() string { return "get_site_details" }
func (h *GetSiteDetailsHandler) Description() string {
	return "Returns device, client, alert and bandwidth detail for a single site."
}

func (h *GetSiteDetailsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string", "minLength": 1, "description": "site identifier"}
		},
		"required": ["site_id"],
		"additionalProperties": false
	}`)
}

func (h *GetSiteDetailsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	siteID, err := reqString(args, "site_id")
	if err != nil {
		return "", err
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/site-health/"+siteID, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "site "+siteID+" not found", nil)
		}

		return "", err
	}

	siteName := str(data, "siteName", "Unknown")
	health := strings.ToUpper(str(data, "overallHealth", "UNKNOWN"))

	devices, _ := data["devices"].(map[string]any)
	clients, _ := data["clients"].(map[string]any)
	alerts, _ := data["alerts"].(map[string]any)
	bandwidth, _ := data["bandwidthUsage"].(map[string]any)

	totalDevices := intOf(devices, "total")
	onlineDevices := intOf(devices, "online")
	offlineDevices := intOf(devices, "offline")
	totalClients := intOf(clients, "total")
	wirelessClients := intOf(clients, "wireless")
	wiredClients := intOf(clients, "wired")
	criticalAlerts := intOf(alerts, "critical")
	warningAlerts := intOf(alerts, "warning")

	b := report.New()

	label, ok := healthLabels[health]
	if !ok {
		label = report.INFO
	}

	b.Line(label, "Site %s (%s): health %s", siteName, siteID, health)
	b.Line(report.DEV, "Devices: %d total, %d online, %d offline", totalDevices, onlineDevices, offlineDevices)
	b.Line(report.INFO, "Clients: %d total (%d wireless, %d wired)", totalClients, wirelessClients, wiredClients)

	if total := criticalAlerts + warningAlerts; total > 0 {
		b.Line(report.WARN, "Alerts: %d active (%d critical, %d warning)", total, criticalAlerts, warningAlerts)
	} else {
		b.Line(report.OK, "No active alerts")
	}

	if download, upload := num(bandwidth, "downloadMbps"), num(bandwidth, "uploadMbps"); download > 0 || upload > 0 {
		b.Line(report.TREND, "Bandwidth: %.2f Mbps down, %.2f Mbps up", download, upload)
	}

	if totalDevices > 0 && offlineDevices > totalDevices/5 {
		b.Line(report.WARN, "%d devices offline (over 20%% of site)", offlineDevices)
	}

	b.Fact("Site", siteName)
	b.Fact("Health", health)
	b.FactInt("Total devices", totalDevices)
	b.FactInt("Online devices", onlineDevices)
	b.FactInt("Offline devices", offlineDevices)
	b.FactInt("Total clients", totalClients)

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Site":            siteName,
		"Health":          health,
		"Total devices":   strconv.Itoa(totalDevices),
		"Online devices":  strconv.Itoa(onlineDevices),
		"Offline devices": strconv.Itoa(offlineDevices),
		"Total clients":   strconv.Itoa(totalClients),
	})

	return out, nil
}
