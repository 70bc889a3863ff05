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
	"strings"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

// ListWLANsHandler implements list_wlans.
type ListWLANsHandler struct {
	Client *apiclient.Client
}

func (h *ListWLANsHandler) Name() string        { return "list_wlans" }
func (h *ListWLANsHandler) Description() string { return "Lists configured WLANs/SSIDs with security and VLAN detail." }

func (h *ListWLANsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100}
		},
		"additionalProperties": false
	}`)
}

func (h *ListWLANsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := map[string]any{"limit": optFloat(args, "limit", 100)}

	if v, ok := optString(args, "site_id"); ok {
		params["site-id"] = v
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/wlans", params, nil)
	if err != nil {
		return "", err
	}

	wlans := items(data)

	bySecurity := map[string]int{}
	var enabled, disabled int
	var guestNetworks []string

	for _, w := range wlans {
		bySecurity[str(w, "securityType", "UNKNOWN")]++

		if b, _ := w["enabled"].(bool); b {
			enabled++
		} else {
			disabled++
		}

		if name := str(w, "wlanName", ""); strings.Contains(strings.ToLower(name), "guest") {
			guestNetworks = append(guestNetworks, name)
		}
	}

	b := report.New()
	b.Line(report.STATS, "Total %d WLANs, %d enabled, %d disabled", len(wlans), enabled, disabled)
	b.ListSection(report.SEC, "Security distribution", sortedCounts(bySecurity))

	if len(guestNetworks) > 0 {
		b.Line(report.INFO, "Guest networks: %s", strings.Join(guestNetworks, ", "))
	}

	lines := make([]string, 0, len(wlans))

	for _, w := range wlans {
		name := str(w, "wlanName", "Unknown")
		enabled, _ := w["enabled"].(bool)
		broadcast, _ := w["ssidBroadcast"].(bool)

		status := "disabled"
		if enabled {
			status = "enabled"
		}

		vis := "hidden"
		if broadcast {
			vis = "broadcast"
		}

		line := name + ": " + str(w, "securityType", "Unknown") + ", VLAN " + strconv.Itoa(intOf(w, "vlanId")) + ", " + status + ", " + vis

		if str(w, "securityType", "") == "OPEN" && enabled {
			line += " [WARN open network, no encryption]"
		}

		lines = append(lines, line)
	}

	b.ListSection(report.WIFI, "WLAN details", lines)

	return b.Build()
}

// GetWLANDetailsHandler implements get_wlan_details.
type GetWLANDetailsHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetWLANDetailsHandler) Name() string { return "get_wlan_details" }
func (h *GetWLANDetailsHandler) Description() string {
	return "Returns configuration and client detail for a single WLAN."
}

func (h *GetWLANDetailsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"wlan_name": {"type": "string", "minLength": 1}
		},
		"required": ["wlan_name"],
		"additionalProperties": false
	}`)
}

func (h *GetWLANDetailsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	wlanName, err := reqString(args, "wlan_name")
	if err != nil {
		return "", err
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/wlans/"+wlanName, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "WLAN "+wlanName+" not found", nil)
		}

		return "", err
	}

	ssid := str(data, "ssid", wlanName)
	securityType := str(data, "securityType", "Unknown")
	authMethod := str(data, "authenticationMethod", "N/A")
	enabled, _ := data["enabled"].(bool)
	broadcast, hasBroadcast := data["ssidBroadcast"].(bool)
	if !hasBroadcast {
		broadcast = true
	}
	bandSteering, _ := data["bandSteering"].(bool)
	currentClients := intOf(data, "connectedClients")
	throughput := num(data, "throughputMbps")
	totalBytes := int64(num(data, "totalBytes"))

	statusLabel := report.DN
	statusText := "disabled"
	if enabled {
		statusLabel = report.UP
		statusText = "enabled"
	}

	b := report.New()
	b.Line(statusLabel, "WLAN %s (SSID %s): %s", wlanName, ssid, statusText)
	b.Line(report.SEC, "Security: %s, authentication %s", securityType, authMethod)

	if securityType == "OPEN" {
		b.Line(report.WARN, "Open network, no encryption")
	}

	visibility := "broadcast"
	if !broadcast {
		visibility = "hidden"
	}

	b.Line(report.NET, "VLAN %d, SSID %s, band steering %s", intOf(data, "vlanId"), visibility, onOff(bandSteering))

	maxClients, maxIsNumber := data["maxClients"].(float64)

	b.Line(report.INFO, "Connected clients: %d", currentClients)

	if maxIsNumber && float64(currentClients) >= maxClients*0.9 {
		b.Line(report.WARN, "Near capacity limit")
	}

	b.Line(report.STATS, "Throughput %.0f Mbps, total data %s", throughput, report.Bytes(totalBytes))

	if securityType == "OPEN" && enabled {
		b.Line(report.INFO, "Recommendation: enable WPA2/WPA3 encryption for security")
	}

	if !bandSteering {
		b.Line(report.INFO, "Recommendation: consider enabling band steering for better performance")
	}

	if !broadcast {
		b.Line(report.INFO, "Recommendation: hidden SSIDs reduce usability without significant security gain")
	}

	if securityType == "WPA2-PERSONAL" {
		b.Line(report.INFO, "Recommendation: consider upgrading to WPA3 for enhanced security")
	}

	statusFact := "Disabled"
	if enabled {
		statusFact = "Enabled"
	}

	b.Fact("WLAN", wlanName)
	b.Fact("Status", statusFact)
	b.Fact("Security", securityType)
	b.FactInt("Connected clients", currentClients)

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"WLAN":               wlanName,
		"Status":             statusFact,
		"Security":           securityType,
		"Connected clients": strconv.Itoa(currentClients),
	})

	return out, nil
}

// GetAPDetailsHandler implements get_ap_details.
type GetAPDetailsHandler struct {
	Client *apiclient.Client
}

func (h *GetAPDetailsHandler) Name() string { return "get_ap_details" }
func (h *GetAPDetailsHandler) Description() string {
	return "Returns status, radio and performance detail for a single access point."
}

func (h *GetAPDetailsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial_number": {"type": "string", "minLength": 5, "maxLength": 30}
		},
		"required": ["serial_number"],
		"additionalProperties": false
	}`)
}

func (h *GetAPDetailsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial_number")
	if err != nil {
		return "", err
	}

	serial = strings.ToUpper(strings.TrimSpace(serial))

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/aps/"+serial, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "access point "+serial+" not found", nil)
		}

		return "", err
	}

	status := str(data, "status", "UNKNOWN")

	statusLabel := report.DN
	if status == "ONLINE" {
		statusLabel = report.UP
	}

	clientCount := intOf(data, "clientCount")

	b := report.New()
	b.Line(statusLabel, "%s (%s): %s, model %s, firmware %s", str(data, "deviceName", "Unknown"), serial, status, str(data, "model", "Unknown"), str(data, "firmwareVersion", "Unknown"))
	b.Line(report.INFO, "Site %s, %d connected clients", str(data, "siteName", "Unknown"), clientCount)

	for _, v := range itemsOfKey(data, "radios") {
		band := str(v, "band", "Unknown")
		if band == "2.4GHz" || band == "5GHz" {
			b.Line(report.AP, "%s radio: channel %v, tx power %v dBm", band, v["channel"], v["txPower"])
		}
	}

	if cpu := num(data, "cpuUtilization"); cpu > 80 {
		b.Line(report.WARN, "High CPU: %.0f%%", cpu)
	}

	if mem := num(data, "memoryUtilization"); mem > 80 {
		b.Line(report.WARN, "High memory: %.0f%%", mem)
	}

	if clientCount > 50 {
		b.Line(report.WARN, "High client load: %d clients", clientCount)
	}

	return b.Build()
}

func itemsOfKey(data map[string]any, key string) []map[string]any {
	raw, _ := data[key].([]any)

	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}

	return out
}

// GetAPRadiosHandler implements get_ap_radios.
type GetAPRadiosHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetAPRadiosHandler) Name() string { return "get_ap_radios" }
func (h *GetAPRadiosHandler) Description() string {
	return "Returns per-radio channel, power and utilization detail for an access point."
}

func (h *GetAPRadiosHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 5, "maxLength": 30}
		},
		"required": ["serial"],
		"additionalProperties": false
	}`)
}

func (h *GetAPRadiosHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	serial = strings.ToUpper(strings.TrimSpace(serial))

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/aps/"+serial+"/radios", nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "access point "+serial+" not found", nil)
		}

		return "", err
	}

	radios := itemsOfKey(data, "radios")
	apName := str(data, "apName", serial)

	if len(radios) == 0 {
		b := report.New()
		b.Line(report.WARN, "No radio information available for %s", apName)

		return b.Build()
	}

	b := report.New()
	b.Line(report.INFO, "%d radio(s) detected on %s", len(radios), apName)

	var totalClients int

	for i, r := range radios {
		status := str(r, "status", "UNKNOWN")

		statusLabel := report.DN
		if status == "UP" {
			statusLabel = report.UP
		}

		clients := intOf(r, "clientCount")
		totalClients += clients

		utilization := num(r, "utilizationPercent")

		b.Line(statusLabel, "Radio %d (%s): channel %v, tx power %v dBm, %d clients, %.0f%% utilization",
			i+1, str(r, "band", "Unknown"), r["channel"], r["txPower"], clients, utilization)

		switch {
		case utilization >= 80:
			b.Line(report.CRIT, "Radio %d heavily utilized, performance degraded", i+1)
		case utilization >= 60:
			b.Line(report.WARN, "Radio %d high utilization, may impact performance", i+1)
		}

		if clients > 30 {
			b.Line(report.WARN, "Radio %d high client count, consider load balancing", i+1)
		}
	}

	b.FactInt("Total radios", len(radios))
	b.FactInt("Total clients", totalClients)

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"AP name":      apName,
		"Total radios": strconv.Itoa(len(radios)),
		"Total clients": strconv.Itoa(totalClients),
	})

	return out, nil
}

// GetAPCPUUtilizationHandler implements get_ap_cpu_utilization.
type GetAPCPUUtilizationHandler struct {
	Client *apiclient.Client
}

func (h *GetAPCPUUtilizationHandler) Name() string { return "get_ap_cpu_utilization" }
func (h *GetAPCPUUtilizationHandler) Description() string {
	return "Returns CPU utilization trend data for an access point over an interval."
}

func (h *GetAPCPUUtilizationHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 5, "maxLength": 30},
			"start_time": {"type": "string"},
			"end_time": {"type": "string"},
			"interval": {"type": "string", "enum": ["5min", "1hour"], "default": "1hour"}
		},
		"required": ["serial"],
		"additionalProperties": false
	}`)
}

func (h *GetAPCPUUtilizationHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	return cpuUtilization(ctx, h.Client, "aps", args)
}

// GetTopAPsByBandwidthHandler implements get_top_aps_by_bandwidth.
type GetTopAPsByBandwidthHandler struct {
	Client *apiclient.Client
}

func (h *GetTopAPsByBandwidthHandler) Name() string { return "get_top_aps_by_bandwidth" }
func (h *GetTopAPsByBandwidthHandler) Description() string {
	return "Ranks access points by wireless bandwidth usage over a time range."
}

func (h *GetTopAPsByBandwidthHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10},
			"time_range": {"type": "string", "enum": ["1hour", "24hours", "7days", "30days"], "default": "24hours"}
		},
		"additionalProperties": false
	}`)
}

func (h *GetTopAPsByBandwidthHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
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

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/top-aps-by-wireless-usage", params, nil)
	if err != nil {
		return "", err
	}

	aps := items(data)

	var totalBandwidth int64
	var totalClients int

	for _, ap := range aps {
		totalBandwidth += int64(num(ap, "totalBytes"))
		totalClients += intOf(ap, "clientCount")
	}

	b := report.New()
	b.Line(report.STATS, "Top %d access points by bandwidth usage (%s)", len(aps), timeRange)
	b.Line(report.TREND, "Combined total %s, %d clients", report.Bytes(totalBandwidth), totalClients)

	limit := len(aps)
	if limit > 10 {
		limit = 10
	}

	for i := 0; i < limit; i++ {
		ap := aps[i]
		clients := intOf(ap, "clientCount")
		utilization := num(ap, "utilizationPercent")

		b.Line(report.AP, "#%d %s (%s): %s total (%s down / %s up), %d clients, %.0f%% utilization",
			i+1, str(ap, "apName", "Unknown"), str(ap, "serialNumber", "Unknown"),
			report.Bytes(int64(num(ap, "totalBytes"))), report.Bytes(int64(num(ap, "downloadBytes"))),
			report.Bytes(int64(num(ap, "uploadBytes"))), clients, utilization)

		if utilization > 80 {
			b.Line(report.WARN, "High utilization, consider capacity upgrade")
		}

		if clients > 50 {
			b.Line(report.WARN, "High client count, may need load balancing")
		}
	}

	return b.Build()
}
