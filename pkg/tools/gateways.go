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
	"fmt"
	"strconv"
	"strings"

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

// ListGatewaysHandler implements list_gateways.
type ListGatewaysHandler struct {
	Client *apiclient.Client
}

func (h *ListGatewaysHandler) Name() string { return "list_gateways" }
func (h *ListGatewaysHandler) Description() string {
	return "Lists gateways with deployment, clustering and status details."
}

func (h *ListGatewaysHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"filter": {"type": "string"},
			"sort": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100},
			"next": {"type": "string"}
		},
		"additionalProperties": false
	}`)
}

func (h *ListGatewaysHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := paginationParams(args)

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/gateways", params, nil)
	if err != nil {
		return "", err
	}

	gateways := items(data)

	var online, offline int
	byDeployment := map[string]int{}
	byModel := map[string]int{}

	var offlineList []string

	for _, gw := range gateways {
		status := str(gw, "status", "UNKNOWN")
		if status == "ONLINE" {
			online++
		} else if status == "OFFLINE" {
			offline++
			offlineList = append(offlineList, str(gw, "deviceName", "Unknown")+" ("+str(gw, "serialNumber", "N/A")+") at "+str(gw, "siteName", "Unknown"))
		}

		byDeployment[str(gw, "deployment", "Unknown")]++
		byModel[str(gw, "model", "Unknown")]++
	}

	b := report.New()
	b.Line(report.INFO, "Gateways: %d total, %d in this page", total(data), len(gateways))
	b.Line(report.UP, "Online: %d", online)
	b.Line(report.DN, "Offline: %d", offline)

	if n := online + offline; n > 0 {
		b.Line(report.STATS, "Availability: %s", report.Percent(float64(online)/float64(n)*100))
	}

	b.ListSection(report.INFO, "By deployment", sortedCounts(byDeployment))
	b.ListSection(report.INFO, "By model", sortedCounts(byModel))

	b.CheckTotal("By deployment", float64(len(gateways)), countParts(byDeployment)...)
	b.CheckTotal("By model", float64(len(gateways)), countParts(byModel)...)

	if len(offlineList) > 0 {
		if len(offlineList) > 10 {
			offlineList = offlineList[:10]
		}

		b.ListSection(report.WARN, "Offline gateways", offlineList)
	}

	if next, ok := nextCursor(data); ok {
		b.Line(report.INFO, "More results available, pass next=%q to continue", next)
	}

	return b.Build()
}

// GetGatewayDetailsHandler implements get_gateway_details.
type GetGatewayDetailsHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetGatewayDetailsHandler) Name() string { return "get_gateway_details" }
func (h *GetGatewayDetailsHandler) Description() string {
	return "Returns status, uplink, tunnel and throughput detail for a single gateway."
}

func (h *GetGatewayDetailsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial_number": {"type": "string", "minLength": 5, "maxLength": 30}
		},
		"required": ["serial_number"],
		"additionalProperties": false
	}`)
}

func (h *GetGatewayDetailsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial_number")
	if err != nil {
		return "", err
	}

	serial = strings.ToUpper(strings.TrimSpace(serial))

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/gateways/"+serial, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "gateway "+serial+" not found", nil)
		}

		return "", err
	}

	deviceName := str(data, "deviceName", "Unknown")
	status := str(data, "status", "UNKNOWN")
	uplinksRaw, _ := data["uplinks"].([]any)

	var uplinksUp int

	uplinkLines := make([]string, 0, len(uplinksRaw))

	for _, v := range uplinksRaw {
		u, _ := v.(map[string]any)
		up := str(u, "status", "UNKNOWN")

		label := report.DN
		if up == "UP" {
			uplinksUp++
			label = report.UP
		}

		uplinkLines = append(uplinkLines, string(label)+" "+str(u, "name", "Unknown")+": "+up)
	}

	tunnelCount := intOf(data, "activeTunnels")

	b := report.New()

	statusLabel := report.DN
	if status == "ONLINE" {
		statusLabel = report.UP
	}

	b.Line(statusLabel, "%s (%s): %s, model %s, firmware %s", deviceName, serial, status, str(data, "model", "Unknown"), str(data, "firmwareVersion", "Unknown"))
	b.Line(report.INFO, "Site %s, deployment %s", str(data, "siteName", "Unknown"), str(data, "deployment", "Standalone"))

	if cluster := str(data, "clusterName", ""); cluster != "" {
		b.Line(report.INFO, "Cluster %s, role %s", cluster, str(data, "clusterRole", "Standalone"))
	}

	if len(uplinkLines) > 0 {
		b.ListSection(report.NET, "Uplinks", uplinkLines)
	}

	if tunnelCount > 0 {
		b.Line(report.VPN, "%d active tunnels", tunnelCount)
	} else {
		b.Line(report.VPN, "No active tunnels")
	}

	if throughput, ok := data["throughput"].(map[string]any); ok {
		if down, up := num(throughput, "downloadMbps"), num(throughput, "uploadMbps"); down > 0 || up > 0 {
			b.Line(report.TREND, "Throughput: %.2f Mbps down, %.2f Mbps up", down, up)
		}
	}

	if cpu := num(data, "cpuUtilization"); cpu > 80 {
		b.Line(report.WARN, "High CPU: %.0f%%", cpu)
	}

	if mem := num(data, "memoryUtilization"); mem > 80 {
		b.Line(report.WARN, "High memory: %.0f%%", mem)
	}

	if total := len(uplinkLines); total > 0 && uplinksUp < total {
		b.Line(report.WARN, "%d uplink(s) down", total-uplinksUp)
	}

	if len(uplinkLines) > 0 && uplinksUp == 0 {
		b.Line(report.CRIT, "All uplinks down, no WAN connectivity")
	}

	b.Fact("Gateway name", deviceName)
	b.Fact("Serial", serial)
	b.Fact("Status", status)
	b.FactInt("Active tunnels", tunnelCount)
	b.FactInt("Uplinks up", uplinksUp)

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Gateway name":   deviceName,
		"Serial":         serial,
		"Status":         status,
		"Active tunnels": strconv.Itoa(tunnelCount),
		"Uplinks up":     strconv.Itoa(uplinksUp),
	})

	return out, nil
}

// GetGatewayClusterInfoHandler implements get_gateway_cluster_info.
type GetGatewayClusterInfoHandler struct {
	Client *apiclient.Client
}

func (h *GetGatewayClusterInfoHandler) Name() string { return "get_gateway_cluster_info" }
func (h *GetGatewayClusterInfoHandler) Description() string {
	return "Returns membership and role detail for a gateway cluster."
}

func (h *GetGatewayClusterInfoHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"cluster_name": {"type": "string", "minLength": 1}
		},
		"required": ["cluster_name"],
		"additionalProperties": false
	}`)
}

func (h *GetGatewayClusterInfoHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	clusterName, err := reqString(args, "cluster_name")
	if err != nil {
		return "", err
	}

	clusterName = strings.TrimSpace(clusterName)

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/clusters/"+clusterName, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "cluster "+clusterName+" not found", nil)
		}

		return "", err
	}

	membersRaw, _ := data["members"].([]any)
	clusterStatus := str(data, "status", "UNKNOWN")
	haEnabled := data["haEnabled"] == true
	syncStatus := str(data, "configSyncStatus", "UNKNOWN")

	var primary map[string]any
	var backups, standby []map[string]any

	for _, v := range membersRaw {
		m, _ := v.(map[string]any)

		switch str(m, "role", "UNKNOWN") {
		case "PRIMARY":
			primary = m
		case "BACKUP":
			backups = append(backups, m)
		case "STANDBY":
			standby = append(standby, m)
		}
	}

	b := report.New()

	statusLabel := report.WARN
	if clusterStatus == "HEALTHY" {
		statusLabel = report.OK
	}

	b.Line(statusLabel, "Cluster %s: %s, HA %s", clusterName, clusterStatus, onOff(haEnabled))
	b.Line(report.INFO, "%d cluster members", len(membersRaw))

	if primary != nil {
		status := str(primary, "status", "UNKNOWN")
		label := report.DN
		if status == "ONLINE" {
			label = report.UP
		}

		b.Line(label, "Primary: %s, status %s, serial %s, up %s",
			str(primary, "gatewayName", "Unknown"), status, str(primary, "serialNumber", "Unknown"),
			report.Uptime(int64(intOf(primary, "uptimeSeconds"))))
	} else {
		b.Line(report.WARN, "No primary gateway detected")
	}

	if len(backups) > 0 {
		lines := make([]string, 0, len(backups))
		for _, m := range backups {
			status := str(m, "status", "UNKNOWN")
			label := "[DN]"
			if status == "ONLINE" {
				label = "[UP]"
			}

			lines = append(lines, label+" "+str(m, "gatewayName", "Unknown")+" - "+status)
		}

		b.ListSection(report.INFO, "Backup gateways", lines)
	}

	if len(standby) > 0 {
		lines := make([]string, 0, len(standby))
		for _, m := range standby {
			lines = append(lines, str(m, "gatewayName", "Unknown"))
		}

		b.ListSection(report.INFO, "Standby gateways", lines)
	}

	b.Line(report.INFO, "Configuration sync: %s", syncStatus)

	if syncStatus != "IN_SYNC" {
		b.Line(report.WARN, "Cluster members may have configuration drift")
	}

	if !haEnabled {
		b.Line(report.WARN, "HA is disabled, no automatic failover")
	}

	if primary == nil {
		b.Line(report.CRIT, "No primary gateway, cluster inoperative")
	} else if str(primary, "status", "") != "ONLINE" {
		b.Line(report.CRIT, "Primary gateway is %s", str(primary, "status", "UNKNOWN"))
	}

	if len(backups) == 0 && haEnabled {
		b.Line(report.WARN, "No backup gateways, HA cannot function")
	}

	var offlineBackups int
	for _, m := range backups {
		if str(m, "status", "") != "ONLINE" {
			offlineBackups++
		}
	}

	if offlineBackups > 0 {
		b.Line(report.WARN, "%d backup gateway(s) offline", offlineBackups)
	}

	if clusterStatus == "HEALTHY" && haEnabled && len(backups) > 0 {
		b.Line(report.OK, "Cluster is healthy and redundant")
	}

	return b.Build()
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}

	return "disabled"
}

// GetGatewayCPUUtilizationHandler implements get_gateway_cpu_utilization.
type GetGatewayCPUUtilizationHandler struct {
	Client *apiclient.Client
}

func (h *GetGatewayCPUUtilizationHandler) Name() string { return "get_gateway_cpu_utilization" }
func (h *GetGatewayCPUUtilizationHandler) Description() string {
	return "Returns CPU utilization trend data for a gateway over an interval."
}

func (h *GetGatewayCPUUtilizationHandler) InputSchemaJSON() []byte {
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

func (h *GetGatewayCPUUtilizationHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	return cpuUtilization(ctx, h.Client, "gateways", args)
}

// GetGatewayUplinksHandler implements get_gateway_uplinks.
type GetGatewayUplinksHandler struct {
	Client *apiclient.Client
}

func (h *GetGatewayUplinksHandler) Name() string { return "get_gateway_uplinks" }
func (h *GetGatewayUplinksHandler) Description() string {
	return "Returns WAN uplink status and utilization for a gateway."
}

func (h *GetGatewayUplinksHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial_number": {"type": "string", "minLength": 5, "maxLength": 30}
		},
		"required": ["serial_number"],
		"additionalProperties": false
	}`)
}

func (h *GetGatewayUplinksHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial_number")
	if err != nil {
		return "", err
	}

	serial = strings.ToUpper(strings.TrimSpace(serial))

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/gateways/"+serial+"/uplinks", nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, "gateway "+serial+" not found", nil)
		}

		return "", err
	}

	uplinksRaw, _ := data["uplinks"].([]any)
	gatewayName := str(data, "gatewayName", serial)

	b := report.New()

	if len(uplinksRaw) == 0 {
		b.Line(report.WARN, "No uplink information available for %s", gatewayName)
		return b.Build()
	}

	var up int
	var primary map[string]any

	for _, v := range uplinksRaw {
		u, _ := v.(map[string]any)
		if str(u, "status", "") == "UP" {
			up++
		}

		if u["isPrimary"] == true {
			primary = u
		}
	}

	down := len(uplinksRaw) - up

	b.Line(report.NET, "WAN uplinks for %s: %d total, %d up, %d down", gatewayName, len(uplinksRaw), up, down)

	for i, v := range uplinksRaw {
		u, _ := v.(map[string]any)

		iface := str(u, "interfaceName", fmt.Sprintf("uplink-%d", i+1))
		status := str(u, "status", "UNKNOWN")
		uplinkType := str(u, "type", "UNKNOWN")
		isPrimary := u["isPrimary"] == true
		throughput := num(u, "throughputMbps")
		txBytes := int64(num(u, "txBytes"))
		rxBytes := int64(num(u, "rxBytes"))
		txErrors := intOf(u, "txErrors")
		rxErrors := intOf(u, "rxErrors")

		label := report.DN
		if status == "UP" {
			label = report.UP
		}

		badge := ""
		if isPrimary {
			badge = " [PRIMARY]"
		}

		b.Line(label, "%s%s: type %s, status %s, IP %s, gateway %s, %.0f Mbps, TX %s, RX %s",
			iface, badge, uplinkType, status, str(u, "ipAddress", "N/A"), str(u, "gateway", "N/A"),
			throughput, report.Bytes(txBytes), report.Bytes(rxBytes))

		if txErrors > 0 || rxErrors > 0 {
			b.Line(report.WARN, "%s errors: TX %d, RX %d", iface, txErrors, rxErrors)
		}

		switch {
		case status == "DOWN" && isPrimary:
			b.Line(report.CRIT, "Primary uplink %s is down", iface)
		case status == "DOWN":
			b.Line(report.WARN, "Backup uplink %s unavailable", iface)
		case status == "UP" && throughput == 0:
			b.Line(report.WARN, "Uplink %s has no traffic, may be idle", iface)
		}
	}

	switch {
	case up == 0:
		b.Line(report.CRIT, "All uplinks are down, no WAN connectivity")
	case primary != nil && str(primary, "status", "") != "UP":
		b.Line(report.WARN, "Primary uplink down, using backup path")
	case up == len(uplinksRaw):
		b.Line(report.OK, "All uplinks operational, full redundancy available")
	default:
		b.Line(report.WARN, "Partial connectivity, %d uplink(s) need attention", down)
	}

	if len(uplinksRaw) > 1 {
		if up >= 2 {
			b.Line(report.OK, "Multiple active paths, load balancing/failover ready")
		} else if up == 1 {
			b.Line(report.WARN, "Only one uplink active, no failover available")
		}
	}

	return b.Build()
}

// ListGatewayTunnelsHandler implements list_gateway_tunnels.
type ListGatewayTunnelsHandler struct {
	Client *apiclient.Client
}

func (h *ListGatewayTunnelsHandler) Name() string { return "list_gateway_tunnels" }
func (h *ListGatewayTunnelsHandler) Description() string {
	return "Lists VPN tunnels for a gateway cluster."
}

func (h *ListGatewayTunnelsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial_number": {"type": "string", "minLength": 5, "maxLength": 30},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100}
		},
		"required": ["serial_number"],
		"additionalProperties": false
	}`)
}

func (h *ListGatewayTunnelsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	clusterName, err := reqString(args, "serial_number")
	if err != nil {
		return "", err
	}

	params := map[string]any{"limit": optFloat(args, "limit", 100)}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/clusters/"+clusterName+"/tunnels", params, nil)
	if err != nil {
		return "", err
	}

	tunnels := items(data)
	totalTunnels := total(data)
	if totalTunnels == 0 {
		totalTunnels = len(tunnels)
	}

	byType := map[string]int{}

	var up, down int
	var downNames []string

	for _, t := range tunnels {
		status := str(t, "status", "UNKNOWN")
		byType[str(t, "type", "UNKNOWN")]++

		if status == "UP" {
			up++
		} else {
			down++
			downNames = append(downNames, str(t, "tunnelName", "Unknown"))
		}
	}

	b := report.New()
	b.Line(report.VPN, "VPN tunnels for %s: %d total, %d up, %d down", clusterName, totalTunnels, up, down)
	b.CheckTotal("up + down tunnels", float64(len(tunnels)), float64(up), float64(down))

	if len(byType) > 0 {
		b.ListSection(report.INFO, "Tunnel types", sortedCounts(byType))
		b.CheckTotal("Tunnel types", float64(len(tunnels)), countParts(byType)...)
	}

	if len(downNames) > 0 {
		b.ListSection(report.WARN, "Tunnels down", downNames)
	}

	for _, t := range tunnels {
		status := str(t, "status", "UNKNOWN")
		tunnelType := str(t, "type", "UNKNOWN")
		encryption := str(t, "encryption", "N/A")
		throughput := num(t, "throughputMbps")

		label := report.DN
		if status == "UP" {
			label = report.UP
		}

		b.Line(label, "%s: type %s, encryption %s, %s <-> %s, %.0f Mbps, TX %d pkts, RX %d pkts",
			str(t, "tunnelName", "Unknown"), tunnelType, encryption,
			str(t, "localEndpoint", "N/A"), str(t, "remoteEndpoint", "N/A"), throughput,
			intOf(t, "txPackets"), intOf(t, "rxPackets"))

		if status == "DOWN" {
			b.Line(report.CRIT, "Tunnel %s is down, connectivity lost", str(t, "tunnelName", "Unknown"))
		} else if throughput == 0 {
			b.Line(report.WARN, "Tunnel %s has no traffic, may be idle or broken", str(t, "tunnelName", "Unknown"))
		}

		if encryption == "DES" || encryption == "3DES" || encryption == "None" {
			b.Line(report.WARN, "Tunnel %s uses weak or no encryption, security risk", str(t, "tunnelName", "Unknown"))
		}
	}

	switch {
	case down == 0:
		b.Line(report.OK, "All tunnels operational")
	case down == totalTunnels:
		b.Line(report.CRIT, "All tunnels are down")
	default:
		b.Line(report.WARN, "%d/%d tunnels need attention", down, totalTunnels)
	}

	return b.Build()
}
