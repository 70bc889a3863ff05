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

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

var severityOrder = []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"}

// ListIDPSThreatsHandler implements list_idps_threats.
type ListIDPSThreatsHandler struct {
	Client *apiclient.Client
}

func (h *ListIDPSThreatsHandler) Name() string { return "list_idps_threats" }
func (h *ListIDPSThreatsHandler) Description() string {
	return "Lists intrusion-detection threat events with severity, type, and mitigation breakdown."
}

func (h *ListIDPSThreatsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"severity": {"type": "string", "enum": ["CRITICAL", "HIGH", "MEDIUM", "LOW"]},
			"gateway_serial": {"type": "string"},
			"start_time": {"type": "string"},
			"end_time": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100}
		},
		"additionalProperties": false
	}`)
}

func (h *ListIDPSThreatsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := map[string]any{"limit": optFloat(args, "limit", 100)}

	if v, ok := optString(args, "site_id"); ok {
		params["site-id"] = v
	}

	if v, ok := optString(args, "severity"); ok {
		params["severity"] = v
	}

	if v, ok := optString(args, "gateway_serial"); ok {
		params["gatewaySerial"] = v
	}

	if v, ok := optString(args, "start_time"); ok {
		params["startTime"] = v
	}

	if v, ok := optString(args, "end_time"); ok {
		params["endTime"] = v
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/threats", params, nil)
	if err != nil {
		return "", err
	}

	threats := items(data)
	totalThreats := total(data)
	if totalThreats == 0 {
		totalThreats = len(threats)
	}

	if len(threats) == 0 {
		b := report.New()
		b.Line(report.OK, "No security threats detected in the specified time period")
		return b.Build()
	}

	bySeverity := map[string]int{}
	byType := map[string]int{}
	byAction := map[string]int{}

	var recent []map[string]any

	for _, t := range threats {
		severity := str(t, "severity", "UNKNOWN")
		bySeverity[severity]++
		byType[str(t, "threatType", "UNKNOWN")]++
		byAction[str(t, "action", "UNKNOWN")]++

		if severity == "CRITICAL" || severity == "HIGH" {
			recent = append(recent, t)
		}
	}

	b := report.New()
	b.Line(report.SEC, "Security threats: %d total, %d in this page", totalThreats, len(threats))

	sevLines := make([]string, 0, len(severityOrder))
	for _, sev := range severityOrder {
		if count := bySeverity[sev]; count > 0 {
			sevLines = append(sevLines, sev+": "+strconv.Itoa(count))
		}
	}

	b.ListSection(report.STATS, "By severity", sevLines)
	b.CheckTotal("By severity", float64(len(threats)), countParts(bySeverity)...)

	typeKeys := topNByCount(byType, 5)
	typeLines := make([]string, 0, len(typeKeys))
	for _, k := range typeKeys {
		typeLines = append(typeLines, k+": "+strconv.Itoa(byType[k]))
	}

	b.ListSection(report.INFO, "Top threat types", typeLines)
	b.ListSection(report.INFO, "Mitigation actions", sortedCounts(byAction))
	b.CheckTotal("Threat types", float64(len(threats)), countParts(byType)...)
	b.CheckTotal("Mitigation actions", float64(len(threats)), countParts(byAction)...)

	if len(recent) > 0 {
		limit := len(recent)
		if limit > 5 {
			limit = 5
		}

		lines := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			t := recent[i]
			lines = append(lines, str(t, "threatName", "Unknown")+" ("+str(t, "severity", "UNKNOWN")+"): "+
				str(t, "sourceIp", "N/A")+" -> "+str(t, "destinationIp", "N/A")+
				", action "+str(t, "action", "N/A")+" at "+str(t, "timestamp", "N/A"))
		}

		b.ListSection(report.CRIT, "Recent critical/high threats", lines)
	}

	critical := bySeverity["CRITICAL"]
	high := bySeverity["HIGH"]
	blocked := byAction["BLOCKED"]

	if critical > 0 {
		b.Line(report.CRIT, "%d critical threats require immediate attention", critical)
	}

	if high > 5 {
		b.Line(report.WARN, "%d high-severity threats detected", high)
	}

	if totalThreats > 0 {
		blockRate := float64(blocked) / float64(totalThreats) * 100

		switch {
		case blockRate > 90:
			b.Line(report.OK, "Excellent threat mitigation, %s blocked", report.Percent(blockRate))
		case blockRate > 70:
			b.Line(report.OK, "Good threat mitigation, %s blocked", report.Percent(blockRate))
		default:
			b.Line(report.WARN, "Review mitigation policies, only %s blocked", report.Percent(blockRate))
		}
	}

	return b.Build()
}

// GetFirewallSessionsHandler implements get_firewall_sessions.
type GetFirewallSessionsHandler struct {
	Client *apiclient.Client
}

func (h *GetFirewallSessionsHandler) Name() string { return "get_firewall_sessions" }
func (h *GetFirewallSessionsHandler) Description() string {
	return "Reports a site's active firewall sessions with blocked-traffic and top-talker analysis."
}

func (h *GetFirewallSessionsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"site_id": {"type": "string"},
			"status": {"type": "string", "enum": ["ACTIVE", "CLOSED", "BLOCKED"]},
			"protocol": {"type": "string", "enum": ["TCP", "UDP", "ICMP"]},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100}
		},
		"additionalProperties": false
	}`)
}

func (h *GetFirewallSessionsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := map[string]any{"limit": optFloat(args, "limit", 100)}

	if v, ok := optString(args, "site_id"); ok {
		params["siteId"] = v
	}

	if v, ok := optString(args, "status"); ok {
		params["status"] = v
	}

	if v, ok := optString(args, "protocol"); ok {
		params["protocol"] = v
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/site-firewall-sessions", params, nil)
	if err != nil {
		return "", err
	}

	sessions := items(data)
	totalSessions := total(data)
	if totalSessions == 0 {
		totalSessions = len(sessions)
	}

	if len(sessions) == 0 {
		b := report.New()
		b.Line(report.INFO, "No firewall sessions found matching the specified criteria")
		return b.Build()
	}

	byStatus := map[string]int{}
	byProtocol := map[string]int{}
	byRule := map[string]int{}
	topTalkers := map[string]int{}

	var blocked []map[string]any

	for _, s := range sessions {
		status := str(s, "status", "UNKNOWN")
		byStatus[status]++
		byProtocol[str(s, "protocol", "UNKNOWN")]++
		byRule[str(s, "ruleName", "UNKNOWN")]++
		topTalkers[str(s, "sourceIp", "N/A")]++

		if status == "BLOCKED" {
			blocked = append(blocked, s)
		}
	}

	b := report.New()
	b.Line(report.VPN, "Firewall sessions: %d total, %d in this page", totalSessions, len(sessions))
	b.ListSection(report.STATS, "By status", sortedCounts(byStatus))
	b.CheckTotal("By status", float64(len(sessions)), countParts(byStatus)...)

	protoKeys := topNByCount(byProtocol, len(byProtocol))
	protoLines := make([]string, 0, len(protoKeys))
	for _, k := range protoKeys {
		protoLines = append(protoLines, k+": "+strconv.Itoa(byProtocol[k]))
	}

	b.ListSection(report.NET, "By protocol", protoLines)
	b.CheckTotal("By protocol", float64(len(sessions)), countParts(byProtocol)...)

	ruleKeys := topNByCount(byRule, 5)
	ruleLines := make([]string, 0, len(ruleKeys))
	for _, k := range ruleKeys {
		ruleLines = append(ruleLines, k+": "+strconv.Itoa(byRule[k])+" sessions")
	}

	b.ListSection(report.INFO, "Top firewall rules", ruleLines)

	if len(blocked) > 0 {
		limit := len(blocked)
		if limit > 5 {
			limit = 5
		}

		lines := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			s := blocked[i]
			lines = append(lines, str(s, "sourceIp", "N/A")+":"+str(s, "sourcePort", "N/A")+" -> "+
				str(s, "destinationIp", "N/A")+":"+str(s, "destinationPort", "N/A")+" ("+str(s, "protocol", "N/A")+
				"), rule "+str(s, "ruleName", "N/A")+", app "+str(s, "application", "Unknown"))
		}

		b.ListSection(report.WARN, "Blocked traffic", lines)
	}

	talkerKeys := topNByCount(topTalkers, 5)
	talkerLines := make([]string, 0, len(talkerKeys))
	for _, k := range talkerKeys {
		talkerLines = append(talkerLines, k+": "+strconv.Itoa(topTalkers[k])+" sessions")
	}

	b.ListSection(report.INFO, "Top source IPs", talkerLines)

	blockedCount := byStatus["BLOCKED"]
	activeCount := byStatus["ACTIVE"]

	if blockedCount > 0 && totalSessions > 0 {
		blockRate := float64(blockedCount) / float64(totalSessions) * 100

		switch {
		case blockRate > 50:
			b.Line(report.WARN, "High block rate (%s), review firewall rules", report.Percent(blockRate))
		case blockRate > 20:
			b.Line(report.OK, "Moderate blocking (%s), normal activity", report.Percent(blockRate))
		default:
			b.Line(report.OK, "Low block rate (%s), mostly allowed traffic", report.Percent(blockRate))
		}
	}

	if activeCount > 100 {
		b.Line(report.INFO, "High session count, busy network traffic")
	}

	return b.Build()
}

// topNByCount returns the n keys of counts with the highest values, stable on
// insertion order for ties.
func topNByCount(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return counts[keys[i]] > counts[keys[j]]
	})

	if n < len(keys) {
		keys = keys[:n]
	}

	return keys
}

