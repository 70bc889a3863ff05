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

// assumedPoEBudgetWatts is the nominal PoE power budget assumed for a switch
// when the vendor response does not carry one, used to derive a percentage
// for the PoE health warning.
const assumedPoEBudgetWatts = 370.0

// GetSwitchDetailsHandler implements get_switch_details.
type GetSwitchDetailsHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetSwitchDetailsHandler) Name() string { return "get_switch_details" }
func (h *GetSwitchDetailsHandler) Description() string {
	return "Returns health, firmware, and port-count detail for a single switch."
}

func (h *GetSwitchDetailsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 1}
		},
		"required": ["serial"],
		"additionalProperties": false
	}`)
}

func (h *GetSwitchDetailsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/switch/"+serial, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("switch %s not found", serial), nil)
		}

		return "", err
	}

	name := str(data, "deviceName", serial)
	model := str(data, "model", "Unknown")
	status := str(data, "status", "UNKNOWN")
	firmware := str(data, "firmwareVersion", "Unknown")
	uptime := intOf(data, "uptime")
	cpu := num(data, "cpuUtilization")
	mem := num(data, "memoryUtilization")
	ports := intOf(data, "totalPorts")
	stackMember := data["stackMember"] == true
	site := str(data, "siteName", "Unknown")

	statusLabel := report.DN
	if status == "ONLINE" {
		statusLabel = report.UP
	}

	b := report.New()
	b.Line(report.SW, "%s (%s), serial %s, site %s", name, model, serial, site)
	b.Line(statusLabel, "Status: %s, up %s", status, report.Uptime(int64(uptime)))
	b.Line(report.INFO, "Firmware %s, %d total ports", firmware, ports)
	b.Line(report.STATS, "CPU %.0f%%, memory %.0f%%", cpu, mem)

	if stackMember {
		b.Line(report.INFO, "This switch is a member of a stack")
	}

	switch {
	case cpu >= 90:
		b.Line(report.CRIT, "CPU usage at %.0f%%, severely overloaded", cpu)
	case cpu >= 80:
		b.Line(report.WARN, "CPU usage at %.0f%%, under heavy load", cpu)
	default:
		b.Line(report.OK, "CPU utilization is normal")
	}

	switch {
	case mem >= 90:
		b.Line(report.CRIT, "Memory usage at %.0f%%, severely constrained", mem)
	case mem >= 80:
		b.Line(report.WARN, "Memory usage at %.0f%%, monitor closely", mem)
	}

	b.Fact("Switch", name)
	b.Fact("Status", status)
	b.Fact("CPU", fmt.Sprintf("%.0f%%", cpu))
	b.Fact("Memory", fmt.Sprintf("%.0f%%", mem))

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Switch": name,
		"Status": status,
		"CPU":    fmt.Sprintf("%.0f%%", cpu),
		"Memory": fmt.Sprintf("%.0f%%", mem),
	})

	return out, nil
}

// GetSwitchInterfacesHandler implements get_switch_interfaces.
type GetSwitchInterfacesHandler struct {
	Client *apiclient.Client
}

func (h *GetSwitchInterfacesHandler) Name() string { return "get_switch_interfaces" }
func (h *GetSwitchInterfacesHandler) Description() string {
	return "Lists a switch's interfaces with link, PoE, and error-port status."
}

func (h *GetSwitchInterfacesHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 1},
			"status_filter": {"type": "string", "enum": ["ALL", "UP", "DOWN"], "default": "ALL"}
		},
		"required": ["serial"],
		"additionalProperties": false
	}`)
}

func (h *GetSwitchInterfacesHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	statusFilter := "ALL"
	if v, ok := optString(args, "status_filter"); ok {
		statusFilter = v
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/switch/"+serial+"/interfaces", nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("switch %s not found", serial), nil)
		}

		return "", err
	}

	interfaces := itemsOfKey(data, "interfaces")

	var up, down, poeEnabled, trunk, access, errorPorts int
	var poeDrawWatts float64

	lines := make([]string, 0, len(interfaces))

	for _, iface := range interfaces {
		status := str(iface, "status", "UNKNOWN")
		if statusFilter != "ALL" && status != statusFilter {
			continue
		}

		name := str(iface, "portName", "?")
		mode := str(iface, "mode", "ACCESS")
		crc := intOf(iface, "crcErrors")
		collisions := intOf(iface, "collisions")
		poe := iface["poeEnabled"] == true
		poeDraw := num(iface, "poeDrawWatts")

		switch status {
		case "UP":
			up++
		default:
			down++
		}

		if mode == "TRUNK" {
			trunk++
		} else {
			access++
		}

		if poe {
			poeEnabled++
			poeDrawWatts += poeDraw
		}

		hasErrors := crc > 0 || collisions > 0
		if hasErrors {
			errorPorts++
		}

		statusLabel := "[DN]"
		if status == "UP" {
			statusLabel = "[UP]"
		}

		line := fmt.Sprintf("%s %s (%s): %s", statusLabel, name, mode, status)
		if poe {
			line += fmt.Sprintf(", PoE %.1fW", poeDraw)
		}

		if hasErrors {
			line += fmt.Sprintf(", CRC %d, collisions %d", crc, collisions)
		}

		lines = append(lines, line)
	}

	b := report.New()
	b.Line(report.SW, "Switch %s interfaces: %d total, %d UP, %d DOWN", serial, len(interfaces), up, down)
	b.Line(report.STATS, "%d trunk, %d access, %d PoE-enabled, %d with errors", trunk, access, poeEnabled, errorPorts)

	poePercent := 0.0
	if poeEnabled > 0 {
		poePercent = poeDrawWatts / assumedPoEBudgetWatts * 100
	}

	if poeEnabled > 0 {
		switch {
		case poePercent >= 90:
			b.Line(report.CRIT, "PoE draw at %.0fW (%.0f%% of assumed %.0fW budget), near capacity", poeDrawWatts, poePercent, assumedPoEBudgetWatts)
		case poePercent >= 75:
			b.Line(report.WARN, "PoE draw at %.0fW (%.0f%% of assumed %.0fW budget)", poeDrawWatts, poePercent, assumedPoEBudgetWatts)
		default:
			b.Line(report.OK, "PoE draw at %.0fW (%.0f%% of assumed %.0fW budget)", poeDrawWatts, poePercent, assumedPoEBudgetWatts)
		}
	}

	if errorPorts > 0 {
		b.Line(report.WARN, "%d port(s) reporting CRC errors or collisions", errorPorts)
	}

	display := lines
	if len(display) > 20 {
		display = display[:20]
	}

	b.ListSection(report.NET, fmt.Sprintf("Interfaces (showing %d of %d)", len(display), len(lines)), display)

	if len(lines) > 20 {
		b.Line(report.INFO, "... and %d more", len(lines)-20)
	}

	return b.Build()
}

// GetStackMembersHandler implements get_stack_members.
type GetStackMembersHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetStackMembersHandler) Name() string { return "get_stack_members" }
func (h *GetStackMembersHandler) Description() string {
	return "Returns switch stack topology, member roles, and version consistency."
}

func (h *GetStackMembersHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"stack_id": {"type": "string", "minLength": 1}
		},
		"required": ["stack_id"],
		"additionalProperties": false
	}`)
}

func (h *GetStackMembersHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	stackID, err := reqString(args, "stack_id")
	if err != nil {
		return "", err
	}

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/stack/"+stackID+"/members", nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("stack %s not found", stackID), nil)
		}

		return "", err
	}

	members := itemsOfKey(data, "members")
	stackName := str(data, "stackName", stackID)
	stackStatus := str(data, "stackStatus", "UNKNOWN")

	if len(members) == 0 {
		b := report.New()
		b.Line(report.INFO, "Stack %q has no members (empty stack)", stackName)
		return b.Build()
	}

	var commander, standby map[string]any
	var regular []map[string]any
	var up, down int
	versions := map[string]bool{}

	for _, m := range members {
		role := str(m, "role", "UNKNOWN")
		status := str(m, "status", "UNKNOWN")

		if status == "UP" {
			up++
		} else {
			down++
		}

		versions[str(m, "swVersion", "N/A")] = true

		switch role {
		case "COMMANDER":
			commander = m
		case "STANDBY":
			standby = m
		default:
			regular = append(regular, m)
		}
	}

	b := report.New()
	b.Line(report.INFO, "Stack %s, status %s", stackName, stackStatus)
	b.Line(report.STATS, "Members: %d total (%d UP, %d DOWN)", len(members), up, down)

	if commander != nil {
		b.Line(report.INFO, "Commander: pos %s, %s (%s), serial %s, firmware %s, %s",
			str(commander, "stackPosition", "N/A"), str(commander, "deviceName", "N/A"),
			str(commander, "model", "N/A"), str(commander, "serialNumber", "N/A"),
			str(commander, "swVersion", "N/A"), str(commander, "status", "N/A"))
	}

	if standby != nil {
		b.Line(report.INFO, "Standby: pos %s, %s (%s), serial %s, firmware %s, %s",
			str(standby, "stackPosition", "N/A"), str(standby, "deviceName", "N/A"),
			str(standby, "model", "N/A"), str(standby, "serialNumber", "N/A"),
			str(standby, "swVersion", "N/A"), str(standby, "status", "N/A"))
	}

	if len(regular) > 0 {
		lines := make([]string, 0, len(regular))
		for _, m := range regular {
			statusLabel := "[DN]"
			if str(m, "status", "") == "UP" {
				statusLabel = "[UP]"
			}

			lines = append(lines, fmt.Sprintf("%s Pos %s: %s (%s) - %s", statusLabel,
				str(m, "stackPosition", "?"), str(m, "deviceName", "Unknown"),
				str(m, "model", "N/A"), str(m, "status", "UNKNOWN")))
		}

		b.ListSection(report.DEV, fmt.Sprintf("Members (%d)", len(regular)), lines)
	}

	if down == 0 {
		b.Line(report.OK, "All members operational")
	} else {
		b.Line(report.WARN, "%d member(s) DOWN, degraded stack", down)
	}

	if commander == nil {
		b.Line(report.CRIT, "No commander detected, stack election issue")
	}

	if standby == nil && len(members) > 1 {
		b.Line(report.WARN, "No standby configured, no redundancy")
	}

	if len(versions) > 1 {
		verList := make([]string, 0, len(versions))
		for v := range versions {
			verList = append(verList, v)
		}

		b.Line(report.WARN, "Mixed software versions detected, recommend upgrade: %s", strings.Join(verList, ", "))
	} else {
		b.Line(report.OK, "Consistent software version across stack")
	}

	b.Fact("Stack", stackName)
	b.FactInt("Total members", len(members))
	b.FactInt("Members UP", up)
	b.FactInt("Members DOWN", down)

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Stack":         stackName,
		"Total members": strconv.Itoa(len(members)),
		"Members UP":    strconv.Itoa(up),
		"Members DOWN":  strconv.Itoa(down),
	})

	return out, nil
}
