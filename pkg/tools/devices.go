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

var deviceTypeLabels = map[string]report.Label{
	"ACCESS_POINT": report.AP,
	"SWITCH":       report.SW,
	"GATEWAY":      report.GW,
}

var statusLabels = map[string]report.Label{
	"ONLINE":  report.UP,
	"OFFLINE": report.DN,
}

// ListDevicesHandler implements get_device_list.
type ListDevicesHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *ListDevicesHandler) Name() string { return "get_device_list" }
func (h *ListDevicesHandler) Description() string {
	return "Lists network devices (access points, switches, gateways) with filtering, sorting and pagination."
}

func (h *ListDevicesHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"filter": {"type": "string", "description": "OData v4.0 filter criteria"},
			"sort": {"type": "string", "description": "sort order, e.g. 'deviceName asc'"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100},
			"next": {"type": "string", "description": "pagination cursor"}
		},
		"additionalProperties": false
	}`)
}

func (h *ListDevicesHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := paginationParams(args)

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/devices", params, nil)
	if err != nil {
		return "", err
	}

	devices := items(data)

	byType := map[string]int{}
	byStatus := map[string]int{}
	byDeployment := map[string]int{}

	for _, d := range devices {
		byType[str(d, "deviceType", "UNKNOWN")]++
		byStatus[str(d, "status", "UNKNOWN")]++
		byDeployment[str(d, "deployment", "UNKNOWN")]++
	}

	b := report.New()
	b.Line(report.INFO, "Device inventory: %d total, %d in this page", total(data), len(devices))

	typeLines := make([]string, 0, len(byType))
	for dtype, count := range byType {
		label, ok := deviceTypeLabels[dtype]
		if !ok {
			label = report.INFO
		}

		typeLines = append(typeLines, string(label)+" "+dtype+": "+strconv.Itoa(count))
	}

	b.ListSection(report.DEV, "By device type", sortedStrings(typeLines))
	b.ListSection(report.STATS, "By status", statusLines(byStatus))
	b.ListSection(report.STATS, "By deployment", sortedCounts(byDeployment))

	b.CheckTotal("By device type", float64(len(devices)), countParts(byType)...)
	b.CheckTotal("By status", float64(len(devices)), countParts(byStatus)...)
	b.CheckTotal("By deployment", float64(len(devices)), countParts(byDeployment)...)

	if next, ok := nextCursor(data); ok {
		b.Line(report.INFO, "More results available, pass next=%q to continue", next)
	}

	b.FactInt("Total devices", total(data))
	b.FactInt("Devices in this page", len(devices))

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Total devices": strconv.Itoa(total(data)),
	})

	return out, nil
}

func statusLines(byStatus map[string]int) []string {
	keys := make([]string, 0, len(byStatus))
	for k := range byStatus {
		keys = append(keys, k)
	}

	out := make([]string, 0, len(keys))
	for _, k := range sortedStrings(keys) {
		label, ok := statusLabels[k]
		if !ok {
			label = report.INFO
		}

		out = append(out, string(label)+" "+k+": "+strconv.Itoa(byStatus[k]))
	}

	return out
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)

	return out
}

// GetDeviceInventoryHandler implements get_device_inventory.
type GetDeviceInventoryHandler struct {
	Client *apiclient.Client
}

func (h *GetDeviceInventoryHandler) Name() string { return "get_device_inventory" }
func (h *GetDeviceInventoryHandler) Description() string {
	return "Retrieves the tenant-wide device inventory roll-up, independent of per-site pagination."
}

func (h *GetDeviceInventoryHandler) InputSchemaJSON() []byte {
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

func (h *GetDeviceInventoryHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := paginationParams(args)

	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/device-inventory", params, nil)
	if err != nil {
		return "", err
	}

	devices := items(data)

	b := report.New()
	b.Line(report.INFO, "Device inventory: %d total, %d in this page", total(data), len(devices))

	byModel := map[string]int{}
	for _, d := range devices {
		byModel[str(d, "model", "Unknown")]++
	}

	b.ListSection(report.DEV, "By model", sortedCounts(byModel))
	b.CheckTotal("By model", float64(len(devices)), countParts(byModel)...)

	if next, ok := nextCursor(data); ok {
		b.Line(report.INFO, "More results available, pass next=%q to continue", next)
	}

	return b.Build()
}

// GetTenantDeviceHealthHandler implements get_tenant_device_health.
type GetTenantDeviceHealthHandler struct {
	Client *apiclient.Client
}

func (h *GetTenantDeviceHealthHandler) Name() string { return "get_tenant_device_health" }
func (h *GetTenantDeviceHealthHandler) Description() string {
	return "Retrieves the tenant-wide device health roll-up (no parameters)."
}

func (h *GetTenantDeviceHealthHandler) InputSchemaJSON() []byte {
	return []byte(`{"type": "object", "additionalProperties": false}`)
}

func (h *GetTenantDeviceHealthHandler) Execute(ctx context.Context, _ map[string]any) (string, error) {
	data, err := h.Client.Call(ctx, "GET", "/network-monitoring/v1alpha1/tenant-device-health", nil, nil)
	if err != nil {
		return "", err
	}

	b := report.New()
	b.Line(report.HEALTH, "Healthy: %d", intOf(data, "healthyCount"))
	b.Line(report.WARN, "At risk: %d", intOf(data, "atRiskCount"))
	b.Line(report.CRIT, "Critical: %d", intOf(data, "criticalCount"))

	return b.Build()
}
