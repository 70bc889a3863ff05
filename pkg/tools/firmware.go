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

// GetFirmwareDetailsHandler implements get_firmware_details.
type GetFirmwareDetailsHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetFirmwareDetailsHandler) Name() string { return "get_firmware_details" }
func (h *GetFirmwareDetailsHandler) Description() string {
	return "Reports firmware version and upgrade-compliance status across the fleet."
}

func (h *GetFirmwareDetailsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"filter": {"type": "string"},
			"sort": {"type": "string"},
			"search": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 100},
			"next": {"type": "string"}
		},
		"additionalProperties": false
	}`)
}

func (h *GetFirmwareDetailsHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	params := paginationParams(args)

	if v, ok := optString(args, "search"); ok {
		params["search"] = v
	}

	data, err := h.Client.Call(ctx, "GET", "/network-services/v1alpha1/firmware-details", params, nil)
	if err != nil {
		return "", err
	}

	devices := items(data)
	totalDevices := total(data)
	if totalDevices == 0 {
		totalDevices = len(devices)
	}

	byUpgradeStatus := map[string]int{"Up To Date": 0, "Update Available": 0, "Update Required": 0, "Unknown": 0}
	byClassification := map[string]int{}
	byDeviceType := map[string]int{}

	type pendingDevice struct {
		name, serial, current, recommended, status, classification string
	}

	var pending []pendingDevice

	for _, d := range devices {
		status := str(d, "upgradeStatus", "Unknown")
		if _, known := byUpgradeStatus[status]; known {
			byUpgradeStatus[status]++
		} else {
			byUpgradeStatus["Unknown"]++
		}

		classification := str(d, "firmwareClassification", "Unknown")
		byClassification[classification]++

		deviceType := str(d, "deviceType", "Unknown")
		byDeviceType[deviceType]++

		if status == "Update Available" || status == "Update Required" {
			pending = append(pending, pendingDevice{
				name:           str(d, "deviceName", "Unknown"),
				serial:         str(d, "serialNumber", "N/A"),
				current:        str(d, "softwareVersion", "Unknown"),
				recommended:    str(d, "recommendedVersion", "N/A"),
				status:         status,
				classification: classification,
			})
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if (pending[i].status == "Update Required") != (pending[j].status == "Update Required") {
			return pending[i].status == "Update Required"
		}

		return pending[i].name < pending[j].name
	})

	b := report.New()
	b.Line(report.STATS, "Firmware status: %d devices analyzed", totalDevices)

	statusOrder := []string{"Up To Date", "Update Available", "Update Required", "Unknown"}

	statusLines := make([]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		count := byUpgradeStatus[status]
		if count == 0 {
			continue
		}

		pct := 0.0
		if totalDevices > 0 {
			pct = float64(count) / float64(totalDevices) * 100
		}

		statusLines = append(statusLines, formatCount(status, count, pct))
	}

	b.ListSection(report.INFO, "By upgrade status", statusLines)

	if len(byDeviceType) > 0 {
		b.ListSection(report.DEV, "By device type", sortedCounts(byDeviceType))
	}

	if len(byClassification) > 0 {
		b.ListSection(report.SEC, "By classification", sortedCounts(byClassification))
	}

	if len(pending) > 0 {
		limit := len(pending)
		if limit > 10 {
			limit = 10
		}

		lines := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			p := pending[i]
			lines = append(lines, p.name+" ("+p.serial+"): "+p.current+" -> "+p.recommended+" ["+p.status+"]")
		}

		b.ListSection(report.WARN, "Devices needing updates", lines)

		if len(pending) > 10 {
			b.Line(report.INFO, "... and %d more devices", len(pending)-10)
		}
	}

	if next, ok := nextCursor(data); ok {
		b.Line(report.INFO, "More results available, pass next=%q to continue", next)
	}

	b.FactInt("Total devices", totalDevices)
	b.FactInt("Up to date", byUpgradeStatus["Up To Date"])
	b.FactInt("Update available", byUpgradeStatus["Update Available"])
	b.FactInt("Update required", byUpgradeStatus["Update Required"])

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Total devices":     strconv.Itoa(totalDevices),
		"Up to date":        strconv.Itoa(byUpgradeStatus["Up To Date"]),
		"Update available":  strconv.Itoa(byUpgradeStatus["Update Available"]),
		"Update required":   strconv.Itoa(byUpgradeStatus["Update Required"]),
	})

	return out, nil
}

func formatCount(label string, count int, pct float64) string {
	return label + ": " + strconv.Itoa(count) + " devices (" + report.Percent(pct) + ")"
}
