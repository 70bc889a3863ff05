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

	"github.com/aruba-noc/mcp-gateway/pkg/apiclient"
	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/report"
)

// PingFromAPHandler implements ping_from_ap.
type PingFromAPHandler struct {
	Client *apiclient.Client
}

func (h *PingFromAPHandler) Name() string { return "ping_from_ap" }
func (h *PingFromAPHandler) Description() string {
	return "Starts an asynchronous ping test from an access point, returning a task ID to poll."
}

func (h *PingFromAPHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 5},
			"target": {"type": "string", "minLength": 1},
			"count": {"type": "integer", "minimum": 1, "maximum": 10, "default": 5},
			"packet_size": {"type": "integer", "minimum": 1, "maximum": 1500, "default": 64}
		},
		"required": ["serial", "target"],
		"additionalProperties": false
	}`)
}

func (h *PingFromAPHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	target, err := reqString(args, "target")
	if err != nil {
		return "", err
	}

	count := optInt(args, "count", 5)
	packetSize := optInt(args, "packet_size", 64)

	body := map[string]any{
		"target":     target,
		"count":      count,
		"packetSize": packetSize,
	}

	data, err := h.Client.Call(ctx, "POST", "/network-troubleshooting/v1alpha1/aps/"+serial+"/ping", nil, body)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("AP with serial %q not found", serial), nil)
		}

		return "", err
	}

	taskID := str(data, "taskId", "Unknown")
	status := str(data, "status", "UNKNOWN")
	apName := str(data, "apName", serial)

	b := report.New()
	b.Line(report.ASYNC, "Ping test initiated from %s (%s) to %s", apName, serial, target)
	b.Line(report.DATA, "Packets: %d x %d bytes", count, packetSize)
	b.Line(report.ASYNC, "Status: %s, task ID %s", status, taskID)
	b.Line(report.INFO, "Poll for results with get_async_test_result(task_id=%q)", taskID)

	return b.Build()
}

// PingFromGatewayHandler implements ping_from_gateway.
type PingFromGatewayHandler struct {
	Client *apiclient.Client
}

func (h *PingFromGatewayHandler) Name() string { return "ping_from_gateway" }
func (h *PingFromGatewayHandler) Description() string {
	return "Starts an asynchronous ping test from a gateway, returning a task ID to poll."
}

func (h *PingFromGatewayHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 5},
			"target": {"type": "string", "minLength": 1},
			"count": {"type": "integer", "minimum": 1, "maximum": 10, "default": 5},
			"source_interface": {"type": "string"}
		},
		"required": ["serial", "target"],
		"additionalProperties": false
	}`)
}

func (h *PingFromGatewayHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	target, err := reqString(args, "target")
	if err != nil {
		return "", err
	}

	count := optInt(args, "count", 5)

	body := map[string]any{
		"target": target,
		"count":  count,
	}

	if v, ok := optString(args, "source_interface"); ok {
		body["sourceInterface"] = v
	}

	data, err := h.Client.Call(ctx, "POST", "/network-troubleshooting/v1alpha1/gateways/"+serial+"/ping", nil, body)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("gateway with serial %q not found", serial), nil)
		}

		return "", err
	}

	taskID := str(data, "taskId", "Unknown")
	status := str(data, "status", "UNKNOWN")
	gatewayName := str(data, "gatewayName", serial)
	sourceInterface := str(data, "sourceInterface", "Primary uplink")

	b := report.New()
	b.Line(report.ASYNC, "Ping test initiated from %s (%s) via %s to %s", gatewayName, serial, sourceInterface, target)
	b.Line(report.DATA, "Packets: %d", count)
	b.Line(report.ASYNC, "Status: %s, task ID %s", status, taskID)
	b.Line(report.INFO, "Poll for results with get_async_test_result(task_id=%q)", taskID)

	return b.Build()
}

// TracerouteFromAPHandler implements traceroute_from_ap.
type TracerouteFromAPHandler struct {
	Client *apiclient.Client
}

func (h *TracerouteFromAPHandler) Name() string { return "traceroute_from_ap" }
func (h *TracerouteFromAPHandler) Description() string {
	return "Starts an asynchronous traceroute test from an access point, returning a task ID to poll."
}

func (h *TracerouteFromAPHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"serial": {"type": "string", "minLength": 5},
			"target": {"type": "string", "minLength": 1},
			"max_hops": {"type": "integer", "minimum": 1, "maximum": 64, "default": 30}
		},
		"required": ["serial", "target"],
		"additionalProperties": false
	}`)
}

func (h *TracerouteFromAPHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	serial, err := reqString(args, "serial")
	if err != nil {
		return "", err
	}

	target, err := reqString(args, "target")
	if err != nil {
		return "", err
	}

	maxHops := optInt(args, "max_hops", 30)

	body := map[string]any{
		"target":  target,
		"maxHops": maxHops,
	}

	data, err := h.Client.Call(ctx, "POST", "/network-troubleshooting/v1alpha1/aps/"+serial+"/traceroute", nil, body)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("AP with serial %q not found", serial), nil)
		}

		return "", err
	}

	taskID := str(data, "taskId", "Unknown")
	status := str(data, "status", "UNKNOWN")
	apName := str(data, "apName", serial)

	b := report.New()
	b.Line(report.ASYNC, "Traceroute test initiated from %s (%s) to %s, max %d hops", apName, serial, target, maxHops)
	b.Line(report.ASYNC, "Status: %s, task ID %s", status, taskID)
	b.Line(report.INFO, "Poll for results with get_async_test_result(task_id=%q)", taskID)
	b.Line(report.INFO, "Traceroute may take 30-60 seconds to complete depending on path length")

	return b.Build()
}

// GetAsyncTestResultHandler implements get_async_test_result.
type GetAsyncTestResultHandler struct {
	Client *apiclient.Client
	Facts  *FactStore
}

func (h *GetAsyncTestResultHandler) Name() string { return "get_async_test_result" }
func (h *GetAsyncTestResultHandler) Description() string {
	return "Polls an asynchronous ping or traceroute test for its current status or final result."
}

func (h *GetAsyncTestResultHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"task_id": {"type": "string", "minLength": 1}
		},
		"required": ["task_id"],
		"additionalProperties": false
	}`)
}

func (h *GetAsyncTestResultHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	taskID, err := reqString(args, "task_id")
	if err != nil {
		return "", err
	}

	data, err := h.Client.Call(ctx, "GET", "/network-troubleshooting/v1alpha1/async-operations/"+taskID, nil, nil)
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Status == 404 {
			return "", gatewayerr.UpstreamClient(404, fmt.Sprintf("task %q not found or expired", taskID), nil)
		}

		return "", err
	}

	status := str(data, "status", "UNKNOWN")
	testType := str(data, "testType", "Unknown")
	deviceName := str(data, "deviceName", "Unknown")
	target := str(data, "target", "N/A")

	b := report.New()

	switch status {
	case "IN_PROGRESS":
		progress := num(data, "progressPercent")
		eta := str(data, "estimatedCompletionTime", "Unknown")

		b.Line(report.ASYNC, "%s test in progress from %s to %s", testType, deviceName, target)
		b.Line(report.STATS, "Progress %.0f%%, ETA %s", progress, eta)
		b.Line(report.INFO, "Poll again in a few seconds to check for completion")

	case "COMPLETED":
		results, _ := data["results"].(map[string]any)

		switch testType {
		case "PING":
			sent := intOf(results, "packetsSent")
			received := intOf(results, "packetsReceived")
			loss := num(results, "packetLossPercent")
			minLat := num(results, "minLatencyMs")
			avgLat := num(results, "avgLatencyMs")
			maxLat := num(results, "maxLatencyMs")

			b.Line(report.OK, "Ping test complete from %s to %s", deviceName, target)
			b.Line(report.DATA, "Sent %d packets, received %d, loss %.1f%%", sent, received, loss)
			b.Line(report.STATS, "Latency min %.0fms, avg %.0fms, max %.0fms", minLat, avgLat, maxLat)

			switch {
			case loss == 0 && avgLat < 50:
				b.Line(report.OK, "Excellent connectivity, no loss, low latency")
			case loss < 5 && avgLat < 100:
				b.Line(report.OK, "Good connectivity, minor latency")
			case loss < 20:
				b.Line(report.WARN, "Degraded connectivity, packet loss detected")
			default:
				b.Line(report.CRIT, "Poor connectivity, high loss or unreachable")
			}

		case "TRACEROUTE":
			hops, _ := results["hops"].([]any)

			b.Line(report.OK, "Traceroute complete from %s to %s", deviceName, target)

			lines := make([]string, 0, len(hops))
			for _, v := range hops {
				hop, _ := v.(map[string]any)
				line := fmt.Sprintf("%d. %s", intOf(hop, "hop"), str(hop, "ip", "*.*.*.*"))

				if name := str(hop, "hostname", ""); name != "" {
					line += fmt.Sprintf(" (%s)", name)
				}

				if lat, ok := hop["latency"]; ok {
					if f, isNum := lat.(float64); isNum {
						line += fmt.Sprintf(" - %.0fms", f)
					}
				}

				lines = append(lines, line)
			}

			b.ListSection(report.NET, fmt.Sprintf("Path (%d hops)", len(hops)), lines)

		default:
			b.Line(report.OK, "%s test complete from %s to %s", testType, deviceName, target)
		}

	case "FAILED":
		b.Line(report.ERR, "%s test failed from %s to %s: %s", testType, deviceName, target, str(data, "errorMessage", "Unknown error"))

	default:
		b.Line(report.INFO, "Unknown status %q for task %s", status, taskID)
	}

	b.Fact("Status", status)
	b.Fact("Test type", testType)
	b.Fact("Target", target)

	out, buildErr := b.Build()
	if buildErr != nil {
		return "", buildErr
	}

	h.Facts.Store(h.Name(), map[string]string{
		"Status":    status,
		"Test type": testType,
		"Target":    target,
	})

	return out, nil
}
