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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListGatewaysHandler_ComputesAvailability(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"items": [
				{"status": "ONLINE", "deviceName": "gw1", "model": "7005", "deployment": "BRANCH"},
				{"status": "OFFLINE", "deviceName": "gw2", "serialNumber": "CN1", "siteName": "Branch", "model": "7005", "deployment": "BRANCH"}
			],
			"total": 2
		}`))
	})

	h := &ListGatewaysHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "Online: 1")
	assert.Contains(t, out, "Offline: 1")
	assert.Contains(t, out, "gw2 (CN1) at Branch")
}

func TestGetGatewayDetailsHandler_AllUplinksDownIsCritical(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-monitoring/v1alpha1/gateways/SERIAL1", r.URL.Path)
		w.Write([]byte(`{
			"deviceName": "gw1",
			"status": "ONLINE",
			"uplinks": [{"name": "wan0", "status": "DOWN"}],
			"activeTunnels": 0
		}`))
	})

	facts := NewFactStore()
	h := &GetGatewayDetailsHandler{Client: client, Facts: facts}

	out, err := h.Execute(context.Background(), map[string]any{"serial_number": "serial1"})
	require.NoError(t, err)
	assert.Contains(t, out, "All uplinks down, no WAN connectivity")
	assert.Contains(t, out, "No active tunnels")
}

func TestGetGatewayDetailsHandler_404BecomesNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	h := &GetGatewayDetailsHandler{Client: client, Facts: NewFactStore()}

	_, err := h.Execute(context.Background(), map[string]any{"serial_number": "ABC"})
	require.Error(t, err)
}

func TestGetGatewayClusterInfoHandler_NoPrimaryIsCritical(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-monitoring/v1alpha1/clusters/cl1", r.URL.Path)
		w.Write([]byte(`{
			"status": "DEGRADED",
			"haEnabled": true,
			"configSyncStatus": "IN_SYNC",
			"members": [{"role": "BACKUP", "gatewayName": "gw2", "status": "ONLINE"}]
		}`))
	})

	h := &GetGatewayClusterInfoHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{"cluster_name": "cl1"})
	require.NoError(t, err)
	assert.Contains(t, out, "No primary gateway detected")
	assert.Contains(t, out, "No primary gateway, cluster inoperative")
}

func TestGetGatewayUplinksHandler_PrimaryDownIsCritical(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-monitoring/v1alpha1/gateways/SERIAL1/uplinks", r.URL.Path)
		w.Write([]byte(`{
			"gatewayName": "gw1",
			"uplinks": [{"interfaceName": "wan0", "status": "DOWN", "isPrimary": true, "type": "INTERNET"}]
		}`))
	})

	h := &GetGatewayUplinksHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{"serial_number": "serial1"})
	require.NoError(t, err)
	assert.Contains(t, out, "Primary uplink wan0 is down")
	assert.Contains(t, out, "All uplinks are down, no WAN connectivity")
}

func TestGetGatewayCPUUtilizationHandler_ParsesSamplesShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-monitoring/v1alpha1/gateways/SERIAL1/cpu-utilization", r.URL.Path)
		w.Write([]byte(`{
			"deviceName": "gw1",
			"samples": [
				{"cpuPercent": 40, "timestamp": "t1"},
				{"cpuPercent": 95, "timestamp": "t2"},
				{"cpuPercent": 60, "timestamp": "t3"}
			]
		}`))
	})

	h := &GetGatewayCPUUtilizationHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{"serial": "serial1"})
	require.NoError(t, err)
	assert.Contains(t, out, "3 data points")
	assert.Contains(t, out, "Peak 95% at t2")
	assert.Contains(t, out, "CPU usage reached 95%, severely overloaded")
}

func TestListGatewayTunnelsHandler_SerialNumberFieldIsActuallyClusterName(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The schema field is named serial_number but the vendor endpoint
		// actually takes a cluster name path segment.
		assert.Equal(t, "/network-monitoring/v1alpha1/clusters/my-cluster/tunnels", r.URL.Path)
		w.Write([]byte(`{
			"items": [{"tunnelName": "t1", "status": "DOWN", "type": "IPSEC", "encryption": "DES"}],
			"total": 1
		}`))
	})

	h := &ListGatewayTunnelsHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{"serial_number": "my-cluster"})
	require.NoError(t, err)
	assert.Contains(t, out, "All tunnels are down")
	assert.Contains(t, out, "weak or no encryption")
}
