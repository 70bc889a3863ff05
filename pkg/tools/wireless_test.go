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

func TestListWLANsHandler_FlagsOpenNetworks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"items": [
				{"wlanName": "Guest-WiFi", "securityType": "OPEN", "enabled": true, "vlanId": 20, "ssidBroadcast": true}
			]
		}`))
	})

	h := &ListWLANsHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "Guest networks: Guest-WiFi")
	assert.Contains(t, out, "WARN open network, no encryption")
}

func TestGetWLANDetailsHandler_NearCapacityWarning(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-monitoring/v1alpha1/wlans/corp", r.URL.Path)
		w.Write([]byte(`{
			"ssid": "Corp",
			"securityType": "WPA2-PERSONAL",
			"enabled": true,
			"connectedClients": 95,
			"maxClients": 100
		}`))
	})

	facts := NewFactStore()
	h := &GetWLANDetailsHandler{Client: client, Facts: facts}

	out, err := h.Execute(context.Background(), map[string]any{"wlan_name": "corp"})
	require.NoError(t, err)
	assert.Contains(t, out, "Near capacity limit")
	assert.Contains(t, out, "consider upgrading to WPA3")
}

func TestGetWLANDetailsHandler_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	h := &GetWLANDetailsHandler{Client: client, Facts: NewFactStore()}

	_, err := h.Execute(context.Background(), map[string]any{"wlan_name": "ghost"})
	require.Error(t, err)
}

func TestGetAPDetailsHandler_HighLoadWarning(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-monitoring/v1alpha1/aps/SERIAL1", r.URL.Path)
		w.Write([]byte(`{
			"deviceName": "ap1",
			"status": "ONLINE",
			"clientCount": 60,
			"radios": [{"band": "5GHz", "channel": 36, "txPower": 20}]
		}`))
	})

	h := &GetAPDetailsHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{"serial_number": "serial1"})
	require.NoError(t, err)
	assert.Contains(t, out, "High client load: 60 clients")
	assert.Contains(t, out, "5GHz radio")
}

func TestGetAPRadiosHandler_HeavyUtilizationIsCritical(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"apName": "ap1",
			"radios": [{"band": "5GHz", "status": "UP", "channel": 36, "txPower": 20, "clientCount": 10, "utilizationPercent": 85}]
		}`))
	})

	facts := NewFactStore()
	h := &GetAPRadiosHandler{Client: client, Facts: facts}

	out, err := h.Execute(context.Background(), map[string]any{"serial": "serial1"})
	require.NoError(t, err)
	assert.Contains(t, out, "heavily utilized")
}

func TestGetTopAPsByBandwidthHandler_Renders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"items": [{"apName": "ap1", "serialNumber": "s1", "totalBytes": 1000, "downloadBytes": 800, "uploadBytes": 200, "clientCount": 60, "utilizationPercent": 90}]
		}`))
	})

	h := &GetTopAPsByBandwidthHandler{Client: client}

	out, err := h.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, out, "High utilization, consider capacity upgrade")
	assert.Contains(t, out, "High client count, may need load balancing")
}
