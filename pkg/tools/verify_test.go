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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactStore_RenderEmpty(t *testing.T) {
	s := NewFactStore()

	out := s.render("")
	assert.Contains(t, out, "No facts available to verify")
}

func TestFactStore_RenderSingleTool(t *testing.T) {
	s := NewFactStore()
	s.Store("get_device_list", map[string]string{"Total devices": "42"})
	s.Store("get_site_details", map[string]string{"Site": "HQ"})

	out := s.render("get_device_list")
	assert.Contains(t, out, "From get_device_list:")
	assert.Contains(t, out, "Total devices: 42")
	assert.NotContains(t, out, "From get_site_details:")
}

func TestFactStore_RenderAllToolsSortedByName(t *testing.T) {
	s := NewFactStore()
	s.Store("z_tool", map[string]string{"a": "1"})
	s.Store("a_tool", map[string]string{"b": "2"})

	out := s.render("")

	aIdx := indexOf(out, "From a_tool:")
	zIdx := indexOf(out, "From z_tool:")
	assert.True(t, aIdx >= 0 && zIdx >= 0)
	assert.Less(t, aIdx, zIdx)
}

func TestFactStore_RenderUnknownToolName(t *testing.T) {
	s := NewFactStore()
	s.Store("get_device_list", map[string]string{"Total devices": "1"})

	out := s.render("nonexistent_tool")
	assert.Contains(t, out, `No facts recorded for "nonexistent_tool" yet.`)
}

func TestVerifyFactsHandler_Execute(t *testing.T) {
	facts := NewFactStore()
	facts.Store("get_device_list", map[string]string{"Total devices": "7"})

	h := &VerifyFactsHandler{Facts: facts}
	assert.Equal(t, "verify_facts", h.Name())

	out, err := h.Execute(context.Background(), map[string]any{"tool_name": "get_device_list"})
	assert.NoError(t, err)
	assert.Contains(t, out, "Total devices: 7")
}
