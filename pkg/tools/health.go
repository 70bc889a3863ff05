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

	"github.com/aruba-noc/mcp-gateway/pkg/health"
)

// CheckServerHealthHandler implements check_server_health, exposing the
// gateway's own dependency health (auth, circuit breaker, rate limiter,
// vendor reachability) as a tool a caller can invoke when other tools start
// failing.
type CheckServerHealthHandler struct {
	Prober *health.Prober
}

func (h *CheckServerHealthHandler) Name() string { return "check_server_health" }
func (h *CheckServerHealthHandler) Description() string {
	return "Reports the gateway's own health: auth token status, circuit breaker state, rate limiter capacity, and vendor API reachability."
}

func (h *CheckServerHealthHandler) InputSchemaJSON() []byte {
	return []byte(`{"type": "object", "properties": {}, "additionalProperties": false}`)
}

func (h *CheckServerHealthHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	return h.Prober.Check(ctx)
}
