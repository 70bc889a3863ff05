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

package mcpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/telemetry"
)

// Handler is the contract every tool implements (§4.6): a globally unique
// name, an input schema, and an execute function that receives validated
// arguments and returns a finished report.
type Handler interface {
	Name() string
	Description() string
	InputSchemaJSON() []byte // a JSON Schema document, draft 2020-12
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// entry is a registered handler plus its compiled schema.
type entry struct {
	handler Handler
	schema  *jsonschema.Schema
	rawDoc  interface{}
}

// Registry is the immutable-after-startup name -> handler map. Registration
// happens once at startup under the write lock; List and Call only read it,
// under the read lock.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]entry
	telem    *telemetry.Provider
	logger   logger.Logger
}

// NewRegistry builds an empty Registry.
func NewRegistry(telem *telemetry.Provider, log logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		telem:   telem,
		logger:  log,
	}
}

// Register compiles h's input schema and adds it to the registry. It panics
// on a malformed schema or a duplicate name: both are startup-time
// programmer errors, not runtime conditions.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[h.Name()]; exists {
		panic(fmt.Sprintf("mcpgateway: duplicate tool name %q", h.Name()))
	}

	compiler := jsonschema.NewCompiler()

	resourceURL := "mem://" + h.Name() + ".schema.json"

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(h.InputSchemaJSON()))
	if err != nil {
		panic(fmt.Sprintf("mcpgateway: tool %q has invalid schema JSON: %v", h.Name(), err))
	}

	if err := compiler.AddResource(resourceURL, doc); err != nil {
		panic(fmt.Sprintf("mcpgateway: tool %q schema failed to load: %v", h.Name(), err))
	}

	schema, err := compiler.Compile(resourceURL)
	if err != nil {
		panic(fmt.Sprintf("mcpgateway: tool %q schema failed to compile: %v", h.Name(), err))
	}

	r.entries[h.Name()] = entry{handler: h, schema: schema, rawDoc: doc}
}

// List returns every registered tool's descriptor, sorted by name for
// deterministic output.
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDescriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, ToolDescriptor{
			Name:        e.handler.Name(),
			Description: e.handler.Description(),
			InputSchema: e.rawDoc,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Call implements call_tool: lookup, schema validation, a telemetry span
// around execution, and uniform error-to-report conversion. It never
// returns a Go error; every outcome becomes report text, matching the
// "text-report envelope" the dispatcher always yields.
func (r *Registry) Call(ctx context.Context, name string, rawArgs json.RawMessage) string {
	callID := uuid.NewString()
	log := r.logger.WithComponent("tool-call")

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		log.Warn().Str("call_id", callID).Str("tool", name).Msg("unknown tool requested")
		return "[ERR] Unknown tool: " + name
	}

	args, violations, err := validateArgs(e.schema, rawArgs)
	if err != nil {
		log.Warn().Str("call_id", callID).Str("tool", name).Err(err).Msg("failed to parse tool arguments")
		return fmt.Sprintf("[ERR] %s: failed to parse arguments: %s", name, err)
	}

	if len(violations) > 0 {
		return "[ERR] Invalid input: " + joinViolations(violations)
	}

	ctx, span := r.telem.StartSpan(ctx, name, args)

	report, execErr := e.handler.Execute(ctx, args)
	if execErr != nil {
		span.End("failure", execErr)
		return mapError(name, execErr)
	}

	span.End("success", nil)

	return report
}

func joinViolations(vs []schemaViolation) string {
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.Field != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Reason))
			continue
		}

		msgs = append(msgs, v.Reason)
	}

	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}

	return out
}

// mapError implements §4.6's uniform error envelope.
func mapError(tool string, err error) string {
	ge, ok := gatewayerr.As(err)
	if !ok {
		return fmt.Sprintf("[ERR] %s: %s", tool, err)
	}

	switch ge.Kind {
	case gatewayerr.KindAuth:
		return "[ERR] Authentication failed"
	case gatewayerr.KindCircuitOpen:
		return "[ERR] Upstream temporarily unavailable"
	case gatewayerr.KindUpstreamClient:
		if ge.Status == http.StatusTooManyRequests {
			return fmt.Sprintf("[ERR] %s: rate limited by vendor API", tool)
		}

		return fmt.Sprintf("[ERR] %s: %s", tool, http.StatusText(ge.Status))
	case gatewayerr.KindUpstreamServer:
		return fmt.Sprintf("[ERR] %s: Upstream server error", tool)
	case gatewayerr.KindTimeout:
		return fmt.Sprintf("[ERR] %s: Request timed out", tool)
	case gatewayerr.KindSchema:
		return fmt.Sprintf("[ERR] %s: %s %s", tool, ge.Field, ge.Message)
	case gatewayerr.KindCancelled:
		return fmt.Sprintf("[ERR] %s: cancelled", tool)
	default:
		return fmt.Sprintf("[ERR] %s: %s", tool, ge.Message)
	}
}
