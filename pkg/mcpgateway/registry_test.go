package mcpgateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/gatewayerr"
	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/telemetry"
)

type stubHandler struct {
	name   string
	desc   string
	schema string
	fn     func(ctx context.Context, args map[string]any) (string, error)
}

func (s *stubHandler) Name() string             { return s.name }
func (s *stubHandler) Description() string      { return s.desc }
func (s *stubHandler) InputSchemaJSON() []byte   { return []byte(s.schema) }
func (s *stubHandler) Execute(ctx context.Context, args map[string]any) (string, error) {
	return s.fn(ctx, args)
}

func newTestRegistry() *Registry {
	return NewRegistry(telemetry.Disabled(), logger.NewTestLogger())
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	reg := newTestRegistry()

	out := reg.Call(context.Background(), "nonexistent", nil)
	assert.Equal(t, "[ERR] Unknown tool: nonexistent", out)
}

func TestRegistry_CallSuccessfulHandler(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{
		name: "get_device_list",
		desc: "list devices",
		schema: `{
			"type": "object",
			"properties": {"limit": {"type": "integer"}},
			"additionalProperties": false
		}`,
		fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "[OK] 3 devices", nil
		},
	})

	out := reg.Call(context.Background(), "get_device_list", json.RawMessage(`{"limit": 10}`))
	assert.Equal(t, "[OK] 3 devices", out)
}

func TestRegistry_CallRejectsInvalidInput(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{
		name: "get_device",
		desc: "get device",
		schema: `{
			"type": "object",
			"properties": {"device_id": {"type": "string"}},
			"required": ["device_id"],
			"additionalProperties": false
		}`,
		fn: func(ctx context.Context, args map[string]any) (string, error) {
			t.Fatal("handler must not run when validation fails")
			return "", nil
		},
	})

	out := reg.Call(context.Background(), "get_device", json.RawMessage(`{}`))
	assert.Contains(t, out, "[ERR] Invalid input")
}

func TestRegistry_CallMapsAuthError(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{
		name:   "ping_from_ap",
		desc:   "ping",
		schema: `{"type": "object"}`,
		fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "", gatewayerr.Auth("token rejected", nil)
		},
	})

	out := reg.Call(context.Background(), "ping_from_ap", nil)
	assert.Equal(t, "[ERR] Authentication failed", out)
}

func TestRegistry_CallMapsCircuitOpen(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{
		name:   "list_sites",
		desc:   "sites",
		schema: `{"type": "object"}`,
		fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "", gatewayerr.CircuitOpen("vendor")
		},
	})

	out := reg.Call(context.Background(), "list_sites", nil)
	assert.Equal(t, "[ERR] Upstream temporarily unavailable", out)
}

func TestRegistry_CallMapsTimeout(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{
		name:   "traceroute_from_ap",
		desc:   "traceroute",
		schema: `{"type": "object"}`,
		fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "", gatewayerr.Timeout("deadline exceeded", nil)
		},
	})

	out := reg.Call(context.Background(), "traceroute_from_ap", nil)
	assert.Equal(t, "[ERR] traceroute_from_ap: Request timed out", out)
}

func TestRegistry_ListIsSortedByName(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{name: "zzz_tool", desc: "z", schema: `{"type":"object"}`, fn: noopExec})
	reg.Register(&stubHandler{name: "aaa_tool", desc: "a", schema: `{"type":"object"}`, fn: noopExec})

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "aaa_tool", list[0].Name)
	assert.Equal(t, "zzz_tool", list[1].Name)
}

func TestRegistry_RegisterDuplicateNamePanics(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(&stubHandler{name: "dup", desc: "d", schema: `{"type":"object"}`, fn: noopExec})

	assert.Panics(t, func() {
		reg.Register(&stubHandler{name: "dup", desc: "d2", schema: `{"type":"object"}`, fn: noopExec})
	})
}

func noopExec(context.Context, map[string]any) (string, error) { return "[OK]", nil }
