package mcpgateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aruba-noc/mcp-gateway/pkg/logger"
	"github.com/aruba-noc/mcp-gateway/pkg/telemetry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	reg := NewRegistry(telemetry.Disabled(), logger.NewTestLogger())
	reg.Register(&stubHandler{
		name:   "echo",
		desc:   "echoes back a message",
		schema: `{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`,
		fn: func(ctx context.Context, args map[string]any) (string, error) {
			return "[OK] " + args["message"].(string), nil
		},
	})

	return NewServer(reg, logger.NewTestLogger())
}

func readResponses(t *testing.T, out *bytes.Buffer) []Response {
	t.Helper()

	var responses []Response

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var resp Response
		require.NoError(t, json.Unmarshal(line, &resp))
		responses = append(responses, resp)
	}

	return responses
}

func TestServer_InitializeReturnsCapabilities(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	require.Len(t, responses, 1)

	result, ok := responses[0].Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
}

func TestServer_ToolsListReturnsRegisteredTool(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	require.Len(t, responses, 1)

	result, ok := responses[0].Result.(map[string]any)
	require.True(t, ok)

	tools, ok := result["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
}

func TestServer_ToolsCallDispatchesAndReturnsTextContent(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	require.Len(t, responses, 1)

	result, ok := responses[0].Result.(map[string]any)
	require.True(t, ok)

	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)

	first, ok := content[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[OK] hi", first["text"])
}

func TestServer_UnknownMethodReturnsJSONRPCError(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":4,"method":"bogus"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeMethodNotFound, responses[0].Error.Code)
}

func TestServer_MultipleRequestsOnePerLine(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n",
	)
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	require.Len(t, responses, 2)
}

func TestServer_NotificationGetsNoResponse(t *testing.T) {
	s := newTestServer(t)

	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	assert.Empty(t, responses)
}
