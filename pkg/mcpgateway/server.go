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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

// protocolVersion is echoed back in response to "initialize".
const protocolVersion = "2025-03-26"

// Server reads one JSON-RPC request per line from r and writes one response
// per line to w. It answers initialize itself, dispatches tools/list and
// tools/call to reg, and accepts notifications/initialized without a reply.
// Any other method yields a standard JSON-RPC "method not found" error.
type Server struct {
	reg    *Registry
	logger logger.Logger
}

// NewServer builds a Server bound to reg.
func NewServer(reg *Registry, log logger.Logger) *Server {
	return &Server{reg: reg, logger: log}
}

// ErrStreamClosed is returned by Serve when reading the input stream fails
// (a read error from r, or a line longer than the scanner's buffer),
// signaling the runtime failure the caller should exit(2) on per §6.5. A
// final line without a trailing newline is served like any other line.
var ErrStreamClosed = errors.New("mcpgateway: input stream closed unexpectedly")

// Serve runs the read-dispatch-write loop until r reaches EOF (returning
// nil, a normal shutdown), a write to w fails (returning that error), or a
// read from r fails (returning ErrStreamClosed).
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue
		}

		if err := enc.Encode(resp); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error().Err(err).Msg("input stream read failed")
		return ErrStreamClosed
	}

	return nil
}

func (s *Server) handleLine(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: codeParseError, Message: "parse error", Data: err.Error()},
		}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "notifications/initialized":
		return nil // notification, no response expected
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method},
		}
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	result := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"logging":   map[string]any{},
			"prompts":   false,
			"resources": false,
		},
		"serverInfo": map[string]any{
			"name":    "aruba-central-gateway",
			"version": "1.0.0",
		},
	}

	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) handleToolsList(req Request) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": s.reg.List()}}
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) *Response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()},
		}
	}

	report := s.reg.Call(ctx, params.Name, params.Arguments)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  textResult(report, isErrorReport(report)),
	}
}

func isErrorReport(report string) bool {
	return strings.HasPrefix(report, "[ERR]")
}

