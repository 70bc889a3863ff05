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
	"sort"
	"strings"
	"sync"
)

// factRecord is one tool's pinned facts, captured at the moment it produced
// a report.
type factRecord struct {
	facts    map[string]string
	verified bool
}

// FactStore holds the facts the most recent tool calls produced, so the
// verify_facts tool can hand the model a citable list instead of letting it
// restate numbers from memory. Handlers run concurrently, unlike the
// single-process assumption of the tool this is adapted from, so every
// access is mutex-guarded.
type FactStore struct {
	mu      sync.Mutex
	records map[string]*factRecord
}

// NewFactStore returns an empty FactStore.
func NewFactStore() *FactStore {
	return &FactStore{records: make(map[string]*factRecord)}
}

// Store records tool's facts, overwriting whatever that tool last recorded.
func (s *FactStore) Store(tool string, facts map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[tool] = &factRecord{facts: facts}
}

// render returns the formatted fact listing for either a single tool (when
// name is non-empty and known) or every recorded tool.
func (s *FactStore) render(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return "[VERIFICATION ERROR]\n" +
			"No facts available to verify.\n" +
			"You must call a data-gathering tool first before verification."
	}

	var lines []string

	lines = append(lines, strings.Repeat("=", 60))
	lines = append(lines, "[VERIFIED FACTS - safe to cite to the user]")
	lines = append(lines, strings.Repeat("=", 60))

	if name != "" {
		if rec, ok := s.records[name]; ok {
			rec.verified = true
			lines = append(lines, "", fmt.Sprintf("From %s:", name))
			lines = append(lines, renderFacts(rec.facts)...)
		} else {
			lines = append(lines, "", fmt.Sprintf("No facts recorded for %q yet.", name))
		}
	} else {
		names := make([]string, 0, len(s.records))
		for n := range s.records {
			names = append(names, n)
		}

		sort.Strings(names)

		for _, n := range names {
			rec := s.records[n]
			rec.verified = true
			lines = append(lines, "", fmt.Sprintf("From %s:", n))
			lines = append(lines, renderFacts(rec.facts)...)
		}
	}

	lines = append(lines, "", strings.Repeat("=", 60))
	lines = append(lines, "[INSTRUCTIONS]")
	lines = append(lines, "1. Only cite the facts listed above")
	lines = append(lines, "2. Do not calculate or derive new numbers")
	lines = append(lines, "3. Do not estimate or approximate")
	lines = append(lines, "4. If asked about something not listed, say you need to query that data")
	lines = append(lines, strings.Repeat("=", 60))

	return strings.Join(lines, "\n")
}

func renderFacts(facts map[string]string) []string {
	names := make([]string, 0, len(facts))
	for n := range facts {
		names = append(names, n)
	}

	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, fmt.Sprintf("  - %s: %s", n, facts[n]))
	}

	return out
}

// VerifyFactsHandler implements verify_facts: it must be called before the
// model restates any numeric claim from an earlier tool call.
type VerifyFactsHandler struct {
	Facts *FactStore
}

func (h *VerifyFactsHandler) Name() string        { return "verify_facts" }
func (h *VerifyFactsHandler) Description() string {
	return "Returns facts recorded by previous tool calls, for citation before making claims about the data."
}

func (h *VerifyFactsHandler) InputSchemaJSON() []byte {
	return []byte(`{
		"type": "object",
		"properties": {
			"tool_name": {"type": "string", "description": "specific tool to verify facts from"}
		},
		"additionalProperties": false
	}`)
}

func (h *VerifyFactsHandler) Execute(_ context.Context, args map[string]any) (string, error) {
	name, _ := optString(args, "tool_name")
	return h.Facts.render(name), nil
}
