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
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaViolation is one leaf-level validation failure, ready to be
// rendered into the "[ERR] Invalid input" report.
type schemaViolation struct {
	Field  string
	Reason string
}

// validateArgs decodes rawArgs (preserving number precision via
// jsonschema.UnmarshalJSON) and validates it against schema. On success it
// also returns the decoded arguments as a plain map, ready for a handler.
func validateArgs(schema *jsonschema.Schema, rawArgs json.RawMessage) (map[string]any, []schemaViolation, error) {
	if len(rawArgs) == 0 {
		rawArgs = []byte("{}")
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(rawArgs))
	if err != nil {
		return nil, nil, err
	}

	if err := schema.Validate(instance); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return nil, flattenValidationError(ve), nil
		}

		return nil, []schemaViolation{{Reason: err.Error()}}, nil
	}

	args, ok := instance.(map[string]any)
	if !ok {
		return nil, []schemaViolation{{Reason: "arguments must be a JSON object"}}, nil
	}

	return args, nil, nil
}

func flattenValidationError(ve *jsonschema.ValidationError) []schemaViolation {
	if len(ve.Causes) == 0 {
		return []schemaViolation{{
			Field:  strings.Join(ve.InstanceLocation, "."),
			Reason: ve.Error(),
		}}
	}

	var out []schemaViolation

	for _, cause := range ve.Causes {
		out = append(out, flattenValidationError(cause)...)
	}

	return out
}
