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

package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aruba-noc/mcp-gateway/pkg/logger"
)

// logSpanExporter emits completed spans as structured log lines rather than
// shipping them to a collector: the gateway runs as a stdio subprocess with
// no guaranteed network path to an OTLP endpoint, so spans are surfaced the
// same way every other event in this process is, through the component
// logger.
type logSpanExporter struct {
	logger logger.Logger
}

func (e *logSpanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		ev := e.logger.Info().
			Str("span", s.Name()).
			Dur("duration", s.EndTime().Sub(s.StartTime()))

		for _, attr := range s.Attributes() {
			ev = ev.Str(string(attr.Key), attr.Value.Emit())
		}

		if s.Status().Code != 0 {
			ev = ev.Str("span_status", s.Status().Description)
		}

		ev.Msg("span completed")
	}

	return nil
}

func (e *logSpanExporter) Shutdown(context.Context) error {
	return nil
}
