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

// Package report builds the plain-text reports every tool handler returns:
// an ordered sequence of status-tagged segments ending, when the handler
// reports numeric facts, in a verification checkpoint block that echoes
// those facts so a downstream consumer can audit the model's restatement.
package report

import (
	"fmt"
	"strconv"
	"strings"
)

// Label is one of the closed set of status tags a segment may carry.
type Label string

const (
	OK     Label = "[OK]"
	WARN   Label = "[WARN]"
	CRIT   Label = "[CRIT]"
	ERR    Label = "[ERR]"
	INFO   Label = "[INFO]"
	UP     Label = "[UP]"
	DN     Label = "[DN]"
	AP     Label = "[AP]"
	SW     Label = "[SW]"
	GW     Label = "[GW]"
	DEV    Label = "[DEV]"
	STATS  Label = "[STATS]"
	TREND  Label = "[TREND]"
	DATA   Label = "[DATA]"
	NET    Label = "[NET]"
	VPN    Label = "[VPN]"
	SEC    Label = "[SEC]"
	HEALTH Label = "[HEALTH]"
	ASYNC  Label = "[ASYNC]"
	WIFI   Label = "[WIFI]"
	WIRED  Label = "[WIRED]"
)

// maxSize is the hard ceiling on a rendered report, in bytes.
const maxSize = 8 * 1024

const checkpointMarker = "── Verification ──"

// fact is one recorded (label, exact-value) pair for the verification
// checkpoint.
type fact struct {
	label string
	value string
}

// Builder accumulates text segments and checked facts for a single tool
// report.
type Builder struct {
	segments []string
	facts    []fact
	totals   []totalCheck
	listTail int // index of the last segment considered truncatable, or -1
	listLen  int // number of item segments in the truncation candidate
}

type totalCheck struct {
	totalLabel string
	total      float64
	parts      []float64
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{listTail: -1}
}

// Line appends a single labeled line.
func (b *Builder) Line(label Label, format string, args ...any) *Builder {
	b.segments = append(b.segments, fmt.Sprintf("%s %s", label, fmt.Sprintf(format, args...)))
	return b
}

// Raw appends an unlabeled line, verbatim.
func (b *Builder) Raw(s string) *Builder {
	b.segments = append(b.segments, s)
	return b
}

// ListSection appends a labeled multi-line section and marks it as the
// truncation candidate if the rendered report exceeds the size bound: the
// builder truncates the longest such section first.
func (b *Builder) ListSection(label Label, header string, items []string) *Builder {
	b.segments = append(b.segments, fmt.Sprintf("%s %s", label, header))
	start := len(b.segments)

	for _, item := range items {
		b.segments = append(b.segments, "  "+item)
	}

	if b.listTail == -1 || (len(b.segments)-start) > b.lastListLen() {
		b.listTail = start
		b.listLen = len(b.segments) - start
	}

	return b
}

func (b *Builder) lastListLen() int {
	if b.listTail < 0 {
		return 0
	}

	return b.listLen
}

// Fact records one (label, value) pair for the verification checkpoint, in
// insertion order. value is emitted verbatim.
func (b *Builder) Fact(label string, value string) *Builder {
	b.facts = append(b.facts, fact{label: label, value: value})
	return b
}

// FactInt is a convenience wrapper around Fact for integer facts.
func (b *Builder) FactInt(label string, value int) *Builder {
	return b.Fact(label, strconv.Itoa(value))
}

// CheckTotal registers an invariant the checkpoint must satisfy before
// render: total must equal the sum of parts. Build returns an error if any
// registered total is violated, instead of silently emitting inconsistent
// facts.
func (b *Builder) CheckTotal(totalLabel string, total float64, parts ...float64) *Builder {
	b.totals = append(b.totals, totalCheck{totalLabel: totalLabel, total: total, parts: parts})
	return b
}

// ErrInconsistentTotal is returned by Build when a registered total does not
// equal the sum of its parts.
type ErrInconsistentTotal struct {
	Label string
	Total float64
	Sum   float64
}

func (e *ErrInconsistentTotal) Error() string {
	return fmt.Sprintf("report: %q total %v does not equal sum of parts %v", e.Label, e.Total, e.Sum)
}

// Build renders the report, enforcing the size bound and the total
// invariants. It returns an error if a CheckTotal invariant is violated;
// callers should treat that as a handler bug, not a user-facing failure.
func (b *Builder) Build() (string, error) {
	for _, tc := range b.totals {
		sum := 0.0
		for _, p := range tc.parts {
			sum += p
		}

		if sum != tc.total {
			return "", &ErrInconsistentTotal{Label: tc.totalLabel, Total: tc.total, Sum: sum}
		}
	}

	body := b.render(b.segments)

	if len(b.facts) > 0 {
		checkpoint := b.renderCheckpoint()
		if len(body)+len(checkpoint) > maxSize {
			body = b.truncate(body, maxSize-len(checkpoint))
		}

		return body + checkpoint, nil
	}

	if len(body) > maxSize {
		body = b.truncate(body, maxSize)
	}

	return body, nil
}

func (b *Builder) render(segments []string) string {
	return strings.Join(segments, "\n") + "\n"
}

func (b *Builder) renderCheckpoint() string {
	var sb strings.Builder

	sb.WriteString(checkpointMarker)
	sb.WriteString("\n")

	for _, f := range b.facts {
		sb.WriteString(f.label)
		sb.WriteString(": ")
		sb.WriteString(f.value)
		sb.WriteString("\n")
	}

	return sb.String()
}

// truncate drops the tail of the longest list-like section until body fits
// within budget, replacing it with a "… +N more" marker and an
// [INFO] Truncated line.
func (b *Builder) truncate(body string, budget int) string {
	if b.listTail < 0 || b.listTail >= len(b.segments) {
		if len(body) > budget {
			return body[:budget]
		}

		return body
	}

	segments := append([]string(nil), b.segments...)
	dropped := 0

	for len(b.render(append(segments, fmt.Sprintf("  … +%d more", dropped+1), string(INFO)+" Truncated"))) > budget && len(segments) > b.listTail {
		segments = segments[:len(segments)-1]
		dropped++
	}

	segments = append(segments, fmt.Sprintf("  … +%d more", dropped), fmt.Sprintf("%s Truncated", INFO))

	return b.render(segments)
}

// Bytes formats n using IEC units with one decimal place.
func Bytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%dB", n)
	}

	div, exp := int64(unit), 0

	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}

	return fmt.Sprintf("%.1f%s", float64(n)/float64(div), units[exp])
}

// Uptime formats a duration in seconds as "Nd Nh Nm", eliding zero
// segments, e.g. 90061 -> "1d 1h 1m".
func Uptime(totalSeconds int64) string {
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}

	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}

	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	return strings.Join(parts, " ")
}

// Percent formats x (already a percentage, e.g. 42.5 not 0.425) with one
// decimal and a trailing '%'.
func Percent(x float64) string {
	return fmt.Sprintf("%.1f%%", x)
}
