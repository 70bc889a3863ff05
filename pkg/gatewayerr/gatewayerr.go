// Package gatewayerr gives the error kinds the dispatcher must distinguish a
// Go type, so the boundary can errors.As instead of string-matching status
// text pulled out of a wrapped error chain.
package gatewayerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies one of the error classes the tool dispatcher maps to a
// report prefix.
type Kind int

const (
	KindOther Kind = iota
	KindConfig
	KindAuth
	KindCircuitOpen
	KindUpstreamClient
	KindUpstreamServer
	KindTimeout
	KindSchema
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindCircuitOpen:
		return "circuit_open"
	case KindUpstreamClient:
		return "upstream_client"
	case KindUpstreamServer:
		return "upstream_server"
	case KindTimeout:
		return "timeout"
	case KindSchema:
		return "schema"
	case KindCancelled:
		return "cancelled"
	default:
		return "other"
	}
}

// Error wraps an underlying cause with the Kind the dispatcher needs to pick
// a report prefix, plus any context the handler mapping wants to surface
// (HTTP status, the offending field name).
type Error struct {
	Kind    Kind
	Status  int    // HTTP status code, when Kind is an upstream-http kind; 0 otherwise
	Field   string // offending field name, when Kind is KindSchema
	Message string
	Cause   error

	// RetryAfter is the vendor's Retry-After value on a 429 response, when
	// present. The retry wrapper honors it verbatim instead of the backoff
	// formula.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Config wraps a configuration-loading failure (missing credential, invalid
// runtime knob).
func Config(msg string, cause error) *Error { return newErr(KindConfig, msg, cause) }

// Auth wraps a token-acquisition failure (OAuth2 exchange rejected, network
// failure reaching the SSO endpoint).
func Auth(msg string, cause error) *Error { return newErr(KindAuth, msg, cause) }

// CircuitOpen reports that the breaker short-circuited the call without
// attempting it.
func CircuitOpen(name string) *Error {
	return &Error{Kind: KindCircuitOpen, Message: fmt.Sprintf("circuit breaker %q is open", name)}
}

// UpstreamClient wraps a non-401 4xx vendor response.
func UpstreamClient(status int, msg string, cause error) *Error {
	e := newErr(KindUpstreamClient, msg, cause)
	e.Status = status

	return e
}

// WithRetryAfter attaches a vendor Retry-After duration to a 429 error and
// returns the same *Error for chaining at the call site.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// UpstreamServer wraps a 5xx vendor response that survived retries.
func UpstreamServer(status int, msg string, cause error) *Error {
	e := newErr(KindUpstreamServer, msg, cause)
	e.Status = status

	return e
}

// Timeout wraps a context deadline or network timeout.
func Timeout(msg string, cause error) *Error { return newErr(KindTimeout, msg, cause) }

// Schema wraps one input-validation violation.
func Schema(field, reason string) *Error {
	return &Error{Kind: KindSchema, Field: field, Message: reason}
}

// Cancelled wraps ctx.Err() surfaced at a suspension point (rate-limiter
// wait, retry backoff sleep, in-flight HTTP call).
func Cancelled(cause error) *Error { return newErr(KindCancelled, "cancelled", cause) }

// Other wraps anything the dispatcher has no specific kind for.
func Other(msg string, cause error) *Error { return newErr(KindOther, msg, cause) }

// As reports whether err's chain contains a *Error and, if so, returns it.
// Callers at the dispatcher boundary use this instead of string-matching:
//
//	if ge, ok := gatewayerr.As(err); ok { switch ge.Kind { ... } }
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}

	return nil, false
}
