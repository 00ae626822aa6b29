// Package bwerrors defines Bellwether's closed error taxonomy: every
// internal failure carries a code, a severity, a retryability tag, and a
// context record, per the error handling design.
package bwerrors

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies the kind of failure.
type Code string

const (
	TransportConnectionRefused Code = "TRANSPORT_CONNECTION_REFUSED"
	TransportAuthFailed        Code = "TRANSPORT_AUTH_FAILED"
	TransportServerExit        Code = "TRANSPORT_SERVER_EXIT"
	TransportProtocolViolation Code = "TRANSPORT_PROTOCOL_VIOLATION"
	TransportTimeout           Code = "TRANSPORT_TIMEOUT"
	TransportUnknown           Code = "TRANSPORT_UNKNOWN"

	LLMAuth       Code = "LLM_AUTH"
	LLMRateLimit  Code = "LLM_RATE_LIMIT"
	LLMQuota      Code = "LLM_QUOTA"
	LLMConnection Code = "LLM_CONNECTION"
	LLMRefusal    Code = "LLM_REFUSAL"
	LLMParse      Code = "LLM_PARSE"

	ProtocolNotInitialized  Code = "PROTOCOL_NOT_INITIALIZED"
	ProtocolInvalidResponse Code = "PROTOCOL_INVALID_RESPONSE"
	ProtocolUnknownMethod   Code = "PROTOCOL_UNKNOWN_METHOD"

	ValidationConfig   Code = "VALIDATION_CONFIG"
	ValidationScenario Code = "VALIDATION_SCENARIO"
	ValidationWorkflow Code = "VALIDATION_WORKFLOW"

	CircuitBreakerOpen Code = "CIRCUIT_BREAKER_OPEN"

	BudgetExceeded Code = "BUDGET_EXCEEDED"

	Cancelled Code = "CANCELLED"
)

// Severity ranks how serious a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Retryability tags whether a failure should be retried, is terminal, or
// should trip a circuit breaker.
type Retryability string

const (
	Retryable    Retryability = "retryable"
	Terminal     Retryability = "terminal"
	CircuitBreak Retryability = "circuit-break"
)

// BellwetherError is the single error type carried across every component
// boundary in this codebase.
type BellwetherError struct {
	Code         Code
	Severity     Severity
	Retryability Retryability
	Component    string
	Operation    string
	Metadata     map[string]any
	Timing       time.Duration
	RetryAfter   *time.Duration
	Err          error
}

func (e *BellwetherError) Error() string {
	base := fmt.Sprintf("%s: %s.%s", e.Code, e.Component, e.Operation)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", base, e.Err)
	}
	return base
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *BellwetherError) Unwrap() error { return e.Err }

// New constructs a BellwetherError with sane defaults; callers refine with
// the With* helpers.
func New(code Code, component, operation string, err error) *BellwetherError {
	return &BellwetherError{
		Code:         code,
		Severity:     defaultSeverity(code),
		Retryability: defaultRetryability(code),
		Component:    component,
		Operation:    operation,
		Metadata:     map[string]any{},
		Err:          err,
	}
}

// WithMetadata attaches a key/value pair and returns the receiver for chaining.
func (e *BellwetherError) WithMetadata(key string, value any) *BellwetherError {
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	e.Metadata[key] = value
	return e
}

// WithTiming records how long the failing operation ran before failing.
func (e *BellwetherError) WithTiming(d time.Duration) *BellwetherError {
	e.Timing = d
	return e
}

// WithRetryAfter records a server-provided retry hint (LLM_RATE_LIMIT, mostly).
func (e *BellwetherError) WithRetryAfter(d time.Duration) *BellwetherError {
	e.RetryAfter = &d
	return e
}

func defaultSeverity(code Code) Severity {
	switch code {
	case TransportServerExit, ProtocolInvalidResponse, LLMQuota:
		return SeverityCritical
	case TransportAuthFailed, TransportProtocolViolation, LLMAuth, LLMRefusal, ValidationConfig, ValidationScenario, ValidationWorkflow, BudgetExceeded:
		return SeverityHigh
	case TransportTimeout, LLMRateLimit, LLMConnection, CircuitBreakerOpen, TransportConnectionRefused:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func defaultRetryability(code Code) Retryability {
	switch code {
	case TransportTimeout, LLMRateLimit, LLMConnection, TransportConnectionRefused:
		return Retryable
	case CircuitBreakerOpen:
		return CircuitBreak
	default:
		return Terminal
	}
}

// IsRetryable reports whether err (or any BellwetherError it wraps) is
// tagged Retryable or CircuitBreak; an open circuit counts as retryable.
func IsRetryable(err error) bool {
	var be *BellwetherError
	if errors.As(err, &be) {
		return be.Retryability == Retryable || be.Retryability == CircuitBreak
	}
	return false
}

// IsTerminal reports whether err is tagged terminal.
func IsTerminal(err error) bool {
	var be *BellwetherError
	if errors.As(err, &be) {
		return be.Retryability == Terminal
	}
	return false
}

// CodeOf extracts the Code from err, or "" if err is not a BellwetherError.
func CodeOf(err error) Code {
	var be *BellwetherError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// RetryAfterOf extracts a server-provided retry hint, if present.
func RetryAfterOf(err error) (time.Duration, bool) {
	var be *BellwetherError
	if errors.As(err, &be) && be.RetryAfter != nil {
		return *be.RetryAfter, true
	}
	return 0, false
}

// IsCancelled reports whether err represents cooperative cancellation.
func IsCancelled(err error) bool {
	return CodeOf(err) == Cancelled
}
