// Package domainerrors defines coded errors for the coordination domain.
// Services return these so transports can translate outcomes into HTTP
// statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are stable API surface: they appear
// in HTTP error envelopes and in audit reasons.
type Code string

const (
	// Generic codes.
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// Coordination-specific codes.
	CodeInvalidProof        Code = "invalid_proof"
	CodeProofConsumed       Code = "proof_consumed"
	CodeTierMismatch        Code = "tier_mismatch"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeTerminalState       Code = "terminal_state"
	CodeEscalationLimit     Code = "escalation_limit"
	CodeDuplicateIssuance   Code = "duplicate_issuance"
)

// Error is a coded domain error. Construct via New or Wrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with a human-readable message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a domain code. The cause remains
// reachable through errors.Unwrap for sentinel checks.
func Wrap(code Code, message string, err error) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias used at call sites that check a single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the domain code from err, defaulting to CodeInternal for
// uncoded errors so nothing leaks as a 200.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message, empty for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps domain codes onto HTTP statuses. Transport handlers are
// the only callers; services never reason about HTTP.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeInvalidProof:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeTierMismatch, CodeTerminalState:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeProofConsumed, CodeDuplicateIssuance:
		return http.StatusConflict
	case CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case CodeEscalationLimit:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
