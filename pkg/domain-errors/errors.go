// Package domainerrors carries the error taxonomy shared by every custody module.
//
// Services return *Error values so transport layers can map them to status codes
// without string matching. Stores return pkg/platform/sentinel errors instead and
// services translate them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	// Caller-facing codes.
	CodeValidation                Code = "validation_error"
	CodeBadRequest                Code = "bad_request"
	CodeComplianceViolation       Code = "compliance_violation"
	CodeAlreadyProcessed          Code = "already_processed"
	CodeInsufficientConfirmations Code = "insufficient_confirmations"
	CodeInsufficientBalance       Code = "insufficient_balance"
	CodeInsufficientReserve       Code = "insufficient_reserve"
	CodeExternalCallFailure       Code = "external_call_failure"
	CodeSystemPaused              Code = "system_paused"
	CodeUnauthorized              Code = "unauthorized"

	// Infrastructure and invariant codes.
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error with an optional remediation hint.
type Error struct {
	Code    Code
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithHint attaches a remediation hint such as "increase KYC tier to proceed".
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode, kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HintOf returns the first non-empty hint in err's chain.
func HintOf(err error) string {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return ""
		}
		if de.Hint != "" {
			return de.Hint
		}
		err = de.Err
	}
	return ""
}

// MessageOf returns the outermost domain message, or err.Error() for foreign errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
