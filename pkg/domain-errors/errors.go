// Package derrors defines coded domain errors shared across services.
//
// Infrastructure layers return pkg/platform/sentinel errors; services wrap
// or translate them into coded errors so handlers and batch pipelines can
// branch on the code without string matching.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for propagation policy decisions.
type Code string

const (
	// CodeValidation marks a missing or invalid required attribute. Raised
	// before any external call, so it is always free of side effects.
	CodeValidation Code = "validation"

	// CodeDuplicate marks an identifier that already exists. Retryable by
	// regeneration for enrollment ids; fatal for login identifiers.
	CodeDuplicate Code = "duplicate"

	// CodeUpstream marks a failed external account-service or record-store
	// call (network, rate limit, server error).
	CodeUpstream Code = "upstream"

	// CodePartialProvisioning marks a saga step that failed after an earlier
	// step succeeded and could not be compensated. The residual inconsistency
	// (an orphaned credential) must be logged distinctly so operators can
	// reconcile manually.
	CodePartialProvisioning Code = "partial_provisioning"

	// CodeNotProvisioned marks a reset request for a domain record that has
	// no linked profile record.
	CodeNotProvisioned Code = "not_provisioned"

	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. It wraps an optional cause for errors.Is /
// errors.As chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a code and message. A nil err
// yields nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is an alias for HasCode; reads better at branch sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the outermost code from an error chain, or CodeInternal
// when the error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the outermost coded message, falling back to the plain
// error text for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
