// Package apperror defines the error taxonomy shared by stores, services and handlers.
package apperror

import (
	"errors"
	"fmt"
)

// Code identifies an error category.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodePreconditionFailed  Code = "PRECONDITION_FAILED"
	CodeCredentialMissing   Code = "CREDENTIAL_MISSING"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeForbidden           Code = "FORBIDDEN"
)

// Error is a categorized error carrying enough context for a caller to fix the problem.
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
	cause     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation          = &Error{Code: CodeValidation}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition}
	ErrPreconditionFailed  = &Error{Code: CodePreconditionFailed}
	ErrCredentialMissing   = &Error{Code: CodeCredentialMissing}
	ErrUpstreamUnavailable = &Error{Code: CodeUpstreamUnavailable}
	ErrForbidden           = &Error{Code: CodeForbidden}
)

// Validation reports a caller-supplied field that failed a precondition.
func Validation(field, message string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Field:   field,
	}
}

// MissingField is a Validation error for an absent mandatory field.
func MissingField(field string) *Error {
	return Validation(field, fmt.Sprintf("%s is required", field))
}

func NotFound(entity, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: fmt.Sprintf("id: %s", id),
	}
}

// InvalidTransition reports a state change not permitted from the current state.
func InvalidTransition(entity, id, from, action string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s %s in status %q", action, entity, from),
		Details: fmt.Sprintf("id: %s", id),
	}
}

func PreconditionFailed(message string) *Error {
	return &Error{
		Code:    CodePreconditionFailed,
		Message: message,
	}
}

// CredentialMissing marks a provisioning run that could not create an account.
// It travels alongside a successful result rather than aborting it.
func CredentialMissing(applicationID string) *Error {
	return &Error{
		Code:    CodeCredentialMissing,
		Message: "no one-time password stored for this application; create the staff account manually",
		Details: fmt.Sprintf("applicationId: %s", applicationID),
	}
}

// Upstream wraps a failure talking to persistence or another collaborator. Safe to retry.
func Upstream(service string, err error) *Error {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &Error{
		Code:      CodeUpstreamUnavailable,
		Message:   fmt.Sprintf("%s unavailable", service),
		Details:   details,
		Retryable: true,
		cause:     err,
	}
}

func Forbidden(message string) *Error {
	return &Error{
		Code:    CodeForbidden,
		Message: message,
	}
}

// CodeOf returns the code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
