// Package apperror defines the error taxonomy shared by the store, the
// services and the HTTP layer.
//
// Every failure surfaced by the core is an *Error whose Kind is one of the
// sentinel errors below, so callers branch with errors.Is:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// Message is safe to show to clients. Err holds the internal cause and is
// only ever logged.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStore            = errors.New("store failure")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotInitialized   = errors.New("no schema selected")
	ErrSchemaSwitch     = errors.New("schema switch failed")
)

// InternalMessage is what clients see for failures whose detail stays server-side.
const InternalMessage = "Internal server error"

// Error is a classified failure.
type Error struct {
	Kind    error
	Message string
	// Field and Rule are set for validation failures.
	Field string
	Rule  string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound reports a missing entity looked up by primary key.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s with ID %v not found", entity, id)}
}

// NotFoundBy reports a missing entity looked up by another unique field.
func NotFoundBy(entity, field string, value any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s with %s '%v' not found", entity, field, value)}
}

func Conflict(message string, cause error) *Error {
	return &Error{Kind: ErrConflict, Message: message, Err: cause}
}

// Validation reports malformed input; rule names the check that failed.
func Validation(field, rule, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Rule: rule, Message: message}
}

func Unauthorized(message string, cause error) *Error {
	return &Error{Kind: ErrUnauthorized, Message: message, Err: cause}
}

// Store wraps an unclassified store failure. The cause never reaches clients.
func Store(op string, cause error) *Error {
	return &Error{Kind: ErrStore, Message: fmt.Sprintf("store failure during %s", op), Err: cause}
}

func StoreUnavailable(op string, cause error) *Error {
	return &Error{Kind: ErrStoreUnavailable, Message: fmt.Sprintf("store unavailable during %s", op), Err: cause}
}

func NotInitialized() *Error {
	return &Error{Kind: ErrNotInitialized, Message: "no database schema selected; call SelectSchema first"}
}

func SchemaSwitch(schema string, cause error) *Error {
	return &Error{Kind: ErrSchemaSwitch, Message: fmt.Sprintf("error switching to schema %q", schema), Err: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// PublicMessage returns the text that may be shown to a client for err.
// Anything that is not a domain-known failure collapses to InternalMessage.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return InternalMessage
	}
	switch appErr.Kind {
	case ErrNotFound, ErrConflict, ErrValidation, ErrUnauthorized:
		return appErr.Message
	case ErrNotInitialized:
		return "Service temporarily unavailable"
	default:
		return InternalMessage
	}
}
