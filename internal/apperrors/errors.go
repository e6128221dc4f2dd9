// Package apperrors defines the error taxonomy shared by the claim services,
// the access gate and the HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports bad input shape or range, with per-field detail
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Add records a field problem and returns the receiver for chaining
func (e *ValidationError) Add(field, problem string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
	return e
}

// OrNil returns nil when no field problems were recorded
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AuthenticationError reports bad or missing credentials
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError reports an authenticated caller whose role forbids the operation
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// NotFoundError reports an unknown resource id
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a write that lost against the current record state
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UpstreamError reports a failure of an external collaborator such as the file host
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Validation starts a ValidationError with the given summary
func Validation(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// Unauthenticated returns an AuthenticationError
func Unauthenticated(message string) error {
	return &AuthenticationError{Message: message}
}

// Forbidden returns an AuthorizationError
func Forbidden(format string, args ...any) error {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFoundError
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Conflict returns a ConflictError
func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps err as an UpstreamError
func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// Is* helpers keep call sites short
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

func IsAuthentication(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsUpstream(err error) bool {
	var e *UpstreamError
	return errors.As(err, &e)
}
