// Package errors defines the service error taxonomy shared by the core
// services and the HTTP boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service error.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// ServiceError carries a classification alongside the message so the HTTP
// layer can map it to a status code without string matching.
type ServiceError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error without changing the public message.
func (e *ServiceError) WithCause(err error) *ServiceError {
	e.cause = err
	return e
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusNotFound}
}

// Validation reports a malformed or inconsistent request.
func Validation(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusBadRequest}
}

// Unauthorized reports a missing or invalid caller identity.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Kind: KindUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden reports an authenticated caller lacking the required role.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Kind: KindForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// Conflict reports an invariant violation such as a duplicate unique value.
func Conflict(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: KindConflict, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusConflict}
}

// RateLimitExceeded reports that the caller exhausted its request budget.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return &ServiceError{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("rate limit of %d requests per %s exceeded", limit, window),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Internal reports an unclassified failure. The message is safe to expose.
func Internal(message string) *ServiceError {
	return &ServiceError{Kind: KindInternal, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// StatusFor resolves the HTTP status for any error, defaulting to 500.
func StatusFor(err error) int {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}
