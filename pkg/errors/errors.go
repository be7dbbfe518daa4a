// Package errors defines the error type every API response is rendered from.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a stable machine code, a client-safe message and the HTTP
// status it maps to. Internal holds the cause for logs and is never serialised.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return e.Message + ": " + e.Internal.Error()
	default:
		return e.Message
	}
}

// Unwrap exposes the internal cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy carrying err as its cause. Shared sentinels stay untouched.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Internal = err
	return &cp
}

// WithMessage returns a copy with a different client message and the same code and status.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Message = message
	return &cp
}

// Common errors exposed to the rest of the application.
var (
	ErrBadRequest   = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrUnauthorized = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden    = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound     = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrConflict     = New("CONFLICT", "Resource state conflicts with the request", http.StatusConflict)
	ErrRateLimit    = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)

	ErrInternalServer = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	// ErrOperationFailed hides persistence failures behind a generic message.
	ErrOperationFailed = New("OPERATION_FAILED", "Operation failed", http.StatusInternalServerError)
	// ErrUpstream reports a failed call to a third-party API such as an AI provider or GitHub.
	ErrUpstream = New("UPSTREAM_FAILED", "Upstream service request failed", http.StatusBadGateway)
)

// New builds an application error.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// Wrap passes AppErrors through unchanged and turns anything else into an internal
// server error whose cause records the failed operation.
func Wrap(err error, operation string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(fmt.Errorf("%s: %w", operation, err))
}

// FromError converts err into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}

// HasCode reports whether err is, or wraps, an AppError with code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// NewBadRequest reports invalid input with a specific message.
func NewBadRequest(message string) *AppError { return ErrBadRequest.WithMessage(message) }

// NewNotFound reports a missing resource with a specific message.
func NewNotFound(message string) *AppError { return ErrNotFound.WithMessage(message) }

// NewConflict reports a request that cannot be applied to the current resource state.
func NewConflict(message string) *AppError { return ErrConflict.WithMessage(message) }

// NewUpstream reports an upstream failure with a client-safe message.
func NewUpstream(message string) *AppError { return ErrUpstream.WithMessage(message) }
