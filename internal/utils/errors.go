package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Well-known error codes returned by the auth gateway or set locally
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeMFARequired        = "MFA_REQUIRED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNoSession          = "NO_SESSION"
	CodeInvalidResponse    = "INVALID_RESPONSE"
)

// AuthError is the uniform error shape stored in session, wizard and
// handshake state
type AuthError struct {
	Message    string `json:"message" yaml:"message"`
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Code       string `json:"code,omitempty" yaml:"code,omitempty"`
	StatusCode int    `json:"-" yaml:"-"`
}

// Error implements the error interface
func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
		if e.StatusCode != 0 {
			msg = fmt.Sprintf("request failed with status %d", e.StatusCode)
		}
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	return msg
}

// NewAuthError creates a new auth error
func NewAuthError(message, field, code string) *AuthError {
	return &AuthError{
		Message: message,
		Field:   field,
		Code:    code,
	}
}

// NewHTTPError creates an auth error for a response whose body carried no
// usable error detail
func NewHTTPError(statusCode int, statusText string) *AuthError {
	if statusText == "" {
		statusText = http.StatusText(statusCode)
	}
	return &AuthError{
		Message:    statusText,
		Code:       fmt.Sprintf("%d", statusCode),
		StatusCode: statusCode,
	}
}

// Normalize converts any error into an AuthError. Errors that carry no
// message are replaced by fallback.
func Normalize(err error, fallback string) *AuthError {
	if err == nil {
		return nil
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Message == "" {
			cp := *authErr
			cp.Message = fallback
			return &cp
		}
		return authErr
	}

	var multi *MultiError
	if errors.As(err, &multi) && len(multi.Errors) > 1 {
		return normalizeMulti(multi, fallback)
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return &AuthError{
			Message: valErr.Message,
			Field:   valErr.Field,
			Code:    CodeValidation,
		}
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = fallback
	}
	return &AuthError{Message: msg}
}

// normalizeMulti joins every collected message into one AuthError. The
// field is the first one reported.
func normalizeMulti(multi *MultiError, fallback string) *AuthError {
	out := &AuthError{}
	msgs := make([]string, 0, len(multi.Errors))
	for _, err := range multi.Errors {
		n := Normalize(err, fallback)
		if out.Field == "" {
			out.Field = n.Field
		}
		if out.Code == "" {
			out.Code = n.Code
		}
		msgs = append(msgs, n.Message)
	}
	out.Message = strings.Join(msgs, "; ")
	return out
}

// ErrorKind classifies an error for logging
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConnectivityError(err):
		return "connectivity"
	case IsValidationError(err):
		return "validation"
	case IsAuthError(err):
		return "auth"
	default:
		return "unknown"
	}
}

// IsAuthError checks if the error is a normalized gateway error
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsValidationError checks if the error is a client-side validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsUnauthorized checks if the gateway rejected the credential
func IsUnauthorized(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode == http.StatusUnauthorized || authErr.Code == CodeTokenExpired
	}
	return false
}

// IsCode checks if the error is an AuthError with the given code
func IsCode(err error, code string) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code == code
	}
	return false
}

// IsConnectivityError reports whether err comes from the transport rather
// than from an HTTP response
func IsConnectivityError(err error) bool {
	if err == nil || IsAuthError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d errors occurred: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Add adds an error to the multi-error
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewMultiError creates a new multi-error
func NewMultiError() *MultiError {
	return &MultiError{
		Errors: make([]error, 0),
	}
}
