package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorType classifies errors for the tool boundary.
type ErrorType int

const (
	// ErrorTypeTransient - the collaborator call may succeed on a retry
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent - retrying will not help
	ErrorTypePermanent
	// ErrorTypeDegraded - the tool can continue with reduced output
	ErrorTypeDegraded
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeDegraded:
		return "degraded"
	default:
		return "permanent"
	}
}

// TransientError represents an error that can be retried.
type TransientError struct {
	Err        error
	StatusCode int
	Message    string // user-facing message
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError represents an error that should not be retried.
type PermanentError struct {
	Err        error
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// DegradedError represents an error where the tool can continue with
// fallback content.
type DegradedError struct {
	Err             error
	FallbackContent string
	Message         string
}

func (e *DegradedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("degraded error: %v", e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// NotFoundError marks a contact, conversation or tool that could not be
// resolved. Access-denied conditions use the same type so callers cannot
// distinguish hidden conversations from missing ones.
type NotFoundError struct {
	Kind string // "contact", "conversation", "tool", "message"
	Ref  string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, ref string) *NotFoundError {
	return &NotFoundError{Kind: kind, Ref: ref}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient checks if an error is retry-able.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}
	if isNetworkError(err) {
		return true
	}
	if code := extractHTTPStatusCode(err); code > 0 {
		return isTransientHTTPStatus(code)
	}
	return false
}

// IsPermanent checks if an error is non-retry-able.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return true
	}
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return false
	}
	if IsNotFound(err) {
		return true
	}
	if code := extractHTTPStatusCode(err); code > 0 {
		return isPermanentHTTPStatus(code)
	}
	lowerErr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"not found",
		"not a participant",
		"permission denied",
		"invalid",
		"unauthorized",
		"forbidden",
		"bad request",
	} {
		if strings.Contains(lowerErr, pattern) {
			return true
		}
	}
	return false
}

// IsDegraded checks if an error allows degraded output.
func IsDegraded(err error) bool {
	var degradedErr *DegradedError
	return errors.As(err, &degradedErr)
}

// GetErrorType classifies an error.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	if IsDegraded(err) {
		return ErrorTypeDegraded
	}
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	// Default to permanent so nothing loops on retries.
	return ErrorTypePermanent
}

// UserMessage converts collaborator errors into the specific, apologetic
// text the presentation layer shows instead of a stack trace.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) && transientErr.Message != "" {
		return transientErr.Message
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) && permanentErr.Message != "" {
		return permanentErr.Message
	}
	var degradedErr *DegradedError
	if errors.As(err, &degradedErr) && degradedErr.Message != "" {
		return degradedErr.Message
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		switch notFound.Kind {
		case "contact":
			return "I couldn't find that contact. Try the full name or an email address."
		case "conversation":
			return "I couldn't find that conversation."
		default:
			return notFound.Error()
		}
	}

	lowerErr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErr, "rate limit") || strings.Contains(lowerErr, "429"):
		return "The assistant is handling too many requests right now. Please try again in a moment."
	case strings.Contains(lowerErr, "timeout") || strings.Contains(lowerErr, "deadline exceeded"):
		return "That took too long to complete. Please try again."
	case strings.Contains(lowerErr, "connection refused") || strings.Contains(lowerErr, "network"):
		return "A backing service is unreachable. Please try again shortly."
	case strings.Contains(lowerErr, "unauthorized") || strings.Contains(lowerErr, "401"):
		return "The assistant's API credentials were rejected. Check the configuration."
	}
	return err.Error()
}

// Helper constructors

// NewTransientError creates a transient error with a user-facing message.
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// NewPermanentError creates a permanent error with a user-facing message.
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// NewDegradedError creates a degraded error with fallback content.
func NewDegradedError(err error, message, fallback string) *DegradedError {
	return &DegradedError{Err: err, Message: message, FallbackContent: fallback}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"timeout",
		"deadline exceeded",
		"connection reset",
		"broken pipe",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isPermanentHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func extractHTTPStatusCode(err error) int {
	lowerErr := strings.ToLower(err.Error())
	for _, code := range []int{400, 401, 403, 404, 409, 422, 429, 500, 502, 503, 504} {
		if strings.Contains(lowerErr, fmt.Sprintf("status %d", code)) ||
			strings.Contains(lowerErr, fmt.Sprintf(" %d", code)) {
			return code
		}
	}
	return 0
}
