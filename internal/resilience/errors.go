// Package resilience classifies backend failures and provides the rate
// limiting and retry primitives used in front of paid backends.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Class is the failure taxonomy shared by every external backend.
type Class int

const (
	ClassUnknown Class = iota
	ClassNetwork
	ClassAuthentication
	ClassRateLimit
	ClassQuotaExceeded
	ClassValidation
	ClassServer
	ClassTimeout
)

func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassAuthentication:
		return "authentication"
	case ClassRateLimit:
		return "rate_limit"
	case ClassQuotaExceeded:
		return "quota_exceeded"
	case ClassValidation:
		return "validation"
	case ClassServer:
		return "server"
	case ClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
// Authentication and validation failures never recover by retrying.
func (c Class) Retryable() bool {
	return c != ClassAuthentication && c != ClassValidation
}

// Error is a classified backend failure.
type Error struct {
	Class      Class
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an explicit class.
func NewError(class Class, err error) *Error {
	return &Error{Class: class, Err: err}
}

// StatusError builds a classified error from an HTTP response status.
func StatusError(code int, body string) *Error {
	return &Error{
		Class:      ClassForStatus(code),
		StatusCode: code,
		Err:        fmt.Errorf("API error (status %d): %s", code, body),
	}
}

// Validation marks err as a malformed-input failure.
func Validation(err error) *Error {
	return NewError(ClassValidation, err)
}

// ClassForStatus maps an HTTP status code to a failure class.
func ClassForStatus(code int) Class {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ClassAuthentication
	case code == http.StatusTooManyRequests:
		return ClassRateLimit
	case code == http.StatusPaymentRequired:
		return ClassQuotaExceeded
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ClassTimeout
	case code >= 400 && code < 500:
		return ClassValidation
	case code >= 500:
		return ClassServer
	default:
		return ClassUnknown
	}
}

// Classify returns the class of err. Unclassified errors are inspected for
// context deadlines and transport failures before falling back to unknown.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassNetwork
	}

	return ClassUnknown
}

// IsRetryable reports whether err belongs to a retryable class.
func IsRetryable(err error) bool {
	return err != nil && Classify(err).Retryable()
}
