package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// GeocodingError describes a failed provider call.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeRateLimit
	ErrorTypeQuotaExceeded
	ErrorTypeTimeout
	ErrorTypeNotFound
	ErrorTypeInvalidRequest
	ErrorTypeNetwork
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeQuotaExceeded:
		return "quota_exceeded"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeInvalidRequest:
		return "invalid_request"
	case ErrorTypeNetwork:
		return "network"
	default:
		return "unknown"
	}
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// ClassifyHTTPStatus maps a non-200 provider response to a GeocodingError.
func ClassifyHTTPStatus(statusCode int, body string) *GeocodingError {
	var t ErrorType
	switch statusCode {
	case http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		t = ErrorTypeQuotaExceeded
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		t = ErrorTypeInvalidRequest
	case http.StatusNotFound:
		t = ErrorTypeNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		t = ErrorTypeNetwork
	default:
		t = ErrorTypeUnknown
	}
	msg := fmt.Sprintf("geocoding API error: status %d", statusCode)
	if body != "" {
		msg += ": " + body
	}
	return &GeocodingError{Type: t, Message: msg}
}

// ClassifyTransportError wraps an error returned by the HTTP client.
func ClassifyTransportError(err error) *GeocodingError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GeocodingError{Type: ErrorTypeTimeout, Message: "geocoding request timed out", Err: err}
	}
	return &GeocodingError{Type: ErrorTypeNetwork, Message: "geocoding request failed", Err: err}
}

// IsRetryable reports whether a failed lookup may succeed when repeated.
// Rate limits, timeouts, network and unclassified errors are retried;
// rejected requests, exhausted quotas and not-found answers are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var geoErr *GeocodingError
	if !errors.As(err, &geoErr) {
		return true
	}
	switch geoErr.Type {
	case ErrorTypeInvalidRequest, ErrorTypeQuotaExceeded, ErrorTypeNotFound:
		return false
	default:
		return true
	}
}
