package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// Transport failures
	ErrConnectionFailed = fmt.Errorf("connection failed")
	ErrTimeout          = fmt.Errorf("request timeout")
	ErrCanceled         = fmt.Errorf("request canceled")

	// Server errors (non-2xx)
	ErrServerError  = fmt.Errorf("server error")
	ErrNotFound     = fmt.Errorf("resource not found")
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrForbidden    = fmt.Errorf("forbidden")
	ErrBadRequest   = fmt.Errorf("bad request")
	ErrConflict     = fmt.Errorf("conflict")

	// Decode failures
	ErrDecodeFailed = fmt.Errorf("unexpected response body")

	// Local failures
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrNotConfigured = fmt.Errorf("API URL not configured")
)

// ErrorKind classifies a failed call
type ErrorKind int

const (
	UnknownFailure ErrorKind = iota
	TransportFailure
	ServerError
	DecodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case TransportFailure:
		return "transport"
	case ServerError:
		return "server"
	case DecodeFailure:
		return "decode"
	}
	return "unknown"
}

// KindOf classifies err. Errors not produced by this package are UnknownFailure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return UnknownFailure
	case errors.Is(err, ErrDecodeFailed):
		return DecodeFailure
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrTimeout), errors.Is(err, ErrCanceled):
		return TransportFailure
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ServerError
	}
	return UnknownFailure
}

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func newAPIError(status int, message string) *APIError {
	return &APIError{StatusCode: status, Message: message}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Unwrap(), e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Unwrap(), e.StatusCode, e.Message)
}

// Unwrap exposes the status sentinel so errors.Is(err, ErrUnauthorized) works
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusConflict:
		return ErrConflict
	}
	return ErrServerError
}
