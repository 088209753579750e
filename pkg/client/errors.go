package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassAuth represents a rejected client-credentials exchange.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassDecode represents a 2xx response whose body could not be parsed.
	ErrorClassDecode ErrorClass = "decode"
)

// ErrNoTokenSource is returned by NewFactory when no token source is given.
var ErrNoTokenSource = errors.New("token source is required")

// APIError is returned for every failed request made through a Client or
// by the token exchange. It is never retried.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Method     string
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	target := e.Endpoint
	if e.Method != "" {
		target = e.Method + " " + e.Endpoint
	}
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s %s error: %s: %v", target, e.Class, e.Message, e.Err)
		}
		return fmt.Sprintf("%s %s error: %s", target, e.Class, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %s: %v", target, e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d): %s", target, e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the API answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Unauthorized reports whether the API rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Class == ErrorClassAuth
}

// ClassifyStatus maps an HTTP status code to an ErrorClass.
// Successful and informational codes map to the empty class.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
