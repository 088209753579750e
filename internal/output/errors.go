package output

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/jam/pkg/auth"
	"github.com/Sternrassler/jam/pkg/client"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    "Check JAM_CLIENT_ID and JAM_CLIENT_SECRET",
	}
}

func ErrForbidden(msg string) *Error {
	return &Error{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Message: "Network error",
		Hint:    cause.Error(),
		Cause:   cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

func ErrAmbiguous(resource string, matches []string) *Error {
	hint := "Be more specific"
	if len(matches) > 0 && len(matches) <= 5 {
		hint = fmt.Sprintf("Did you mean: %v", matches)
	}
	return &Error{
		Code:    CodeAmbiguous,
		Message: fmt.Sprintf("Ambiguous %s", resource),
		Hint:    hint,
	}
}

// AsError converts any error to an *Error. API errors are classified by
// status and class; everything else becomes a generic API error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return FromAPIError(apiErr, err)
	}

	if errors.Is(err, auth.ErrMissingClientCredentials) {
		return &Error{
			Code:    CodeAuth,
			Message: "Client credentials not configured",
			Hint:    "Set JAM_CLIENT_ID and JAM_CLIENT_SECRET",
			Cause:   err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork(err)
	}

	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

// FromAPIError maps a failed request to an *Error. wrapped is the error as
// returned to the caller, kept as the cause so its context is not lost.
func FromAPIError(apiErr *client.APIError, wrapped error) *Error {
	if wrapped == nil {
		wrapped = apiErr
	}

	switch {
	case apiErr.Class == client.ErrorClassAuth:
		e := ErrAuth("Token exchange rejected: " + apiErr.Message)
		e.HTTPStatus = apiErr.StatusCode
		e.Cause = wrapped
		return e
	case apiErr.StatusCode == http.StatusUnauthorized:
		e := ErrAuth("Access token rejected")
		e.HTTPStatus = apiErr.StatusCode
		e.Cause = wrapped
		return e
	case apiErr.StatusCode == http.StatusForbidden:
		e := ErrForbidden("Access denied: " + apiErr.Endpoint)
		e.Cause = wrapped
		return e
	case apiErr.StatusCode == http.StatusNotFound:
		return &Error{
			Code:       CodeNotFound,
			Message:    fmt.Sprintf("Not found: %s", apiErr.Endpoint),
			HTTPStatus: apiErr.StatusCode,
			Cause:      wrapped,
		}
	case apiErr.Class == client.ErrorClassNetwork:
		return ErrNetwork(wrapped)
	default:
		e := ErrAPI(apiErr.StatusCode, wrapped.Error())
		e.Cause = wrapped
		return e
	}
}
