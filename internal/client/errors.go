package client

import (
	"fmt"
	"net/http"

	"github.com/quicktest-hq/quicktest/internal/errors"
)

// Sentinel errors returned by the client. Match them with errors.Is.
var (
	ErrNotFound          = errors.NewStd("not found")
	ErrForbidden         = errors.NewStd("forbidden")
	ErrInvalidRequest    = errors.NewStd("invalid request")
	ErrMalformedResponse = errors.NewStd("malformed response")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode    int
	Method        string
	Path          string
	Message       string
	Detail        string
	CorrelationID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	if e.CorrelationID != "" {
		msg += " (correlation id " + e.CorrelationID + ")"
	}
	return msg
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

func (e *APIError) category() errors.ErrorCategory {
	switch e.StatusCode {
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusBadRequest:
		return errors.CategoryValidation
	case http.StatusForbidden, http.StatusConflict:
		return errors.CategoryConflict
	default:
		return errors.CategoryHTTP
	}
}

func malformed(sessionID uint, part string) error {
	return errors.New(fmt.Errorf("%w: dashboard is missing %s", ErrMalformedResponse, part)).
		Component("client").
		Category(errors.CategoryMalformedResponse).
		Context("session_id", sessionID).
		Build()
}

func malformedErr(sessionID uint, part string, err error) error {
	return errors.New(fmt.Errorf("%w: dashboard %s: %w", ErrMalformedResponse, part, err)).
		Component("client").
		Category(errors.CategoryMalformedResponse).
		Context("session_id", sessionID).
		Build()
}
