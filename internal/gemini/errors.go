package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure classes for remote calls. Callers classify with errors.Is:
// authentication and model-not-found failures are fatal for the client
// handle, generation and malformed-response failures are per-request.
var (
	ErrAuthentication    = errors.New("gemini: authentication rejected")
	ErrModelNotFound     = errors.New("gemini: model not found")
	ErrGeneration        = errors.New("gemini: generation failed")
	ErrMalformedResponse = errors.New("gemini: malformed response")
)

// APIError is an explicit error payload returned by the API.
type APIError struct {
	StatusCode int    // HTTP status
	Status     string // API status string, e.g. "NOT_FOUND"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: API error %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Unwrap maps the remote status onto a failure class so that
// errors.Is(err, ErrAuthentication) etc. work on API errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return ErrAuthentication
	case "NOT_FOUND":
		return ErrModelNotFound
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusNotFound:
		return ErrModelNotFound
	}
	// An invalid key surfaces as 400 INVALID_ARGUMENT rather than 401.
	if strings.Contains(e.Message, "API key not valid") {
		return ErrAuthentication
	}
	return ErrGeneration
}
