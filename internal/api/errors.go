package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error taxonomy for directory-service failures. Callers classify with
// errors.Is; the wrapped text carries the server's message when available.
var (
	// ErrNetwork indicates a transient connectivity or timeout failure.
	ErrNetwork = errors.New("network error")
	// ErrAuth indicates a missing or expired bearer credential.
	ErrAuth = errors.New("auth error")
	// ErrValidation indicates the request was rejected as malformed
	// (e.g. an empty message with no attachments).
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates the target chat or message no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrPermission indicates a group-admin-only action by a non-admin.
	ErrPermission = errors.New("permission denied")
)

// classifyStatus maps an HTTP status and server message to the error taxonomy.
func classifyStatus(status int, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuth, message)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrPermission, message)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, message)
	case status >= 500:
		return fmt.Errorf("%w: server returned %d: %s", ErrNetwork, status, message)
	default:
		return fmt.Errorf("request failed with status %d: %s", status, message)
	}
}
