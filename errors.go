package sessionkit

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest is an exported constant or variable used by the session client.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized is an exported constant or variable used by the session client.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is an exported constant or variable used by the session client.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is an exported constant or variable used by the session client.
	ErrNotFound = errors.New("not found")
	// ErrValidation is an exported constant or variable used by the session client.
	ErrValidation = errors.New("validation failed")
	// ErrServer is an exported constant or variable used by the session client.
	ErrServer = errors.New("server error")
	// ErrNetwork is an exported constant or variable used by the session client.
	ErrNetwork = errors.New("network unreachable")
	// ErrAuthExpired is an exported constant or variable used by the session client.
	ErrAuthExpired = errors.New("session expired")
	// ErrNotAuthenticated is an exported constant or variable used by the session client.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrClientClosed is an exported constant or variable used by the session client.
	ErrClientClosed = errors.New("client closed")
	// ErrClientNotReady is an exported constant or variable used by the session client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrNoRefreshToken is an exported constant or variable used by the session client.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// APIError is the classified failure returned by every request that reached
// a terminal outcome. Kind is always one of the sentinel errors above, so
// callers branch with errors.Is; Status carries the originating HTTP status
// (0 for transport-level failures) and Message the backend-provided message
// when one was present.
type APIError struct {
	Kind    error
	Status  int
	Message string
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
}

// Unwrap describes the unwrap operation and its observable behavior.
//
// Unwrap does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *APIError) Unwrap() error {
	return e.Kind
}

// classifyStatus maps a non-2xx HTTP status to its sentinel kind.
func classifyStatus(status int) error {
	switch {
	case status == 400:
		return ErrBadRequest
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status == 422:
		return ErrValidation
	default:
		return ErrServer
	}
}

// kindMessage returns the fixed user-facing message for a sentinel kind,
// used when the backend supplied no message of its own.
func kindMessage(kind error) string {
	switch {
	case errors.Is(kind, ErrBadRequest):
		return "The request could not be processed."
	case errors.Is(kind, ErrUnauthorized):
		return "Your session is no longer valid. Please sign in again."
	case errors.Is(kind, ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(kind, ErrNotFound):
		return "The requested resource was not found."
	case errors.Is(kind, ErrValidation):
		return "Some fields contain invalid values."
	case errors.Is(kind, ErrNetwork):
		return "Could not reach the server. Check your connection."
	case errors.Is(kind, ErrAuthExpired):
		return "Your session has expired. Please sign in again."
	default:
		return "Something went wrong on the server. Please try again."
	}
}
