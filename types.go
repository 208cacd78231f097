package sessionkit

import (
	"context"
	"encoding/json"
)

// TokenPair holds the bearer credentials for one authenticated session.
// It is owned by the TokenStore and mutated only by login, refresh, and
// logout; an access token is never knowingly kept past its expiry.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Credentials is the login request payload.
//
//	POST /auth/login/ {email, password, role} -> {user, access, refresh}
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SessionState represents the lifecycle state of the client session.
type SessionState uint8

const (
	// StateUnauthenticated is an exported constant or variable used by the session client.
	StateUnauthenticated SessionState = iota
	// StateAuthenticating is an exported constant or variable used by the session client.
	StateAuthenticating
	// StateAuthenticated is an exported constant or variable used by the session client.
	StateAuthenticated
	// StateError is an exported constant or variable used by the session client.
	StateError
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateChange is delivered to registered listeners whenever the session
// transitions. Navigation on auth loss is the host application's concern;
// the client only reports the transition.
type StateChange struct {
	Previous SessionState
	Current  SessionState
	// Err is set on transitions into StateError and on collapses caused by
	// an irrecoverable refresh.
	Err error
}

// StateListener receives session state transitions. Listeners are invoked
// synchronously after the transition commits and must not call back into
// the client's auth operations.
type StateListener func(StateChange)

// TokenStore is the persistence boundary for the token pair. Implementations
// must be safe for concurrent use; Clear is idempotent. Load returns nil
// without error when no pair is stored.
type TokenStore interface {
	Save(ctx context.Context, pair TokenPair) error
	Load(ctx context.Context) (*TokenPair, error)
	Clear(ctx context.Context) error
}

// ResponseCache is the time-boxed store for idempotent read responses,
// keyed by endpoint path plus canonicalized query. Get must never return a
// value older than the configured TTL. Invalidate with an empty prefix
// clears everything; with a non-empty prefix it removes every key
// containing that substring.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, prefix string) error
}

// ListPage is the normalized form of a paginated collection response
// (`{results, count, next, previous}`). Items stay opaque; the session
// layer does not interpret resource payloads.
type ListPage struct {
	Results  []json.RawMessage `json:"results"`
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
}
