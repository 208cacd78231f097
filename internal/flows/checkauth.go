package flows

import (
	"context"
	"errors"
	"fmt"
)

// CheckAuthFailureKind classifies session revalidation failures.
type CheckAuthFailureKind int

const (
	CheckAuthFailureNone CheckAuthFailureKind = iota
	// CheckAuthFailureNoSession means no usable pair is stored.
	CheckAuthFailureNoSession
	// CheckAuthFailureRefresh means the stored access token was expired and
	// the refresh attempt failed.
	CheckAuthFailureRefresh
	// CheckAuthFailureFetch means the identity fetch failed; the session
	// collapses rather than present stale identity.
	CheckAuthFailureFetch
)

// CheckAuthResult carries the revalidated identity or failure metadata.
type CheckAuthResult struct {
	Failure CheckAuthFailureKind
	Err     error
	User    []byte
}

// CheckAuthDeps captures revalidation flow dependencies.
type CheckAuthDeps struct {
	LoadTokens  func(ctx context.Context) (access, refresh string, err error)
	IsExpired   func(access string) bool
	Refresh     func(ctx context.Context) (access string, err error)
	FetchUser   func(ctx context.Context, access string) (int, []byte, error)
	ClearTokens func(ctx context.Context) error
	Warn        func(string, ...any)
}

// RunCheckAuth validates a persisted session on app start or resume: it
// refreshes an expired access token when a refresh token exists, then
// re-fetches the current user so the session never presents stale identity.
func RunCheckAuth(ctx context.Context, userPath string, deps CheckAuthDeps) CheckAuthResult {
	access, refresh, err := deps.LoadTokens(ctx)
	if err != nil {
		return CheckAuthResult{Failure: CheckAuthFailureNoSession, Err: err}
	}
	if access == "" && refresh == "" {
		return CheckAuthResult{
			Failure: CheckAuthFailureNoSession,
			Err:     errors.New("no session persisted"),
		}
	}

	if access == "" || deps.IsExpired(access) {
		if refresh == "" {
			if clearErr := deps.ClearTokens(ctx); clearErr != nil && deps.Warn != nil {
				deps.Warn("token clear failed for expired session", clearErr)
			}
			return CheckAuthResult{
				Failure: CheckAuthFailureNoSession,
				Err:     errors.New("access token expired with no refresh token"),
			}
		}
		access, err = deps.Refresh(ctx)
		if err != nil {
			return CheckAuthResult{Failure: CheckAuthFailureRefresh, Err: err}
		}
	}

	status, body, err := deps.FetchUser(ctx, access)
	if err != nil {
		return CheckAuthResult{Failure: CheckAuthFailureFetch, Err: err}
	}
	if status < 200 || status >= 300 {
		return CheckAuthResult{
			Failure: CheckAuthFailureFetch,
			Err:     fmt.Errorf("identity fetch returned status %d", status),
		}
	}

	return CheckAuthResult{Failure: CheckAuthFailureNone, User: body}
}
