package flows

import (
	"context"
	"net/http"
	"net/url"
)

// RequestOutcome classifies how a request terminated for root-level mapping.
type RequestOutcome int

const (
	// OutcomeSuccess is a 2xx response from the backend.
	OutcomeSuccess RequestOutcome = iota
	// OutcomeCacheHit is a read served from the response cache without a
	// network call.
	OutcomeCacheHit
	// OutcomeHTTPError is a terminal non-2xx status (including a 401 on a
	// request that had no refresh token to spend).
	OutcomeHTTPError
	// OutcomeNetworkError is a transport-level failure.
	OutcomeNetworkError
	// OutcomeUnauthorized is a second 401 after a successful refresh; the
	// retry budget of one is exhausted.
	OutcomeUnauthorized
	// OutcomeAuthExpired means the refresh triggered by a 401 itself failed.
	OutcomeAuthExpired
)

// RequestResult carries the terminal body or failure metadata of one
// logical request, including its possible refresh-and-retry leg.
type RequestResult struct {
	Outcome RequestOutcome
	Status  int
	Body    []byte
	Retried bool
	Err     error
}

// RequestDeps captures request flow dependencies. Cache functions may be
// nil when caching is disabled.
type RequestDeps struct {
	CacheGet        func(ctx context.Context, key string) ([]byte, bool, error)
	CachePut        func(ctx context.Context, key string, value []byte) error
	CacheInvalidate func(ctx context.Context, prefix string) error
	LoadTokens      func(ctx context.Context) (access string, hasRefresh bool, err error)
	Send            func(ctx context.Context, method, path string, query url.Values, body []byte, access string) (int, []byte, error)
	Refresh         func(ctx context.Context) (access string, err error)
	Warn            func(string, ...any)
}

// RunRequest executes one request end to end: cache consult, dispatch,
// at most one refresh-and-retry on 401, and cache population or
// invalidation on success. cacheKey empty disables caching for this call;
// invalidatePrefix scopes the write-path invalidation.
func RunRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body []byte,
	cacheKey, invalidatePrefix string,
	deps RequestDeps,
) RequestResult {
	isRead := method == http.MethodGet || method == http.MethodHead

	if isRead && cacheKey != "" && deps.CacheGet != nil {
		value, ok, err := deps.CacheGet(ctx, cacheKey)
		switch {
		case err != nil:
			if deps.Warn != nil {
				deps.Warn("cache read failed", err)
			}
		case ok:
			return RequestResult{Outcome: OutcomeCacheHit, Body: value}
		}
	}

	access, hasRefresh, err := deps.LoadTokens(ctx)
	if err != nil {
		return RequestResult{Outcome: OutcomeNetworkError, Err: err}
	}

	status, respBody, err := deps.Send(ctx, method, path, query, body, access)
	if err != nil {
		return RequestResult{Outcome: OutcomeNetworkError, Err: err}
	}

	retried := false
	if status == http.StatusUnauthorized && hasRefresh {
		newAccess, err := deps.Refresh(ctx)
		if err != nil {
			return RequestResult{
				Outcome: OutcomeAuthExpired,
				Status:  status,
				Err:     err,
			}
		}

		retried = true
		status, respBody, err = deps.Send(ctx, method, path, query, body, newAccess)
		if err != nil {
			return RequestResult{Outcome: OutcomeNetworkError, Retried: true, Err: err}
		}
		if status == http.StatusUnauthorized {
			// Retry budget is one. A second 401 terminates the request.
			return RequestResult{
				Outcome: OutcomeUnauthorized,
				Status:  status,
				Body:    respBody,
				Retried: true,
			}
		}
	}

	if status >= 200 && status < 300 {
		if isRead {
			if cacheKey != "" && deps.CachePut != nil {
				if err := deps.CachePut(ctx, cacheKey, respBody); err != nil && deps.Warn != nil {
					deps.Warn("cache write failed", err)
				}
			}
		} else if deps.CacheInvalidate != nil {
			if err := deps.CacheInvalidate(ctx, invalidatePrefix); err != nil && deps.Warn != nil {
				deps.Warn("cache invalidation failed", err)
			}
		}
		return RequestResult{
			Outcome: OutcomeSuccess,
			Status:  status,
			Body:    respBody,
			Retried: retried,
		}
	}

	return RequestResult{
		Outcome: OutcomeHTTPError,
		Status:  status,
		Body:    respBody,
		Retried: retried,
	}
}
