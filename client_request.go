package sessionkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/edusphere/sessionkit/internal/flows"
)

// Get fetches a single resource, serving from the response cache when a
// fresh entry exists.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	body, err := c.Do(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return nil, err
	}
	resource, err := decodeResource(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	return resource, nil
}

// GetList fetches a paginated collection, serving from the response cache
// when a fresh entry exists.
func (c *Client) GetList(ctx context.Context, path string, query url.Values) (*ListPage, error) {
	body, err := c.Do(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return nil, err
	}
	page, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	return page, nil
}

// Post describes the post operation and its observable behavior.
//
// Post may return an error when input validation, dependency calls, or security checks fail.
// Post does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPost, path, payload)
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Put(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPut, path, payload)
}

// Patch describes the patch operation and its observable behavior.
//
// Patch may return an error when input validation, dependency calls, or security checks fail.
// Patch does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Patch(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, path, payload)
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil, false)
	return err
}

func (c *Client) write(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	respBody, err := c.Do(ctx, method, path, nil, body, false)
	if err != nil {
		return nil, err
	}
	resource, err := decodeResource(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServer, err)
	}
	return resource, nil
}

// Do executes one request end to end: cache consult for reads, bearer
// attachment, at most one refresh-and-retry on 401, cache population or
// invalidation, and error classification. The returned body is the raw
// response; Get/GetList/Post apply envelope normalization on top.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte, useCache bool) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	cachingOn := c.cache != nil && c.config.Cache.Enabled
	key := ""
	if useCache && cachingOn && (method == http.MethodGet || method == http.MethodHead) {
		key = cacheKey(path, query)
	}

	deps := flows.RequestDeps{
		LoadTokens: func(ctx context.Context) (string, bool, error) {
			pair, err := c.tokens.Load(ctx)
			if err != nil {
				return "", false, err
			}
			if pair == nil {
				return "", false, nil
			}
			return pair.AccessToken, pair.RefreshToken != "", nil
		},
		Send: c.core.send,
		Refresh: func(ctx context.Context) (string, error) {
			pair, err := c.refresher.Refresh(ctx)
			if err != nil {
				return "", err
			}
			return pair.AccessToken, nil
		},
		Warn: c.warnf,
	}
	if cachingOn {
		deps.CacheGet = c.cache.Get
		deps.CachePut = c.cache.Put
		deps.CacheInvalidate = func(ctx context.Context, prefix string) error {
			c.metricInc(MetricCacheInvalidation)
			return c.cache.Invalidate(ctx, prefix)
		}
	}

	result := flows.RunRequest(ctx, method, path, query, body, key, resourcePrefix(path), deps)
	if result.Retried {
		c.metricInc(MetricRequestRetried)
	}

	switch result.Outcome {
	case flows.OutcomeCacheHit:
		c.metricInc(MetricCacheHit)
		return result.Body, nil

	case flows.OutcomeSuccess:
		c.metricInc(MetricRequestSuccess)
		if key != "" {
			c.metricInc(MetricCacheMiss)
		}
		return result.Body, nil

	case flows.OutcomeHTTPError:
		apiErr := newAPIError(classifyStatus(result.Status), result.Status, errorMessage(result.Body))
		c.metricInc(MetricRequestFailure)
		c.emitToast(ctx, method, path, apiErr)
		return nil, apiErr

	case flows.OutcomeNetworkError:
		apiErr := newAPIError(ErrNetwork, 0, "")
		c.metricInc(MetricRequestFailure)
		c.emitToast(ctx, method, path, apiErr)
		return nil, apiErr

	case flows.OutcomeUnauthorized:
		apiErr := newAPIError(ErrUnauthorized, result.Status, errorMessage(result.Body))
		c.metricInc(MetricRequestFailure)
		c.emitToast(ctx, method, path, apiErr)
		c.collapseSession(ctx, apiErr)
		return nil, apiErr

	default: // flows.OutcomeAuthExpired
		if errors.Is(result.Err, ErrNetwork) {
			// The refresh could not reach the backend; the session may still
			// be recoverable. Surface a network failure, keep the tokens.
			apiErr := newAPIError(ErrNetwork, 0, "")
			c.metricInc(MetricRequestFailure)
			c.emitToast(ctx, method, path, apiErr)
			return nil, apiErr
		}
		apiErr := newAPIError(ErrAuthExpired, result.Status, "")
		c.metricInc(MetricRequestFailure)
		c.emitToast(ctx, method, path, apiErr)
		c.collapseSession(ctx, apiErr)
		return nil, apiErr
	}
}

// collapseSession is the request-path teardown after an irrecoverable auth
// failure: tokens and cache are cleared (both idempotent), the channel is
// closed, and listeners observe the transition.
func (c *Client) collapseSession(ctx context.Context, authErr error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if err := c.tokens.Clear(ctx); err != nil {
		c.log.Warn("token clear failed during session collapse")
	}
	_ = c.clearCache(ctx)
	c.closeChannel()
	c.setState(StateUnauthenticated, nil, authErr)
}
