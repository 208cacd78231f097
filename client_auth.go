package sessionkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/edusphere/sessionkit/internal/flows"
	"github.com/edusphere/sessionkit/jwt"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Login(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	c.authMu.Lock()
	defer c.authMu.Unlock()

	c.setState(StateAuthenticating, nil, nil)

	result := flows.RunLogin(ctx, pathLogin, creds.Email, creds.Password, creds.Role, flows.LoginDeps{
		Post: func(ctx context.Context, path string, body []byte) (int, []byte, error) {
			return c.core.send(ctx, http.MethodPost, path, nil, body, "")
		},
		DecodeLogin: func(body []byte) ([]byte, string, string, error) {
			payload, err := decodeLogin(body)
			if err != nil {
				return nil, "", "", err
			}
			return payload.User, payload.Access, payload.Refresh, nil
		},
		SaveTokens: func(ctx context.Context, access, refresh string) error {
			return c.tokens.Save(ctx, TokenPair{AccessToken: access, RefreshToken: refresh})
		},
	})

	switch result.Failure {
	case flows.LoginFailureNone:
		c.metricInc(MetricLoginSuccess)
		c.setState(StateAuthenticated, result.User, nil)
		c.openChannel(ctx, result.AccessToken)
		user := make(json.RawMessage, len(result.User))
		copy(user, result.User)
		return user, nil

	case flows.LoginFailureRejected:
		apiErr := newAPIError(classifyStatus(result.Status), result.Status, errorMessage(result.Body))
		c.metricInc(MetricLoginFailure)
		c.emitToast(ctx, http.MethodPost, pathLogin, apiErr)
		c.setState(StateError, nil, apiErr)
		return nil, apiErr

	case flows.LoginFailureNetwork:
		apiErr := newAPIError(ErrNetwork, 0, "")
		c.metricInc(MetricLoginFailure)
		c.emitToast(ctx, http.MethodPost, pathLogin, apiErr)
		c.setState(StateError, nil, apiErr)
		return nil, apiErr

	default: // decode or store failure
		apiErr := newAPIError(ErrServer, result.Status, "")
		c.metricInc(MetricLoginFailure)
		c.emitToast(ctx, http.MethodPost, pathLogin, apiErr)
		c.setState(StateError, nil, apiErr)
		return nil, fmt.Errorf("%w: %v", apiErr, result.Err)
	}
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.authMu.Lock()
	defer c.authMu.Unlock()

	err := flows.RunLogout(ctx, pathLogout, flows.LogoutDeps{
		Post: func(ctx context.Context, path string, body []byte) (int, []byte, error) {
			access := ""
			if pair, loadErr := c.tokens.Load(ctx); loadErr == nil && pair != nil {
				access = pair.AccessToken
			}
			return c.core.send(ctx, http.MethodPost, path, nil, body, access)
		},
		ClearTokens: c.tokens.Clear,
		ClearCache:  c.clearCache,
		Warn:        c.warnf,
	})

	c.metricInc(MetricLogout)
	c.closeChannel()
	c.setState(StateUnauthenticated, nil, nil)
	return err
}

// CheckAuth revalidates a persisted session on app start or resume. It
// refreshes an expired access token when possible and re-fetches the
// current user; any failure collapses the session to Unauthenticated.
func (c *Client) CheckAuth(ctx context.Context) (SessionState, error) {
	if c.closed.Load() {
		return StateUnauthenticated, ErrClientClosed
	}
	c.authMu.Lock()
	defer c.authMu.Unlock()

	result := flows.RunCheckAuth(ctx, pathUser, flows.CheckAuthDeps{
		LoadTokens: func(ctx context.Context) (string, string, error) {
			pair, err := c.tokens.Load(ctx)
			if err != nil {
				return "", "", err
			}
			if pair == nil {
				return "", "", nil
			}
			return pair.AccessToken, pair.RefreshToken, nil
		},
		IsExpired: func(access string) bool {
			return jwt.IsExpired(access, c.config.Token.ExpiryLeeway)
		},
		Refresh: func(ctx context.Context) (string, error) {
			pair, err := c.refresher.Refresh(ctx)
			if err != nil {
				return "", err
			}
			return pair.AccessToken, nil
		},
		FetchUser: func(ctx context.Context, access string) (int, []byte, error) {
			return c.core.send(ctx, http.MethodGet, pathUser, nil, nil, access)
		},
		ClearTokens: c.tokens.Clear,
		Warn:        c.warnf,
	})

	switch result.Failure {
	case flows.CheckAuthFailureNone:
		user, err := decodeResource(result.User)
		if err != nil {
			c.metricInc(MetricCheckAuthFailure)
			c.closeChannel()
			c.setState(StateUnauthenticated, nil, nil)
			return StateUnauthenticated, fmt.Errorf("%w: %v", ErrServer, err)
		}
		c.metricInc(MetricCheckAuthSuccess)
		c.setState(StateAuthenticated, user, nil)
		if pair, loadErr := c.tokens.Load(ctx); loadErr == nil && pair != nil {
			c.openChannel(ctx, pair.AccessToken)
		}
		return StateAuthenticated, nil

	case flows.CheckAuthFailureNoSession:
		c.metricInc(MetricCheckAuthFailure)
		c.closeChannel()
		c.setState(StateUnauthenticated, nil, nil)
		return StateUnauthenticated, nil

	case flows.CheckAuthFailureRefresh:
		c.metricInc(MetricCheckAuthFailure)
		c.closeChannel()
		if !errors.Is(result.Err, ErrNetwork) {
			// The refresh token is dead; the flow already cleared the store.
			_ = c.clearCache(ctx)
		}
		c.setState(StateUnauthenticated, nil, nil)
		return StateUnauthenticated, result.Err

	default: // identity fetch failed
		c.metricInc(MetricCheckAuthFailure)
		c.closeChannel()
		c.setState(StateUnauthenticated, nil, nil)
		return StateUnauthenticated, fmt.Errorf("current user fetch failed: %w", result.Err)
	}
}

// runRefresh is the coordinator's single-flight body: it exchanges the
// stored refresh token for a new pair. Errors wrap ErrNetwork for
// transient failures and ErrAuthExpired for irrecoverable ones.
func (c *Client) runRefresh(ctx context.Context) (TokenPair, error) {
	result := flows.RunRefresh(ctx, pathRefresh, flows.RefreshDeps{
		LoadRefreshToken: func(ctx context.Context) (string, error) {
			pair, err := c.tokens.Load(ctx)
			if err != nil {
				return "", err
			}
			if pair == nil {
				return "", nil
			}
			return pair.RefreshToken, nil
		},
		Post: func(ctx context.Context, path string, body []byte) (int, []byte, error) {
			return c.core.send(ctx, http.MethodPost, path, nil, body, "")
		},
		DecodePair: func(body []byte) (string, string, error) {
			pair, err := decodeTokenPair(body)
			if err != nil {
				return "", "", err
			}
			return pair.AccessToken, pair.RefreshToken, nil
		},
		SaveTokens: func(ctx context.Context, access, refresh string) error {
			return c.tokens.Save(ctx, TokenPair{AccessToken: access, RefreshToken: refresh})
		},
		ClearTokens: c.tokens.Clear,
		Warn:        c.warnf,
	})

	switch result.Failure {
	case flows.RefreshFailureNone:
		c.metricInc(MetricRefreshSuccess)
		return TokenPair{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken}, nil

	case flows.RefreshFailureNetwork:
		c.metricInc(MetricRefreshFailure)
		if errors.Is(result.Err, ErrNetwork) {
			return TokenPair{}, result.Err
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrNetwork, result.Err)

	default: // no token, rejected, undecodable, or store failure
		c.metricInc(MetricRefreshFailure)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrAuthExpired, result.Err)
	}
}

func (c *Client) clearCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	c.metricInc(MetricCacheInvalidation)
	return c.cache.Invalidate(ctx, "")
}
