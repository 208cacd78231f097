package sessionkit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/edusphere/sessionkit/realtime"
)

// Backend authentication endpoints. The rest of the API surface is opaque
// resource paths supplied by the caller.
const (
	pathLogin   = "/auth/login/"
	pathRefresh = "/auth/refresh/"
	pathLogout  = "/auth/logout/"
	pathUser    = "/auth/user/"
)

// Client defines a public type used by sessionkit APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config    Config
	log       *zap.Logger
	tokens    TokenStore
	cache     ResponseCache
	core      *httpCore
	refresher *refreshCoordinator
	toasts    *toastDispatcher
	metrics   *Metrics

	// authMu serializes session transitions: at most one of
	// login/logout/checkAuth (or a request-path collapse) is in flight.
	authMu sync.Mutex

	stateMu   sync.RWMutex
	state     SessionState
	user      json.RawMessage
	authErr   error
	listeners []StateListener
	channel   *realtime.Channel

	closed atomic.Bool
}

// State describes the state operation and its observable behavior.
//
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) State() SessionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// CurrentUser returns the opaque user document from the last successful
// login or revalidation, nil while unauthenticated.
func (c *Client) CurrentUser() json.RawMessage {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.user == nil {
		return nil
	}
	out := make(json.RawMessage, len(c.user))
	copy(out, c.user)
	return out
}

// AuthError returns the failure retained by the Error state, nil otherwise.
func (c *Client) AuthError() error {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.authErr
}

// OnStateChange registers a listener for session transitions. Listeners
// run synchronously after the transition commits and must not call back
// into the client's auth operations.
func (c *Client) OnStateChange(l StateListener) {
	if l == nil {
		return
	}
	c.stateMu.Lock()
	c.listeners = append(c.listeners, l)
	c.stateMu.Unlock()
}

// Channel returns the live notification channel, nil while the session is
// not authenticated or realtime is disabled.
func (c *Client) Channel() *realtime.Channel {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.channel
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return c.metrics.Snapshot()
}

// ToastsDropped describes the toastsdropped operation and its observable behavior.
//
// ToastsDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) ToastsDropped() uint64 {
	if c == nil || c.toasts == nil {
		return 0
	}
	return c.toasts.Dropped()
}

// Close releases the client's background resources: the notification
// channel and the toast dispatcher. Idempotent; a closed client rejects
// further operations with ErrClientClosed.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.stateMu.Lock()
	channel := c.channel
	c.channel = nil
	c.stateMu.Unlock()
	if channel != nil {
		_ = channel.Close()
	}
	if c.toasts != nil {
		c.toasts.Close()
	}
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) warnf(msg string, args ...any) {
	c.log.Warn(msg, zap.Any("details", args))
}

// setState commits a transition and notifies listeners. user is retained
// only for StateAuthenticated.
func (c *Client) setState(next SessionState, user json.RawMessage, authErr error) {
	c.stateMu.Lock()
	prev := c.state
	c.state = next
	c.authErr = authErr
	if next == StateAuthenticated {
		c.user = user
	} else {
		c.user = nil
	}
	listeners := make([]StateListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.stateMu.Unlock()

	if prev == next {
		return
	}
	change := StateChange{Previous: prev, Current: next, Err: authErr}
	for _, l := range listeners {
		l(change)
	}
}

// emitToast reports one terminal failure to the user-facing channel.
func (c *Client) emitToast(ctx context.Context, method, path string, apiErr *APIError) {
	if c.toasts == nil {
		return
	}
	c.toasts.Emit(ctx, Toast{
		Timestamp: time.Now(),
		Status:    apiErr.Status,
		Method:    method,
		Path:      path,
		Message:   apiErr.Message,
		Kind:      apiErr.Kind,
	})
	c.metricInc(MetricToastEmitted)
}

func newAPIError(kind error, status int, backendMsg string) *APIError {
	msg := backendMsg
	if msg == "" {
		msg = kindMessage(kind)
	}
	return &APIError{Kind: kind, Status: status, Message: msg}
}

// openChannel dials the notification service with the current access
// token. Best effort: a dial failure is logged, not fatal.
func (c *Client) openChannel(ctx context.Context, accessToken string) {
	if !c.config.Realtime.Enabled {
		return
	}
	channel, err := realtime.Dial(ctx, c.config.Realtime.URL, accessToken, realtime.Options{
		DialTimeout: c.config.Realtime.DialTimeout,
		Logger:      c.log,
	})
	if err != nil {
		c.log.Warn("notification channel dial failed", zap.Error(err))
		return
	}

	c.stateMu.Lock()
	old := c.channel
	c.channel = channel
	c.stateMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	c.metricInc(MetricRealtimeOpened)
}

func (c *Client) closeChannel() {
	c.stateMu.Lock()
	channel := c.channel
	c.channel = nil
	c.stateMu.Unlock()
	if channel != nil {
		_ = channel.Close()
		c.metricInc(MetricRealtimeClosed)
	}
}
