package sessionkit

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by sessionkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	HTTP     HTTPConfig
	Cache    CacheConfig
	Token    TokenConfig
	Toast    ToastConfig
	Realtime RealtimeConfig
	Metrics  MetricsConfig
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig defines a public type used by sessionkit APIs.
//
// HTTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HTTPConfig struct {
	BaseURL          string
	Timeout          time.Duration
	UserAgent        string
	MaxResponseBytes int64
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig defines a public type used by sessionkit APIs.
//
// CacheConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by sessionkit APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// ExpiryLeeway widens the expiry check so a token about to lapse is
	// refreshed before the backend rejects it.
	ExpiryLeeway time.Duration
}

/*
====================================
TOAST CONFIG
====================================
*/

// ToastConfig defines a public type used by sessionkit APIs.
//
// ToastConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ToastConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
REALTIME CONFIG
====================================
*/

// RealtimeConfig defines a public type used by sessionkit APIs.
//
// RealtimeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RealtimeConfig struct {
	Enabled     bool
	URL         string
	DialTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by sessionkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:          10 * time.Second,
			UserAgent:        "sessionkit/1.0",
			MaxResponseBytes: 1 << 20,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Token: TokenConfig{
			ExpiryLeeway: 30 * time.Second,
		},
		Toast: ToastConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Realtime: RealtimeConfig{
			Enabled:     false,
			DialTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// No reference fields today; the copy keeps callers from mutating the
	// client's view after Build.
	return cfg
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.BaseURL) == "" {
		return errors.New("HTTP.BaseURL is required")
	}
	u, err := url.Parse(c.HTTP.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("HTTP.BaseURL must be an absolute URL")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP.Timeout must be positive")
	}
	if c.HTTP.MaxResponseBytes <= 0 {
		return errors.New("HTTP.MaxResponseBytes must be positive")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("Cache.TTL must be positive when the cache is enabled")
	}
	if c.Token.ExpiryLeeway < 0 || c.Token.ExpiryLeeway > 5*time.Minute {
		return errors.New("invalid Token.ExpiryLeeway configuration")
	}
	if c.Toast.Enabled && c.Toast.BufferSize <= 0 {
		return errors.New("Toast.BufferSize must be positive when toasts are enabled")
	}
	if c.Realtime.Enabled {
		if strings.TrimSpace(c.Realtime.URL) == "" {
			return errors.New("Realtime.URL is required when realtime is enabled")
		}
		ru, err := url.Parse(c.Realtime.URL)
		if err != nil || (ru.Scheme != "ws" && ru.Scheme != "wss") {
			return errors.New("Realtime.URL must be a ws:// or wss:// URL")
		}
		if c.Realtime.DialTimeout <= 0 {
			return errors.New("Realtime.DialTimeout must be positive")
		}
	}
	return nil
}
