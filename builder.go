package sessionkit

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Builder defines a public type used by sessionkit APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	logger     *zap.Logger
	httpClient *http.Client
	tokens     TokenStore
	cache      ResponseCache
	notifier   Notifier

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL describes the withbaseurl operation and its observable behavior.
//
// WithBaseURL does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.HTTP.BaseURL = baseURL
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithTokenStore describes the withtokenstore operation and its observable behavior.
//
// WithTokenStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.tokens = store
	return b
}

// WithResponseCache describes the withresponsecache operation and its observable behavior.
//
// WithResponseCache does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithResponseCache(cache ResponseCache) *Builder {
	b.cache = cache
	return b
}

// WithNotifier describes the withnotifier operation and its observable behavior.
//
// WithNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRealtimeURL enables the notification channel against the given
// ws:// or wss:// endpoint.
func (b *Builder) WithRealtimeURL(wsURL string) *Builder {
	b.config.Realtime.Enabled = true
	b.config.Realtime.URL = wsURL
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}

	tokens := b.tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	cache := b.cache
	if cache == nil && cfg.Cache.Enabled {
		cache = NewMemoryCache(cfg.Cache.TTL)
	}

	core, err := newHTTPCore(cfg.HTTP, b.httpClient, log)
	if err != nil {
		return nil, err
	}

	client := &Client{
		config:  cfg,
		log:     log,
		tokens:  tokens,
		cache:   cache,
		core:    core,
		metrics: NewMetrics(cfg.Metrics),
		state:   StateUnauthenticated,
	}
	client.toasts = newToastDispatcher(cfg.Toast, b.notifier)
	client.refresher = newRefreshCoordinator(client.runRefresh, func() {
		client.metricInc(MetricRefreshCoalesced)
	})

	b.built = true

	return client, nil
}
