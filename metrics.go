package sessionkit

import (
	"sync/atomic"
)

// MetricID defines a public type used by sessionkit APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricRequestSuccess is an exported constant or variable used by the session client.
	MetricRequestSuccess MetricID = iota
	// MetricRequestFailure is an exported constant or variable used by the session client.
	MetricRequestFailure
	// MetricRequestRetried is an exported constant or variable used by the session client.
	MetricRequestRetried
	// MetricCacheHit is an exported constant or variable used by the session client.
	MetricCacheHit
	// MetricCacheMiss is an exported constant or variable used by the session client.
	MetricCacheMiss
	// MetricCacheInvalidation is an exported constant or variable used by the session client.
	MetricCacheInvalidation
	// MetricRefreshSuccess is an exported constant or variable used by the session client.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the session client.
	MetricRefreshFailure
	// MetricRefreshCoalesced is an exported constant or variable used by the session client.
	MetricRefreshCoalesced
	// MetricLoginSuccess is an exported constant or variable used by the session client.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the session client.
	MetricLoginFailure
	// MetricLogout is an exported constant or variable used by the session client.
	MetricLogout
	// MetricCheckAuthSuccess is an exported constant or variable used by the session client.
	MetricCheckAuthSuccess
	// MetricCheckAuthFailure is an exported constant or variable used by the session client.
	MetricCheckAuthFailure
	// MetricToastEmitted is an exported constant or variable used by the session client.
	MetricToastEmitted
	// MetricRealtimeOpened is an exported constant or variable used by the session client.
	MetricRealtimeOpened
	// MetricRealtimeClosed is an exported constant or variable used by the session client.
	MetricRealtimeClosed
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by sessionkit APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by sessionkit APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled describes the enabled operation and its observable behavior.
//
// Enabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
//
// Value does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
