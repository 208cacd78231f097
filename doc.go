// Package sessionkit provides the client session layer for a
// school-management REST backend: token persistence, single-flight token
// refresh, a TTL-bounded response cache with write invalidation, and a
// session facade that keeps auth state, the current user, and the
// notification channel consistent.
//
// The package is designed for concurrent callers: Client methods are safe
// to use from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Client], [Builder],
// [Config], and value types (TokenPair, ListPage, Toast, MetricsSnapshot).
// Flow orchestration lives under internal/ and is never exported; claim
// inspection and the notification channel live in the jwt and realtime
// subpackages.
//
// # What this package must NOT do
//
//   - Interpret resource payloads — students, lessons, families and the
//     rest of the data model pass through as opaque JSON.
//   - Navigate or render anything on auth failure; it only emits state
//     changes and toasts for the host application to act on.
//   - Issue more than one concurrent refresh request, or retry a 401'd
//     request more than once.
//
// # Refresh contract
//
// Any number of requests observing a 401 concurrently are serialized
// behind exactly one call to the refresh endpoint and resume with the same
// refreshed pair. A refresh rejected by the backend clears the token store
// and collapses the session; a refresh that merely could not reach the
// backend leaves the stored pair intact.
package sessionkit
