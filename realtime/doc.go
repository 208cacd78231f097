// Package realtime is the client side of the notification/chat channel: a
// WebSocket connection carrying named JSON events in both directions.
//
// # Architecture boundaries
//
// The channel is opened with the current access token when the session
// becomes authenticated and closed when it collapses; the session client
// owns that lifecycle. This package only moves envelopes — it does not
// interpret event payloads, refresh tokens, or reconnect on its own.
//
// # What this package must NOT do
//
//   - Import sessionkit (the session client imports realtime, never the
//     reverse).
//   - Buffer or persist events past the life of the connection.
package realtime
