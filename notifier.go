package sessionkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Toast is the user-facing notification emitted once per terminal request
// failure. Kind is one of the sentinel errors from errors.go; Message is
// always populated (backend message when present, fixed per-kind text
// otherwise).
type Toast struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status,omitempty"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message"`

	Kind error `json:"-"`
}

// Notifier receives toasts for presentation. Implementations must be fast
// or buffer internally; the dispatcher already decouples emission from the
// request path.
type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

// NoOpNotifier defines a public type used by sessionkit APIs.
//
// NoOpNotifier instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NoOpNotifier struct{}

// Notify describes the notify operation and its observable behavior.
//
// Notify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (NoOpNotifier) Notify(context.Context, Toast) {}

// ChannelNotifier defines a public type used by sessionkit APIs.
//
// ChannelNotifier instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChannelNotifier struct {
	toasts chan Toast
}

// NewChannelNotifier describes the newchannelnotifier operation and its observable behavior.
//
// NewChannelNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelNotifier{
		toasts: make(chan Toast, buffer),
	}
}

// Notify describes the notify operation and its observable behavior.
//
// Notify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *ChannelNotifier) Notify(ctx context.Context, toast Toast) {
	select {
	case n.toasts <- toast:
	case <-ctx.Done():
	}
}

// Toasts describes the toasts operation and its observable behavior.
//
// Toasts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *ChannelNotifier) Toasts() <-chan Toast {
	return n.toasts
}

// JSONWriterNotifier defines a public type used by sessionkit APIs.
//
// JSONWriterNotifier instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JSONWriterNotifier struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterNotifier describes the newjsonwriternotifier operation and its observable behavior.
//
// NewJSONWriterNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewJSONWriterNotifier(w io.Writer) *JSONWriterNotifier {
	return &JSONWriterNotifier{writer: w}
}

// Notify describes the notify operation and its observable behavior.
//
// Notify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (n *JSONWriterNotifier) Notify(_ context.Context, toast Toast) {
	line, err := json.Marshal(toast)
	if err != nil {
		return
	}
	line = append(line, '\n')

	n.mu.Lock()
	_, _ = n.writer.Write(line)
	n.mu.Unlock()
}
