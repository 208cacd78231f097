package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Event names delivered by the backend.
const (
	// EventChatMessage is an exported constant or variable used by the realtime channel.
	EventChatMessage = "chat_message"
	// EventBehaviorAlert is an exported constant or variable used by the realtime channel.
	EventBehaviorAlert = "behavior_alert"
	// EventPerformanceUpdate is an exported constant or variable used by the realtime channel.
	EventPerformanceUpdate = "performance_update"
	// EventNotification is an exported constant or variable used by the realtime channel.
	EventNotification = "notification"
	// EventAIModelUpdate is an exported constant or variable used by the realtime channel.
	EventAIModelUpdate = "ai_model_update"
)

// Emit names understood by the backend.
const (
	// EmitJoinRoom is an exported constant or variable used by the realtime channel.
	EmitJoinRoom = "join_room"
	// EmitSendMessage is an exported constant or variable used by the realtime channel.
	EmitSendMessage = "send_message"
	// EmitSubscribePrefix prefixes the per-topic subscription emits
	// (subscribe_behavior, subscribe_performance, ...).
	EmitSubscribePrefix = "subscribe_"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultMaxReadBytes = 1 << 20 // 1MiB
)

// Envelope is one channel frame: a named event with an opaque payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the payload of one delivered event. Handlers run on the
// channel's read loop and must not block.
type Handler func(data json.RawMessage)

// Options tune a dialed channel. The zero value is usable.
type Options struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	MaxReadBytes int64
	Logger       *zap.Logger
}

// Channel is one live connection to the notification service.
type Channel struct {
	conn         *websocket.Conn
	log          *zap.Logger
	writeTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string][]Handler

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the notification service, authenticating with the
// bearer token as a query parameter. The caller owns the returned channel
// and must Close it when the session ends.
func Dial(ctx context.Context, wsURL, accessToken string, opts Options) (*Channel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid channel URL: %w", err)
	}
	if accessToken != "" {
		q := u.Query()
		q.Set("token", accessToken)
		u.RawQuery = q.Encode()
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	defer cancelDial()

	conn, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("channel dial failed: %w", err)
	}

	maxRead := opts.MaxReadBytes
	if maxRead <= 0 {
		maxRead = defaultMaxReadBytes
	}
	conn.SetReadLimit(maxRead)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		conn:         conn,
		log:          log,
		writeTimeout: writeTimeout,
		handlers:     make(map[string][]Handler),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go c.readLoop(readCtx)

	return c, nil
}

// On registers a handler for the named event. Multiple handlers per event
// are invoked in registration order.
func (c *Channel) On(event string, h Handler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.mu.Unlock()
}

// Emit sends a named event to the backend.
func (c *Channel) Emit(ctx context.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal emit payload: %w", err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal emit envelope: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	if err := c.conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("channel write failed: %w", err)
	}
	return nil
}

// Done is closed when the read loop terminates, whether by Close or by the
// peer dropping the connection.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down. Idempotent.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

func (c *Channel) readLoop(ctx context.Context) {
	defer close(c.done)

	for {
		_, frame, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.log.Warn("channel read failed", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.log.Debug("dropping malformed channel frame", zap.Error(err))
			continue
		}

		c.mu.RLock()
		handlers := c.handlers[env.Event]
		c.mu.RUnlock()

		if len(handlers) == 0 {
			c.log.Debug("dropping unhandled channel event", zap.String("event", env.Event))
			continue
		}
		for _, h := range handlers {
			h(env.Data)
		}
	}
}
