package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChannelServer runs a websocket endpoint whose connection handling is
// supplied by the test. The returned URL is ready for Dial.
func newChannelServer(t *testing.T, tokens chan<- string, serve func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokens != nil {
			select {
			case tokens <- r.URL.Query().Get("token"):
			default:
			}
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		serve(r.Context(), conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialAuthenticatesWithQueryToken(t *testing.T) {
	tokens := make(chan string, 1)
	wsURL := newChannelServer(t, tokens, func(ctx context.Context, conn *websocket.Conn) {
		<-ctx.Done()
	})

	channel, err := Dial(context.Background(), wsURL, "tok1", Options{})
	require.NoError(t, err)
	defer channel.Close()

	select {
	case token := <-tokens:
		assert.Equal(t, "tok1", token)
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no connection")
	}
}

func TestChannelDeliversEventsToHandlers(t *testing.T) {
	wsURL := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn) {
		frame, _ := json.Marshal(Envelope{
			Event: EventNotification,
			Data:  json.RawMessage(`{"title": "exam graded"}`),
		})
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return
		}
		_, _, _ = conn.Read(ctx) // hold the connection until the client closes
	})

	channel, err := Dial(context.Background(), wsURL, "tok1", Options{})
	require.NoError(t, err)
	defer channel.Close()

	received := make(chan json.RawMessage, 1)
	channel.On(EventNotification, func(data json.RawMessage) {
		received <- data
	})

	select {
	case data := <-received:
		assert.JSONEq(t, `{"title": "exam graded"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestChannelSkipsMalformedFrames(t *testing.T) {
	wsURL := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte("not json"))
		frame, _ := json.Marshal(Envelope{Event: EventChatMessage, Data: json.RawMessage(`{"text": "hi"}`)})
		_ = conn.Write(ctx, websocket.MessageText, frame)
		_, _, _ = conn.Read(ctx)
	})

	channel, err := Dial(context.Background(), wsURL, "", Options{})
	require.NoError(t, err)
	defer channel.Close()

	received := make(chan json.RawMessage, 1)
	channel.On(EventChatMessage, func(data json.RawMessage) {
		received <- data
	})

	select {
	case data := <-received:
		assert.JSONEq(t, `{"text": "hi"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame after a malformed one was not delivered")
	}
}

func TestEmitSendsEnvelope(t *testing.T) {
	frames := make(chan Envelope, 1)
	wsURL := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn) {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			return
		}
		frames <- env
		_, _, _ = conn.Read(ctx)
	})

	channel, err := Dial(context.Background(), wsURL, "tok1", Options{})
	require.NoError(t, err)
	defer channel.Close()

	require.NoError(t, channel.Emit(context.Background(), EmitJoinRoom, map[string]string{"room": "class-7b"}))

	select {
	case env := <-frames:
		assert.Equal(t, EmitJoinRoom, env.Event)
		assert.JSONEq(t, `{"room": "class-7b"}`, string(env.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("emit never reached the server")
	}
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	wsURL := newChannelServer(t, nil, func(ctx context.Context, conn *websocket.Conn) {
		_, _, _ = conn.Read(ctx)
	})

	channel, err := Dial(context.Background(), wsURL, "tok1", Options{})
	require.NoError(t, err)

	require.NoError(t, channel.Close())
	require.NoError(t, channel.Close())

	select {
	case <-channel.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not terminate after Close")
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "://bad", "tok1", Options{})
	require.Error(t, err)
}

func TestDialTimesOutAgainstDeadEndpoint(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws/", "tok1", Options{DialTimeout: 200 * time.Millisecond})
	require.Error(t, err)
}
