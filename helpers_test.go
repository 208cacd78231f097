package sessionkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// newTestClient builds a client against the given backend with caching and
// metrics on and a ChannelNotifier capturing toasts.
func newTestClient(t *testing.T, backend *httptest.Server, configure ...func(*Builder)) (*Client, *ChannelNotifier) {
	t.Helper()

	notifier := NewChannelNotifier(32)
	b := New().
		WithBaseURL(backend.URL).
		WithNotifier(notifier)
	for _, fn := range configure {
		fn(b)
	}

	client, err := b.Build()
	if err != nil {
		t.Fatalf("client build failed: %v", err)
	}
	t.Cleanup(client.Close)

	return client, notifier
}

func seedTokens(t *testing.T, client *Client, access, refresh string) {
	t.Helper()
	err := client.tokens.Save(context.Background(), TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	})
	if err != nil {
		t.Fatalf("token seed failed: %v", err)
	}
}

func storedPair(t *testing.T, client *Client) *TokenPair {
	t.Helper()
	pair, err := client.tokens.Load(context.Background())
	if err != nil {
		t.Fatalf("token load failed: %v", err)
	}
	return pair
}

// waitToast drains one toast from the capture notifier, failing the test if
// the dispatcher does not deliver it in time.
func waitToast(t *testing.T, notifier *ChannelNotifier) Toast {
	t.Helper()
	select {
	case toast := <-notifier.Toasts():
		return toast
	case <-time.After(2 * time.Second):
		t.Fatalf("no toast delivered")
		return Toast{}
	}
}

func wantNoToast(t *testing.T, notifier *ChannelNotifier) {
	t.Helper()
	select {
	case toast := <-notifier.Toasts():
		t.Fatalf("unexpected toast: %+v", toast)
	case <-time.After(50 * time.Millisecond):
	}
}

var testSigningKey = []byte("test-signing-key")

// mintToken issues a real HS256 token expiring at the given instant, so the
// expiry inspection path sees the same material a backend would hand out.
func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"exp": expiresAt.Unix(),
		"sub": "u1",
	})
	signed, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("token mint failed: %v", err)
	}
	return signed
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
