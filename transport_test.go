package sessionkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestCacheKeyIsStable(t *testing.T) {
	a := cacheKey("/students/", url.Values{"page": {"2"}, "ordering": {"name"}})
	b := cacheKey("/students/", url.Values{"ordering": {"name"}, "page": {"2"}})
	if a != b {
		t.Fatalf("equivalent queries produce different keys: %q vs %q", a, b)
	}
	if a != "/students/?ordering=name&page=2" {
		t.Fatalf("unexpected key serialization: %q", a)
	}
	if got := cacheKey("/students/", nil); got != "/students/" {
		t.Fatalf("bare path key: %q", got)
	}
}

func TestResourcePrefix(t *testing.T) {
	cases := map[string]string{
		"/students/":           "/students/",
		"/students/3/":         "/students/",
		"/students/3/grades/":  "/students/",
		"/ai-teacher/lessons/": "/ai-teacher/",
		"/auth/login/":         "/auth/",
		"/":                    "/",
		"":                     "/",
		"/dashboard":           "/dashboard/",
	}
	for path, want := range cases {
		if got := resourcePrefix(path); got != want {
			t.Fatalf("resourcePrefix(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSendAttachesHeaders(t *testing.T) {
	type seen struct {
		accept, agent, requestID, auth, contentType string
	}
	var captured atomic.Value

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Store(seen{
			accept:      r.Header.Get("Accept"),
			agent:       r.Header.Get("User-Agent"),
			requestID:   r.Header.Get("X-Request-ID"),
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
		})
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	core, err := newHTTPCore(HTTPConfig{
		BaseURL:          backend.URL,
		UserAgent:        "sessionkit-test/1.0",
		MaxResponseBytes: 1 << 20,
	}, backend.Client(), zap.NewNop())
	if err != nil {
		t.Fatalf("core build failed: %v", err)
	}

	status, body, err := core.send(context.Background(), http.MethodPost, "/students/", nil, []byte(`{"name": "Ada"}`), "tok1")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if status != http.StatusOK || string(body) != `{}` {
		t.Fatalf("unexpected response: status=%d body=%s", status, body)
	}

	got, _ := captured.Load().(seen)
	if got.accept != "application/json" {
		t.Fatalf("Accept header: %q", got.accept)
	}
	if got.agent != "sessionkit-test/1.0" {
		t.Fatalf("User-Agent header: %q", got.agent)
	}
	if got.requestID == "" {
		t.Fatalf("X-Request-ID missing")
	}
	if got.auth != "Bearer tok1" {
		t.Fatalf("Authorization header: %q", got.auth)
	}
	if got.contentType != "application/json" {
		t.Fatalf("Content-Type header: %q", got.contentType)
	}
}

func TestSendOmitsBearerWhenEmpty(t *testing.T) {
	var auth atomic.Value
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	core, err := newHTTPCore(HTTPConfig{BaseURL: backend.URL, MaxResponseBytes: 1 << 20}, backend.Client(), zap.NewNop())
	if err != nil {
		t.Fatalf("core build failed: %v", err)
	}
	if _, _, err := core.send(context.Background(), http.MethodGet, "/health/", nil, nil, ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got, _ := auth.Load().(string); got != "" {
		t.Fatalf("public request carried Authorization %q", got)
	}
}

func TestSendBoundsResponseBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer backend.Close()

	core, err := newHTTPCore(HTTPConfig{BaseURL: backend.URL, MaxResponseBytes: 64}, backend.Client(), zap.NewNop())
	if err != nil {
		t.Fatalf("core build failed: %v", err)
	}
	_, body, err := core.send(context.Background(), http.MethodGet, "/big/", nil, nil, "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(body) != 64 {
		t.Fatalf("expected body capped at 64 bytes, got %d", len(body))
	}
}

func TestSendWrapsTransportFailure(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close()

	core, err := newHTTPCore(HTTPConfig{BaseURL: backend.URL, MaxResponseBytes: 1 << 20}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("core build failed: %v", err)
	}
	_, _, err = core.send(context.Background(), http.MethodGet, "/students/", nil, nil, "")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestBuildURLJoinsBasePath(t *testing.T) {
	core, err := newHTTPCore(HTTPConfig{BaseURL: "https://api.example.com/v1/", MaxResponseBytes: 1}, &http.Client{}, zap.NewNop())
	if err != nil {
		t.Fatalf("core build failed: %v", err)
	}
	got := core.buildURL("/students/", url.Values{"page": {"2"}})
	if got != "https://api.example.com/v1/students/?page=2" {
		t.Fatalf("unexpected URL: %q", got)
	}
}
