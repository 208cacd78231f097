package flows

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type refreshHarness struct {
	stored  string
	cleared bool
	saved   [2]string
	status  int
	body    []byte
	postErr error
}

func (h *refreshHarness) deps() RefreshDeps {
	return RefreshDeps{
		LoadRefreshToken: func(context.Context) (string, error) {
			return h.stored, nil
		},
		Post: func(_ context.Context, _ string, body []byte) (int, []byte, error) {
			var payload map[string]string
			if err := json.Unmarshal(body, &payload); err != nil {
				return 0, nil, err
			}
			if payload["refresh"] != h.stored {
				return 0, nil, errors.New("wrong refresh token posted")
			}
			return h.status, h.body, h.postErr
		},
		DecodePair: func(body []byte) (string, string, error) {
			var pair struct {
				Access  string `json:"access"`
				Refresh string `json:"refresh"`
			}
			if err := json.Unmarshal(body, &pair); err != nil {
				return "", "", err
			}
			if pair.Access == "" {
				return "", "", errors.New("missing access token")
			}
			return pair.Access, pair.Refresh, nil
		},
		SaveTokens: func(_ context.Context, access, refresh string) error {
			h.saved = [2]string{access, refresh}
			return nil
		},
		ClearTokens: func(context.Context) error {
			h.cleared = true
			return nil
		},
	}
}

func TestRunRefreshRotatesPair(t *testing.T) {
	h := &refreshHarness{stored: "ref1", status: 200, body: []byte(`{"access": "tok2", "refresh": "ref2"}`)}

	result := RunRefresh(context.Background(), "/auth/refresh/", h.deps())
	if result.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got %v (%v)", result.Failure, result.Err)
	}
	if result.AccessToken != "tok2" || result.RefreshToken != "ref2" {
		t.Fatalf("unexpected pair: %+v", result)
	}
	if h.saved != [2]string{"tok2", "ref2"} {
		t.Fatalf("pair not persisted: %v", h.saved)
	}
	if h.cleared {
		t.Fatalf("successful refresh cleared the store")
	}
}

func TestRunRefreshNoStoredToken(t *testing.T) {
	h := &refreshHarness{stored: ""}

	result := RunRefresh(context.Background(), "/auth/refresh/", h.deps())
	if result.Failure != RefreshFailureNoToken {
		t.Fatalf("expected no-token failure, got %v", result.Failure)
	}
}

func TestRunRefreshRejectedClearsStore(t *testing.T) {
	h := &refreshHarness{stored: "ref1", status: 401}

	result := RunRefresh(context.Background(), "/auth/refresh/", h.deps())
	if result.Failure != RefreshFailureRejected {
		t.Fatalf("expected rejection, got %v", result.Failure)
	}
	if !h.cleared {
		t.Fatalf("a dead refresh token must be cleared")
	}
}

func TestRunRefreshServerErrorKeepsStore(t *testing.T) {
	h := &refreshHarness{stored: "ref1", status: 503}

	result := RunRefresh(context.Background(), "/auth/refresh/", h.deps())
	if result.Failure != RefreshFailureNetwork {
		t.Fatalf("expected transient failure, got %v", result.Failure)
	}
	if h.cleared {
		t.Fatalf("a transient failure must not burn the stored pair")
	}
}

func TestRunRefreshTransportErrorKeepsStore(t *testing.T) {
	h := &refreshHarness{stored: "ref1", postErr: errors.New("connection refused")}

	result := RunRefresh(context.Background(), "/auth/refresh/", h.deps())
	if result.Failure != RefreshFailureNetwork {
		t.Fatalf("expected transient failure, got %v", result.Failure)
	}
	if h.cleared {
		t.Fatalf("a transport failure must not burn the stored pair")
	}
}

func TestRunRefreshUndecodableBodyClearsStore(t *testing.T) {
	h := &refreshHarness{stored: "ref1", status: 200, body: []byte(`{"access": ""}`)}

	result := RunRefresh(context.Background(), "/auth/refresh/", h.deps())
	if result.Failure != RefreshFailureDecode {
		t.Fatalf("expected decode failure, got %v", result.Failure)
	}
	if !h.cleared {
		t.Fatalf("an unreadable rotation must fail safe and clear")
	}
}
