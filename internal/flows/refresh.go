package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureNetwork
	RefreshFailureRejected
	RefreshFailureDecode
	RefreshFailureStore
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	LoadRefreshToken func(ctx context.Context) (string, error)
	Post             func(ctx context.Context, path string, body []byte) (int, []byte, error)
	DecodePair       func(body []byte) (access, refresh string, err error)
	SaveTokens       func(ctx context.Context, access, refresh string) error
	ClearTokens      func(ctx context.Context) error
	Warn             func(string, ...any)
}

// RunRefresh exchanges the stored refresh token for a new pair. A 4xx from
// the refresh endpoint means the refresh token itself is dead: the stored
// pair is cleared and the session cannot be recovered. A 5xx or transport
// failure is transient and leaves the stored pair alone.
func RunRefresh(ctx context.Context, path string, deps RefreshDeps) RefreshResult {
	refresh, err := deps.LoadRefreshToken(ctx)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err}
	}
	if refresh == "" {
		return RefreshResult{
			Failure: RefreshFailureNoToken,
			Err:     errors.New("no refresh token stored"),
		}
	}

	body, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	status, respBody, err := deps.Post(ctx, path, body)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureNetwork, Err: err}
	}

	switch {
	case status >= 200 && status < 300:
		// fall through to decode
	case status >= 400 && status < 500:
		if clearErr := deps.ClearTokens(ctx); clearErr != nil && deps.Warn != nil {
			deps.Warn("token clear failed after rejected refresh", clearErr)
		}
		return RefreshResult{
			Failure: RefreshFailureRejected,
			Err:     fmt.Errorf("refresh rejected with status %d", status),
		}
	default:
		return RefreshResult{
			Failure: RefreshFailureNetwork,
			Err:     fmt.Errorf("refresh failed with status %d", status),
		}
	}

	access, newRefresh, err := deps.DecodePair(respBody)
	if err != nil {
		// A success status with an unreadable pair leaves us unsure whether
		// the server rotated the refresh token. Fail safe and clear.
		if clearErr := deps.ClearTokens(ctx); clearErr != nil && deps.Warn != nil {
			deps.Warn("token clear failed after undecodable refresh", clearErr)
		}
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	if err := deps.SaveTokens(ctx, access, newRefresh); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		AccessToken:  access,
		RefreshToken: newRefresh,
	}
}
