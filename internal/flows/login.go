package flows

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureNetwork
	LoginFailureRejected
	LoginFailureDecode
	LoginFailureStore
)

// LoginResult carries the authenticated identity or failure metadata.
// Body is retained on rejection so the backend message can be surfaced.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Status       int
	Body         []byte
	User         []byte
	AccessToken  string
	RefreshToken string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Post        func(ctx context.Context, path string, body []byte) (int, []byte, error)
	DecodeLogin func(body []byte) (user []byte, access, refresh string, err error)
	SaveTokens  func(ctx context.Context, access, refresh string) error
}

// RunLogin posts credentials and persists the issued pair.
func RunLogin(ctx context.Context, path, email, password, role string, deps LoginDeps) LoginResult {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
		"role":     role,
	})
	if err != nil {
		return LoginResult{Failure: LoginFailureDecode, Err: err}
	}

	status, respBody, err := deps.Post(ctx, path, body)
	if err != nil {
		return LoginResult{Failure: LoginFailureNetwork, Err: err}
	}
	if status < 200 || status >= 300 {
		return LoginResult{
			Failure: LoginFailureRejected,
			Err:     fmt.Errorf("login rejected with status %d", status),
			Status:  status,
			Body:    respBody,
		}
	}

	user, access, refresh, err := deps.DecodeLogin(respBody)
	if err != nil {
		return LoginResult{Failure: LoginFailureDecode, Err: err}
	}

	if err := deps.SaveTokens(ctx, access, refresh); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	return LoginResult{
		Failure:      LoginFailureNone,
		Status:       status,
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
