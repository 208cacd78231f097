package sessionkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Response normalization happens here and nowhere else. Each endpoint
// category (list, single resource, error) has one decoder, so call sites
// never sniff body shapes.

// decodeList parses a paginated collection body
// (`{results, count, next, previous}`).
func decodeList(body []byte) (*ListPage, error) {
	var page ListPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("malformed list body: %w", err)
	}
	if page.Results == nil {
		page.Results = []json.RawMessage{}
	}
	return &page, nil
}

// decodeResource normalizes a single-resource body. Backends answer either
// with the bare resource or with a `{"data": ...}` wrapper; the wrapper is
// unwrapped exactly once and everything downstream sees the bare resource.
func decodeResource(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, errors.New("malformed resource body")
		}
		return json.RawMessage(trimmed), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("malformed resource body: %w", err)
	}
	if data, ok := probe["data"]; ok && len(probe) == 1 {
		return data, nil
	}
	return json.RawMessage(trimmed), nil
}

// errorMessage extracts the backend `{message}` field from an error body.
// Absent or undecodable bodies yield "" and the caller falls back to the
// fixed per-kind message.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// loginPayload is the authentication contract of POST /auth/login/.
type loginPayload struct {
	User    json.RawMessage `json:"user"`
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
}

func decodeLogin(body []byte) (*loginPayload, error) {
	var payload loginPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed login body: %w", err)
	}
	if payload.Access == "" || payload.Refresh == "" {
		return nil, errors.New("login body missing token pair")
	}
	return &payload, nil
}

// decodeTokenPair parses the `{access, refresh}` body of POST /auth/refresh/.
func decodeTokenPair(body []byte) (*TokenPair, error) {
	var pair TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, fmt.Errorf("malformed refresh body: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, errors.New("refresh body missing token pair")
	}
	return &pair, nil
}
