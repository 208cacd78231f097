package sessionkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// httpCore owns outbound dispatch: URL building, bearer attachment, request
// tagging, and bounded body reads. Classification and retry policy live in
// the request flow; httpCore reports transport failures as ErrNetwork and
// hands HTTP statuses back untouched.
type httpCore struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	maxBody   int64
	log       *zap.Logger
}

func newHTTPCore(cfg HTTPConfig, client *http.Client, log *zap.Logger) (*httpCore, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &httpCore{
		base:      base,
		client:    client,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxResponseBytes,
		log:       log,
	}, nil
}

// cacheKey is the stable serialization of (path, query). url.Values.Encode
// sorts keys, so equivalent requests share one entry.
func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// resourcePrefix reduces a path to its first collection segment, the
// minimum invalidation scope after a write.
// "/students/3/" -> "/students/", "/ai-teacher/lessons/" -> "/ai-teacher/".
func resourcePrefix(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}

func (h *httpCore) buildURL(path string, query url.Values) string {
	u := *h.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send dispatches one request with the given bearer token (empty for
// public endpoints). The returned error is non-nil only for transport
// failures, wrapped as ErrNetwork; every HTTP status is a normal return.
func (h *httpCore) send(
	ctx context.Context,
	method, path string,
	query url.Values,
	body []byte,
	accessToken string,
) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.buildURL(path, query), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	h.log.Debug("request dispatched",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return resp.StatusCode, respBody, nil
}
