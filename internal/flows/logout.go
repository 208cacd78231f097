package flows

import (
	"context"
	"errors"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Post        func(ctx context.Context, path string, body []byte) (int, []byte, error)
	ClearTokens func(ctx context.Context) error
	ClearCache  func(ctx context.Context) error
	Warn        func(string, ...any)
}

// RunLogout tears the session down. The server-side call is best effort:
// its failure is logged and never blocks the local teardown, and the
// teardown itself is idempotent.
func RunLogout(ctx context.Context, path string, deps LogoutDeps) error {
	status, _, err := deps.Post(ctx, path, nil)
	switch {
	case err != nil:
		if deps.Warn != nil {
			deps.Warn("server-side logout failed", err)
		}
	case status >= 400:
		if deps.Warn != nil {
			deps.Warn("server-side logout returned error status", status)
		}
	}

	var errs []error
	if err := deps.ClearTokens(ctx); err != nil {
		errs = append(errs, err)
	}
	if deps.ClearCache != nil {
		if err := deps.ClearCache(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
