package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is an exported constant or variable used by the session client.
var ErrNoExpiry = errors.New("token carries no expiry claim")

var inspectParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// ExpiresAt decodes the exp claim of tokenStr without signature
// verification. Signature checks belong to the backend; the client only
// schedules refreshes off the claim.
func ExpiresAt(tokenStr string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := inspectParser.ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether tokenStr is expired, or will be within leeway.
// A token that cannot be decoded counts as expired (fail-safe).
func IsExpired(tokenStr string, leeway time.Duration) bool {
	exp, err := ExpiresAt(tokenStr)
	if err != nil {
		return true
	}
	return !time.Now().Add(leeway).Before(exp)
}
