// Package jwt inspects bearer tokens issued by the backend without verifying
// signatures. The client holds no keys; it only needs the embedded expiry
// claim to decide when a refresh is due, and any token it cannot decode is
// treated as already expired.
package jwt
