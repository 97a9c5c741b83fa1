// Package auth implements the authentication core: password hashing,
// token issuance/verification and the session lifecycle
// (sign-up, sign-in, refresh, sign-out, password recovery).
package auth

import "errors"

// Sentinel errors returned by the session manager and token issuer.
// Handlers translate these into HTTP responses; the distinctions between
// ErrNotFound, ErrMissingCredential and ErrInvalidCredentials exist for
// logging only and must be collapsed into a single generic message at
// the API boundary so account existence is never leaked.
var (
	// ErrDuplicateIdentity is returned when sign-up hits the unique
	// email constraint.  Handlers map it to HTTP 409.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrNotFound is returned when no identity matches the given email
	// or id.
	ErrNotFound = errors.New("identity not found")

	// ErrMissingCredential is returned when the identity exists but has
	// no usable password hash (external-provider-only account).
	ErrMissingCredential = errors.New("identity has no password credential")

	// ErrInvalidCredentials is returned when password verification fails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers every client-token failure: bad signature,
	// wrong algorithm, expiry, revoked session, refresh-hash mismatch or
	// a subject that no longer exists.  The guard maps it to a generic
	// 401 without surfacing which check failed.
	ErrInvalidToken = errors.New("invalid token")
)
