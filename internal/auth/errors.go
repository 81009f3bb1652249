package auth

import "errors"

var (
	// ErrNotConfigured signals missing key material or validation policy.
	// It is fatal at startup, never a per-request condition.
	ErrNotConfigured = errors.New("auth: not configured")

	// ErrPrincipalNotFound is returned when no principal matches the
	// username/domain pair. Transport must surface it identically to
	// ErrAuthenticationFailed.
	ErrPrincipalNotFound = errors.New("auth: principal not found")

	// ErrAuthenticationFailed covers wrong passwords and unparseable stored
	// hashes alike, so callers cannot tell corrupt data from a bad secret.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")

	// ErrInvalidToken indicates the token failed validation. The concrete
	// cause (signature, expiry, audience, issuer, revocation) is wrapped for
	// internal logs but never exposed to clients.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrStatusFinal rejects lifecycle transitions out of a terminal state.
	ErrStatusFinal = errors.New("auth: token status is final")
)
