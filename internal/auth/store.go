package auth

import "context"

// PrincipalStore is the narrow read contract the auth core requires from the
// persistence layer. Implementations must return ErrPrincipalNotFound when no
// principal matches, and may be slow or fallible; the core propagates their
// errors without retrying.
type PrincipalStore interface {
	// FindPrincipal loads the principal for a username within a domain,
	// joined with its domain code, optional organization and role codes.
	FindPrincipal(ctx context.Context, username, domain string) (*Principal, error)
}

// LoginLogStore appends login journal entries. Writes are best-effort from
// the core's perspective; a failing journal must not fail a login.
type LoginLogStore interface {
	Append(ctx context.Context, entry *LoginLog) error
}
