package auth

import "time"

// Principal is an authenticable identity scoped to a domain. The auth core
// only ever reads principals; account management lives elsewhere.
type Principal struct {
	ID           string
	Username     string
	PasswordHash string
	Domain       string
	Organization string
	Enabled      bool
	Roles        []string
}

// LoginLog is an append-only record of a successful token issuance, mirroring
// the back-office login journal.
type LoginLog struct {
	ID        string
	UserID    string
	Username  string
	Domain    string
	LoginAt   time.Time
	IP        string
	UserAgent string
	RequestID string
}
