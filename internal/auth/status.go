package auth

import (
	"fmt"
	"sync"
)

// TokenStatus models the administrative lifecycle of an issued token,
// independent of whether its signature still verifies.
type TokenStatus string

const (
	// StatusActive is the only usable state. Tokens are created Active.
	StatusActive TokenStatus = "ACTIVE"
	// StatusRefreshed marks a token superseded by a newer one. Terminal.
	StatusRefreshed TokenStatus = "REFRESHED"
	// StatusRevoked marks a token killed by logout or a security action. Terminal.
	StatusRevoked TokenStatus = "REVOKED"
)

// IsValid reports whether a token in this state may authenticate requests.
func (s TokenStatus) IsValid() bool { return s == StatusActive }

// CanRefresh reports whether a token in this state may be exchanged for a
// fresh one.
func (s TokenStatus) CanRefresh() bool { return s == StatusActive }

// Refresh transitions Active to Refreshed. Transitions out of a terminal
// state are rejected, never silently ignored.
func (s TokenStatus) Refresh() (TokenStatus, error) {
	if s != StatusActive {
		return s, fmt.Errorf("%w: cannot refresh %s token", ErrStatusFinal, s)
	}
	return StatusRefreshed, nil
}

// Revoke transitions Active to Revoked.
func (s TokenStatus) Revoke() (TokenStatus, error) {
	if s != StatusActive {
		return s, fmt.Errorf("%w: cannot revoke %s token", ErrStatusFinal, s)
	}
	return StatusRevoked, nil
}

// Tracker records token status by token id. It is in-memory and per-process:
// a restart forgets refreshed/revoked entries and presented tokens fall back
// to signature and expiry checks alone. A token id the tracker has never seen
// counts as Active, which keeps the table bounded by the number of
// administrative actions rather than the number of issued tokens.
type Tracker struct {
	mu     sync.RWMutex
	status map[string]TokenStatus
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{status: make(map[string]TokenStatus)}
}

// Status returns the recorded status for a token id. Unknown ids report
// Active.
func (t *Tracker) Status(tokenID string) TokenStatus {
	if t == nil {
		return StatusActive
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.status[tokenID]; ok {
		return s
	}
	return StatusActive
}

// Refresh marks a token id as superseded.
func (t *Tracker) Refresh(tokenID string) error {
	return t.transition(tokenID, TokenStatus.Refresh)
}

// Revoke marks a token id as revoked.
func (t *Tracker) Revoke(tokenID string) error {
	return t.transition(tokenID, TokenStatus.Revoke)
}

// Forget drops a token id from the table, typically after its expiry has
// passed and the signature check alone rejects it.
func (t *Tracker) Forget(tokenID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.status, tokenID)
	t.mu.Unlock()
}

func (t *Tracker) transition(tokenID string, step func(TokenStatus) (TokenStatus, error)) error {
	if t == nil {
		return ErrNotConfigured
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.status[tokenID]
	if !ok {
		current = StatusActive
	}
	next, err := step(current)
	if err != nil {
		return err
	}
	t.status[tokenID] = next
	return nil
}
