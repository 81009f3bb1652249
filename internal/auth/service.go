package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultTokenTTL = time.Hour

	// DefaultAudience is the login surface served by this process. Tokens
	// minted here are rejected by surfaces validating a different audience.
	DefaultAudience = "management-platform"

	// defaultVerifyConcurrency bounds concurrent argon2 computations so a
	// burst of logins cannot head-of-line-block unrelated requests.
	defaultVerifyConcurrency = 4
)

// Service composes keyring, credential verification, lifecycle tracking and
// the persistence collaborator into login/authenticate operations.
type Service struct {
	store    PrincipalStore
	keyring  *Keyring
	tracker  *Tracker
	notifier *Notifier

	verifyGate *semaphore.Weighted
	now        func() time.Time
	ttl        time.Duration
	audience   string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithTokenTTL configures the access token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.ttl = ttl
		}
		return nil
	}
}

// WithAudience overrides the audience tokens are minted for.
func WithAudience(audience string) ServiceOption {
	return func(s *Service) error {
		audience = strings.TrimSpace(audience)
		if audience != "" {
			s.audience = audience
		}
		return nil
	}
}

// WithTracker enables revocation/refresh tracking.
func WithTracker(t *Tracker) ServiceOption {
	return func(s *Service) error {
		s.tracker = t
		return nil
	}
}

// WithNotifier wires the fire-and-forget issuance event channel.
func WithNotifier(n *Notifier) ServiceOption {
	return func(s *Service) error {
		s.notifier = n
		return nil
	}
}

// WithVerifyConcurrency bounds how many password verifications may run at
// once.
func WithVerifyConcurrency(n int64) ServiceOption {
	return func(s *Service) error {
		if n <= 0 {
			return errors.New("auth: verify concurrency must be positive")
		}
		s.verifyGate = semaphore.NewWeighted(n)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the orchestrator. The keyring is required up front:
// a service either exists fully configured or not at all, there is no
// half-initialized state reachable by requests.
func NewService(store PrincipalStore, keyring *Keyring, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: principal store is required")
	}
	if keyring == nil {
		return nil, ErrNotConfigured
	}
	svc := &Service{
		store:      store,
		keyring:    keyring,
		now:        time.Now,
		ttl:        defaultTokenTTL,
		audience:   DefaultAudience,
		verifyGate: semaphore.NewWeighted(defaultVerifyConcurrency),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Audience returns the audience this service mints and validates by default.
func (s *Service) Audience() string { return s.audience }

// LoginRequest carries the submitted credentials plus transport metadata for
// the login journal.
type LoginRequest struct {
	Username string
	Password string
	Domain   string

	IP        string
	UserAgent string
	RequestID string
}

// Token is an issued access token with its metadata.
type Token struct {
	AccessToken string
	TokenType   string
	TokenID     string
	ExpiresAt   time.Time
}

// Login authenticates credentials against the stored principal and issues a
// signed token bound to the principal, its domain and role set.
//
// Wrong passwords and unparseable stored hashes both surface as
// ErrAuthenticationFailed so the caller learns nothing about internal state;
// a missing principal surfaces as ErrPrincipalNotFound, which transport must
// present identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Token, Identity, error) {
	username := strings.TrimSpace(req.Username)
	domain := strings.TrimSpace(req.Domain)
	if username == "" || req.Password == "" || domain == "" {
		return Token{}, Identity{}, ErrAuthenticationFailed
	}

	principal, err := s.store.FindPrincipal(ctx, username, domain)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Token{}, Identity{}, ErrPrincipalNotFound
		}
		return Token{}, Identity{}, fmt.Errorf("load principal: %w", err)
	}
	if !principal.Enabled {
		return Token{}, Identity{}, ErrAuthenticationFailed
	}

	if err := s.verifyCredential(ctx, principal.PasswordHash, req.Password); err != nil {
		return Token{}, Identity{}, err
	}

	return s.issue(principal, req)
}

// verifyCredential runs the memory-hard comparison behind a semaphore so slow
// hash computations cannot stall every request-handling goroutine at once.
func (s *Service) verifyCredential(ctx context.Context, storedHash, password string) error {
	if err := s.verifyGate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("verify credential: %w", err)
	}
	defer s.verifyGate.Release(1)

	if err := VerifyPassword(storedHash, password); err != nil {
		return ErrAuthenticationFailed
	}
	return nil
}

func (s *Service) issue(principal *Principal, req LoginRequest) (Token, Identity, error) {
	claims := NewClaims(
		principal.ID, principal.Username, principal.Domain, principal.Roles,
		s.keyring.Issuer(), s.audience, s.now(), s.ttl,
	)
	signed, err := s.keyring.Sign(claims)
	if err != nil {
		return Token{}, Identity{}, err
	}

	s.notifier.Notify(TokenEvent{
		TokenID:   claims.ID,
		UserID:    principal.ID,
		Username:  principal.Username,
		Domain:    principal.Domain,
		Audience:  s.audience,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		RequestID: req.RequestID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	})

	token := Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	return token, claims.identity(), nil
}

// Authenticate decodes a bearer token into the per-request identity. The
// codec result and the lifecycle status are consulted independently: a token
// whose signature still verifies is rejected once its id was refreshed or
// revoked.
func (s *Service) Authenticate(ctx context.Context, token, audience string) (Identity, error) {
	claims, err := s.keyring.Decode(token, audience)
	if err != nil {
		return Identity{}, err
	}
	if st := s.tracker.Status(claims.ID); !st.IsValid() {
		return Identity{}, fmt.Errorf("%w: token is %s", ErrInvalidToken, st)
	}
	return claims.identity(), nil
}

// Refresh exchanges a still-valid token for a fresh one. The presented
// token's id transitions to Refreshed before the new token is minted, so of
// two concurrent refreshes exactly one wins.
func (s *Service) Refresh(ctx context.Context, token, audience string, req LoginRequest) (Token, Identity, error) {
	claims, err := s.keyring.Decode(token, audience)
	if err != nil {
		return Token{}, Identity{}, err
	}
	if st := s.tracker.Status(claims.ID); !st.CanRefresh() {
		return Token{}, Identity{}, fmt.Errorf("%w: token is %s", ErrInvalidToken, st)
	}

	// Re-resolve the principal so revoked accounts and role changes take
	// effect at refresh time.
	principal, err := s.store.FindPrincipal(ctx, claims.Username, claims.Domain)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Token{}, Identity{}, fmt.Errorf("%w: principal gone", ErrInvalidToken)
		}
		return Token{}, Identity{}, fmt.Errorf("load principal: %w", err)
	}
	if !principal.Enabled {
		return Token{}, Identity{}, fmt.Errorf("%w: principal disabled", ErrInvalidToken)
	}

	if s.tracker != nil {
		if err := s.tracker.Refresh(claims.ID); err != nil {
			return Token{}, Identity{}, fmt.Errorf("%w: %s", ErrInvalidToken, err)
		}
	}

	req.Username = principal.Username
	req.Domain = principal.Domain
	return s.issue(principal, req)
}

// Logout revokes the presented token. A second revocation of the same token
// id is reported as invalid, not silently accepted.
func (s *Service) Logout(ctx context.Context, token, audience string) error {
	claims, err := s.keyring.Decode(token, audience)
	if err != nil {
		return err
	}
	if s.tracker == nil {
		return nil
	}
	if err := s.tracker.Revoke(claims.ID); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	return nil
}
