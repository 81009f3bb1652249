package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token payload: registered JWT claims plus the username,
// domain code and role set resolved at login time.
type Claims struct {
	Username string   `json:"username"`
	Domain   string   `json:"domain"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewClaims builds a claim set for a freshly authenticated principal. The
// token identifier is unique per issuance and doubles as the revocation key.
func NewClaims(userID, username, domain string, roles []string, issuer, audience string, now time.Time, ttl time.Duration) *Claims {
	now = now.UTC()
	return &Claims{
		Username: username,
		Domain:   domain,
		Roles:    dedupeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
}

// Identity is the per-request authenticated principal context extracted from
// verified claims.
type Identity struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Domain   string   `json:"domain"`
	Roles    []string `json:"roles"`
}

func (c *Claims) identity() Identity {
	return Identity{
		UserID:   c.Subject,
		Username: c.Username,
		Domain:   c.Domain,
		Roles:    dedupeRoles(c.Roles),
	}
}

// Sign encodes the claims into a compact HS256 token. Encoding is
// deterministic for identical claims and key; it fails only when the keyring
// cannot sign.
func (k *Keyring) Sign(claims *Claims) (string, error) {
	if k == nil {
		return "", ErrNotConfigured
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies a presented token and returns its claims. The audience is
// supplied per call because one key may serve several application surfaces.
// The parser checks structure and signature before any claim content, so a
// forged token never yields a claim-level error. Every failure surfaces as
// ErrInvalidToken with the cause wrapped for internal logs only.
func (k *Keyring) Decode(tokenString, audience string) (*Claims, error) {
	if k == nil {
		return nil, ErrNotConfigured
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(k.issuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(k.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return k.secret, nil
	})
	if err != nil {
		return nil, invalidToken(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := validateClaims(claims); err != nil {
		return nil, invalidToken(err)
	}
	claims.Roles = dedupeRoles(claims.Roles)
	return claims, nil
}

// validateClaims enforces invariants golang-jwt leaves to the caller.
func validateClaims(claims *Claims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if strings.TrimSpace(claims.ID) == "" {
		return errors.New("token id missing")
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}

func invalidToken(cause error) error {
	return fmt.Errorf("%w: %s", ErrInvalidToken, cause)
}

func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var normalized []string
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}
