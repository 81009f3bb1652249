package auth

import (
	"strings"
	"time"
)

const defaultLeeway = 60 * time.Second

// Keyring holds the symmetric signing/verification key together with the
// validation policy (issuer, clock-skew leeway). It is constructed exactly
// once at startup and never mutates afterwards, so concurrent readers need no
// synchronization. Key rotation is not supported; replacing the secret
// requires a process restart.
type Keyring struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewKeyring validates the key material and the policy in a single step.
// A keyring is either fully initialized or does not exist; there is no
// partially configured state.
func NewKeyring(secret []byte, issuer string, leeway time.Duration) (*Keyring, error) {
	if len(secret) == 0 {
		return nil, ErrNotConfigured
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, ErrNotConfigured
	}
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	k := &Keyring{
		secret: make([]byte, len(secret)),
		issuer: issuer,
		leeway: leeway,
	}
	copy(k.secret, secret)
	return k, nil
}

// SigningKey returns the key used to sign tokens. Valid for process lifetime.
func (k *Keyring) SigningKey() []byte { return k.secret }

// VerificationKey returns the key used to verify tokens. With a symmetric
// scheme it is the signing key.
func (k *Keyring) VerificationKey() []byte { return k.secret }

// Issuer returns the issuer claim enforced during validation.
func (k *Keyring) Issuer() string { return k.issuer }

// Leeway returns the clock-skew tolerance applied symmetrically to the
// not-before and expiry boundaries.
func (k *Keyring) Leeway() time.Duration { return k.leeway }
