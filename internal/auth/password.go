package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory-hard on purpose: a single verification is
// expensive enough to resist offline brute force.
const (
	argonMemory      = 64 * 1024
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

var errPasswordMismatch = errors.New("password mismatch")

// HashPassword derives an argon2id hash and returns it in PHC string format,
// embedding the parameters and a fresh random salt. Two calls on the same
// input never produce the same output.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a plaintext password against a stored PHC hash using
// the parameters embedded in the hash itself. It fails closed: a malformed
// stored hash, an unsupported algorithm or version, and a plain mismatch all
// return a non-nil error, and the comparison is constant time.
func VerifyPassword(stored, password string) error {
	salt, hash, memory, iterations, parallelism, err := parsePHC(stored)
	if err != nil {
		return err
	}
	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(hash)))
	if subtle.ConstantTimeCompare(hash, computed) != 1 {
		return errPasswordMismatch
	}
	return nil
}

func parsePHC(stored string) (salt, hash []byte, memory, iterations uint32, parallelism uint8, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, 0, 0, 0, errors.New("malformed password hash")
	}
	if parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported algorithm %q", parts[1])
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, errors.New("malformed password hash")
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported argon2 version %d", version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, nil, 0, 0, 0, errors.New("malformed password hash")
	}
	if memory == 0 || iterations == 0 || parallelism == 0 {
		return nil, nil, 0, 0, 0, errors.New("malformed password hash")
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, errors.New("malformed password hash")
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, 0, 0, 0, errors.New("malformed password hash")
	}
	return salt, hash, memory, iterations, parallelism, nil
}
