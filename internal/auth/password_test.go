package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordSalting(t *testing.T) {
	first, err := HashPassword("example_password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("example_password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same input must differ")
	}
	if !strings.HasPrefix(first, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", first)
	}
	if err := VerifyPassword(first, "example_password"); err != nil {
		t.Fatalf("first hash did not verify: %v", err)
	}
	if err := VerifyPassword(second, "example_password"); err != nil {
		t.Fatalf("second hash did not verify: %v", err)
	}
}

func TestVerifyPasswordMismatch(t *testing.T) {
	hash, err := HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-password"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestVerifyPasswordFailsClosed(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"not phc":           "plaintext",
		"wrong algorithm":   "$bcrypt$v=19$m=65536,t=2,p=1$c2FsdA$aGFzaA",
		"wrong version":     "$argon2id$v=18$m=65536,t=2,p=1$c2FsdA$aGFzaA",
		"bad params":        "$argon2id$v=19$m=abc,t=2,p=1$c2FsdA$aGFzaA",
		"zero params":       "$argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA",
		"bad salt base64":   "$argon2id$v=19$m=65536,t=2,p=1$!!!$aGFzaA",
		"bad hash base64":   "$argon2id$v=19$m=65536,t=2,p=1$c2FsdA$!!!",
		"truncated":         "$argon2id$v=19$m=65536,t=2,p=1$c2FsdA",
	}
	for name, stored := range cases {
		if err := VerifyPassword(stored, "whatever"); err == nil {
			t.Fatalf("%s: expected verification to fail closed", name)
		}
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
