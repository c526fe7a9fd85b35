package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/authhub/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	h := security.NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("P@ssw0rd1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if hash == "P@ssw0rd1" || !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	if err := h.Verify(hash, "P@ssw0rd1"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}

	if err := h.Verify(hash, "wrong"); !errors.Is(err, security.ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestBcrypt_VerifyMalformedHash(t *testing.T) {
	h := security.NewBcrypt(bcrypt.MinCost)

	err := h.Verify("not-a-hash", "whatever")

	if err == nil {
		t.Fatalf("expected error for malformed hash")
	}

	if errors.Is(err, security.ErrMismatch) {
		t.Fatalf("malformed hash should not be reported as a plain mismatch")
	}
}

func TestNewBcrypt_OutOfRangeCostFallsBackToDefault(t *testing.T) {
	h := security.NewBcrypt(99)

	hash, err := h.Hash("Abcdef1!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost failed: %v", err)
	}

	if cost != bcrypt.DefaultCost {
		t.Fatalf("got cost %d, want %d", cost, bcrypt.DefaultCost)
	}
}

func TestBcrypt_RejectsPasswordsLongerThan72Bytes(t *testing.T) {
	h := security.NewBcrypt(bcrypt.MinCost)

	atLimit := "Aa1!" + strings.Repeat("x", security.MaxPasswordBytes-4)
	if _, err := h.Hash(atLimit); err != nil {
		t.Fatalf("72-byte password should hash, got %v", err)
	}

	_, err := h.Hash(atLimit + "x")
	if !errors.Is(err, security.ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
