package data

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "correct horse" || !strings.HasPrefix(digest, "$2") {
		t.Fatalf("unexpected digest %q", digest)
	}
	if !h.Verify("correct horse", digest) {
		t.Fatal("expected password to verify")
	}
	if h.Verify("wrong horse", digest) {
		t.Fatal("expected wrong password to be rejected")
	}
}

func TestBcryptHasherSaltsDigests(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, err := h.Hash("secret-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := h.Hash("secret-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct digests for the same password")
	}
}

func TestBcryptHasherVerifiesLegacyDigest(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	// sha256("password")
	legacy := "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if LegacyDigest("password") != legacy {
		t.Fatalf("unexpected legacy digest %s", LegacyDigest("password"))
	}
	if !h.Verify("password", legacy) {
		t.Fatal("expected legacy digest to verify")
	}
	if h.Verify("Password", legacy) {
		t.Fatal("expected legacy digest to reject wrong password")
	}
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	if h := NewBcryptHasher(0); h.Cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.Cost)
	}
}
