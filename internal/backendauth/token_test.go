package backendauth

import (
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner([]byte("shared-secret"), time.Minute)

	tok, err := s.Sign("alice")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := s.Verify("alice", tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Account != "alice" {
		t.Fatalf("Account = %q, want alice", claims.Account)
	}
}

func TestVerifyRejectsWrongAccount(t *testing.T) {
	s := NewSigner([]byte("shared-secret"), time.Minute)

	tok, err := s.Sign("alice")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := s.Verify("bob", tok); err == nil {
		t.Fatalf("expected Verify to reject a token minted for a different account")
	}
}

func TestNewSignerDefaultsTTL(t *testing.T) {
	s := NewSigner([]byte("secret"), 0)
	if s.ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m default", s.ttl)
	}
}
