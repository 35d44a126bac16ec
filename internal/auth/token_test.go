package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(StubSubject)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if subject != StubSubject {
		t.Errorf("Verify() subject = %q, want %q", subject, StubSubject)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-one", time.Hour)
	other := NewTokenIssuer("secret-two", time.Hour)

	token, err := issuer.Issue("someone")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("Verify() accepted a token signed with a different secret")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Error("Verify() accepted garbage input")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	issuer.ttl = -time.Minute // already expired at issue time

	token, err := issuer.Issue("someone")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := issuer.Verify(token); err == nil {
		t.Error("Verify() accepted an expired token")
	}
}

func TestDefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 0)
	if issuer.TTL() != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h default", issuer.TTL())
	}
}
