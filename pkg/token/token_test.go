package token

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := New(testSecret, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}

func TestAccessTokenRoundTrip(t *testing.T) {
	iss := newTestIssuer(t)
	tok, err := iss.AccessToken("user@example.com")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	subject, err := iss.ValidateAccess(tok)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if subject != "user@example.com" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestValidateAccessRejectsRefreshToken(t *testing.T) {
	iss := newTestIssuer(t)
	refresh, err := iss.RefreshToken("user@example.com")
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if _, err := iss.ValidateAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshIssuesAccessTokenForSameSubject(t *testing.T) {
	iss := newTestIssuer(t)
	refresh, err := iss.RefreshToken("user@example.com")
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	access, err := iss.Refresh(refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	subject, err := iss.ValidateAccess(access)
	if err != nil {
		t.Fatalf("validate refreshed access token: %v", err)
	}
	if subject != "user@example.com" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	iss := newTestIssuer(t)
	access, err := iss.AccessToken("user@example.com")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if _, err := iss.Refresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateAccessRejectsGarbageAndForeignSignature(t *testing.T) {
	iss := newTestIssuer(t)
	if _, err := iss.ValidateAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed input, got %v", err)
	}

	other, err := New("ffffffffffffffffffffffffffffffff", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	foreign, err := other.AccessToken("user@example.com")
	if err != nil {
		t.Fatalf("foreign access token: %v", err)
	}
	if _, err := iss.ValidateAccess(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	iss, err := NewWithOptions(testSecret, time.Minute, time.Hour, Options{Leeway: time.Millisecond})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	tok, err := iss.sign("user@example.com", TypeAccess, -time.Hour)
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if _, err := iss.ValidateAccess(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
