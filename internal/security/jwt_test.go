package security

import (
	"strings"
	"testing"
	"time"
)

func newTestManager() *JWTManager {
	return NewJWTManager("inkwell-server", "inkwell-web", "abcdefghijklmnopqrstuvwxyz123456")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := newTestManager()

	raw, err := mgr.SignAccessToken(42, "alice@example.com", "user", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := mgr.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if id != 42 || claims.Email != "alice@example.com" || claims.Role != "user" {
		t.Fatalf("claims mismatch: id=%d email=%s role=%s", id, claims.Email, claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti")
	}
}

func TestAccessTokenRejectsTamperedSignature(t *testing.T) {
	mgr := newTestManager()

	raw, err := mgr.SignAccessToken(1, "a@example.com", "user", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	// flip the signature; header and payload stay well formed
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := mgr.ParseAccessToken(tampered); err == nil {
		t.Fatal("tampered token must not verify")
	}
}

func TestAccessTokenRejectsWrongSigner(t *testing.T) {
	mgr := newTestManager()
	other := NewJWTManager("inkwell-server", "inkwell-web", "another-secret-entirely-0000000000")

	raw, err := other.SignAccessToken(1, "a@example.com", "user", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); err == nil {
		t.Fatal("token signed with a different key must not verify")
	}
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	mgr := newTestManager()

	raw, err := mgr.SignAccessToken(1, "a@example.com", "user", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestAccessTokenRejectsWrongAudience(t *testing.T) {
	mgr := newTestManager()
	other := NewJWTManager("inkwell-server", "some-other-app", "abcdefghijklmnopqrstuvwxyz123456")

	raw, err := other.SignAccessToken(1, "a@example.com", "user", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := mgr.ParseAccessToken(raw); err == nil {
		t.Fatal("token for another audience must not verify")
	}
}

func TestAccessTokenRejectsGarbage(t *testing.T) {
	mgr := newTestManager()
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := mgr.ParseAccessToken(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
