package security

import (
	"encoding/base64"
	"testing"
)

func TestNewRefreshSecretShape(t *testing.T) {
	raw, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 32 {
		t.Fatalf("expected 32 bytes of entropy, got %d", len(decoded))
	}
}

func TestNewRefreshSecretIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		raw, err := NewRefreshSecret()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[raw] {
			t.Fatal("duplicate refresh secret")
		}
		seen[raw] = true
	}
}

func TestFingerprintIsDeterministicPerKey(t *testing.T) {
	a := FingerprintSecret("some-secret", "key-1")
	b := FingerprintSecret("some-secret", "key-1")
	if a != b {
		t.Fatal("same secret and key must fingerprint identically")
	}
	if FingerprintSecret("some-secret", "key-2") == a {
		t.Fatal("a different key must change the fingerprint")
	}
	if FingerprintSecret("other-secret", "key-1") == a {
		t.Fatal("a different secret must change the fingerprint")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 length 64, got %d", len(a))
	}
}

func TestTruncateFingerprint(t *testing.T) {
	fp := FingerprintSecret("some-secret", "key-1")
	if got := TruncateFingerprint(fp); len(got) != 8 || fp[:8] != got {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := TruncateFingerprint("short"); got != "short" {
		t.Fatalf("short input must pass through, got %q", got)
	}
}
