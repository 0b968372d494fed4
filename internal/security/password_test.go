package security

import "testing"

func TestPasswordHashVerifies(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("secret123", hash) {
		t.Fatal("correct password must verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("wrong password must not verify")
	}
}
