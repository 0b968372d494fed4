package service

import (
	"context"
	"errors"
	"testing"

	"github.com/inkwellhq/inkwell-server/internal/domain"
	"github.com/inkwellhq/inkwell-server/internal/security"
)

func TestRegisterHashesPasswordAndNormalizesEmail(t *testing.T) {
	svc := NewUserService(newInMemoryUserRepo())

	user, err := svc.Register(context.Background(), "  Carol@Example.COM ", "Carol", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "carol@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Fatal("password must be stored as a hash")
	}
	if !security.CheckPassword("secret123", user.PasswordHash) {
		t.Fatal("stored hash must verify against the original password")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role, got %q", user.Role)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewUserService(newInMemoryUserRepo())

	if _, err := svc.Register(context.Background(), "dave@example.com", "Dave", "secret123"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), "dave@example.com", "Dave Again", "secret456")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := NewUserService(newInMemoryUserRepo())

	if _, err := svc.Register(context.Background(), "not-an-email", "X", "secret123"); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("bad email: expected ErrInvalidRegistration, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "eve@example.com", "Eve", "short"); !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("short password: expected ErrInvalidRegistration, got %v", err)
	}
}
