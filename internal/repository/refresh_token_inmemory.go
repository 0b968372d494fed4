package repository

import (
	"context"
	"sync"
	"time"

	"github.com/inkwellhq/inkwell-server/internal/domain"
)

// InMemoryRefreshTokenRepository backs tests and single-process setups. A
// single coarse lock is enough here; the external contract matches the GORM
// implementation, though expired records are physically removed instead of
// being kept as evidence.
type InMemoryRefreshTokenRepository struct {
	mu            sync.Mutex
	byFingerprint map[string]*domain.RefreshToken
}

func NewInMemoryRefreshTokenRepository() *InMemoryRefreshTokenRepository {
	return &InMemoryRefreshTokenRepository{byFingerprint: map[string]*domain.RefreshToken{}}
}

func (r *InMemoryRefreshTokenRepository) Create(_ context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.byFingerprint[cp.Fingerprint] = &cp
	return nil
}

func (r *InMemoryRefreshTokenRepository) FindByFingerprint(_ context.Context, fingerprint string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byFingerprint[fingerprint]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	if t.Revoked {
		if t.ReplacedBy != nil {
			return nil, ErrRefreshTokenReused
		}
		return nil, ErrRefreshTokenNotFound
	}
	if !t.ExpiresAt.After(time.Now()) {
		delete(r.byFingerprint, fingerprint)
		return nil, ErrRefreshTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemoryRefreshTokenRepository) Rotate(_ context.Context, oldFingerprint string, next *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byFingerprint[oldFingerprint]
	if !ok {
		return ErrRefreshTokenNotFound
	}
	if old.Revoked {
		if old.ReplacedBy != nil {
			return ErrRefreshTokenReused
		}
		return ErrRefreshTokenNotFound
	}
	if !old.ExpiresAt.After(time.Now()) {
		delete(r.byFingerprint, oldFingerprint)
		return ErrRefreshTokenNotFound
	}
	now := time.Now().UTC()
	old.Revoked = true
	old.RevokedAt = &now
	replacedBy := next.ID
	old.ReplacedBy = &replacedBy

	cp := *next
	r.byFingerprint[cp.Fingerprint] = &cp
	return nil
}

func (r *InMemoryRefreshTokenRepository) RevokeByFingerprint(_ context.Context, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byFingerprint[fingerprint]
	if !ok || t.Revoked {
		return nil
	}
	now := time.Now().UTC()
	t.Revoked = true
	t.RevokedAt = &now
	return nil
}

func (r *InMemoryRefreshTokenRepository) RevokeAllForUser(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range r.byFingerprint {
		if t.UserID != userID || t.Revoked {
			continue
		}
		t.Revoked = true
		t.RevokedAt = &now
	}
	return nil
}
