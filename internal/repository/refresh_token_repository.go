package repository

import (
	"context"
	"errors"
	"time"

	"github.com/inkwellhq/inkwell-server/internal/domain"
	"github.com/inkwellhq/inkwell-server/internal/observability"

	"gorm.io/gorm"
)

var (
	// ErrRefreshTokenNotFound covers unknown, expired and plainly revoked
	// fingerprints alike; callers surface all of them identically.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenReused marks a fingerprint that was already rotated
	// away: the record exists, is revoked and names a successor. The HTTP
	// answer is the same generic 401, but the caller raises a security
	// signal on this one.
	ErrRefreshTokenReused = errors.New("refresh token reuse detected")
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	FindByFingerprint(ctx context.Context, fingerprint string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, oldFingerprint string, next *domain.RefreshToken) error
	RevokeByFingerprint(ctx context.Context, fingerprint string) error
	RevokeAllForUser(ctx context.Context, userID uint) error
}

// GormRefreshTokenRepository keeps revoked records as soft-deleted rows so
// replayed fingerprints can still be classified as reuse.
type GormRefreshTokenRepository struct{ db *gorm.DB }

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

func (r *GormRefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "create", "success")
	return nil
}

// FindByFingerprint returns only live records. Expiry is enforced here: an
// expired row is revoked in place and reported as not found, so no caller
// ever has to re-check ExpiresAt.
func (r *GormRefreshTokenRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "refresh_token", "find_by_fingerprint", "not_found")
			return nil, ErrRefreshTokenNotFound
		}
		observability.RecordRepositoryOperation(ctx, "refresh_token", "find_by_fingerprint", "error")
		return nil, err
	}
	if t.Revoked {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "find_by_fingerprint", "revoked")
		if t.ReplacedBy != nil {
			return nil, ErrRefreshTokenReused
		}
		return nil, ErrRefreshTokenNotFound
	}
	if !t.ExpiresAt.After(time.Now()) {
		if err := r.revokeLive(ctx, fingerprint); err != nil {
			observability.RecordRepositoryOperation(ctx, "refresh_token", "find_by_fingerprint", "error")
			return nil, err
		}
		observability.RecordRepositoryOperation(ctx, "refresh_token", "find_by_fingerprint", "expired")
		return nil, ErrRefreshTokenNotFound
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "find_by_fingerprint", "success")
	return &t, nil
}

// Rotate revokes the live predecessor and creates its successor in one
// transaction. The revoke is a conditional update on the still-live row, so
// two concurrent rotations of the same fingerprint resolve to exactly one
// winner without any application-level lock.
func (r *GormRefreshTokenRepository) Rotate(ctx context.Context, oldFingerprint string, next *domain.RefreshToken) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&domain.RefreshToken{}).
			Where("fingerprint = ? AND revoked = ? AND expires_at > ?", oldFingerprint, false, now).
			Updates(map[string]any{"revoked": true, "revoked_at": now, "replaced_by": next.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.classifyDeadRow(tx, oldFingerprint)
		}
		return tx.Create(next).Error
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "refresh_token", "rotate", "success")
	case errors.Is(err, ErrRefreshTokenReused):
		observability.RecordRepositoryOperation(ctx, "refresh_token", "rotate", "reuse_detected")
	case errors.Is(err, ErrRefreshTokenNotFound):
		observability.RecordRepositoryOperation(ctx, "refresh_token", "rotate", "not_found")
	default:
		observability.RecordRepositoryOperation(ctx, "refresh_token", "rotate", "error")
	}
	return err
}

// classifyDeadRow explains why the conditional revoke matched nothing.
func (r *GormRefreshTokenRepository) classifyDeadRow(tx *gorm.DB, fingerprint string) error {
	var t domain.RefreshToken
	err := tx.Where("fingerprint = ?", fingerprint).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRefreshTokenNotFound
		}
		return err
	}
	if t.Revoked && t.ReplacedBy != nil {
		return ErrRefreshTokenReused
	}
	if !t.Revoked && !t.ExpiresAt.After(time.Now()) {
		now := time.Now().UTC()
		if err := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked = ?", t.ID, false).
			Updates(map[string]any{"revoked": true, "revoked_at": now}).Error; err != nil {
			return err
		}
	}
	return ErrRefreshTokenNotFound
}

// RevokeByFingerprint is idempotent; revoking an unknown or already revoked
// fingerprint is not an error.
func (r *GormRefreshTokenRepository) RevokeByFingerprint(ctx context.Context, fingerprint string) error {
	if err := r.revokeLive(ctx, fingerprint); err != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "revoke_by_fingerprint", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "revoke_by_fingerprint", "success")
	return nil
}

func (r *GormRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]any{"revoked": true, "revoked_at": now}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "revoke_all_for_user", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "revoke_all_for_user", "success")
	return nil
}

func (r *GormRefreshTokenRepository) revokeLive(ctx context.Context, fingerprint string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("fingerprint = ? AND revoked = ?", fingerprint, false).
		Updates(map[string]any{"revoked": true, "revoked_at": now}).Error
}
