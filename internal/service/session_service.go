package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/inkwellhq/inkwell-server/internal/domain"
	"github.com/inkwellhq/inkwell-server/internal/observability"
	"github.com/inkwellhq/inkwell-server/internal/repository"
	"github.com/inkwellhq/inkwell-server/internal/security"
)

// Credentials is what a successful login or refresh hands back: a signed
// access token plus the raw refresh secret. The raw secret exists only in
// this response; the store keeps its fingerprint.
type Credentials struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshSecret    string
	RefreshExpiresAt time.Time
	User             *domain.User
}

// SessionService owns the refresh-chain state machine: issue at login,
// verify+rotate on refresh, revoke on logout. It is the only component that
// touches both the fingerprint hasher and the token store.
type SessionService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	jwtMgr     *security.JWTManager
	hashSecret string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewSessionService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	jwtMgr *security.JWTManager,
	hashSecret string,
	accessTTL, refreshTTL time.Duration,
) *SessionService {
	return &SessionService{
		users:      users,
		tokens:     tokens,
		jwtMgr:     jwtMgr,
		hashSecret: hashSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login verifies the password and starts a fresh refresh chain. Unknown
// email and wrong password are indistinguishable in the result.
func (s *SessionService) Login(ctx context.Context, email, password string) (*Credentials, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthLogin("invalid")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthLogin("error")
		return nil, storeErr(err)
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		observability.RecordAuthLogin("invalid")
		return nil, ErrInvalidCredentials
	}
	creds, err := s.issue(ctx, user)
	if err != nil {
		observability.RecordAuthLogin("error")
		return nil, err
	}
	observability.RecordAuthLogin("success")
	return creds, nil
}

// Refresh redeems a raw refresh secret for a new token pair, rotating the
// chain. The repository's conditional revoke is the linearization point:
// concurrent refreshes of the same secret produce exactly one winner.
func (s *SessionService) Refresh(ctx context.Context, rawSecret string) (*Credentials, error) {
	fp := security.FingerprintSecret(rawSecret, s.hashSecret)

	rec, err := s.tokens.FindByFingerprint(ctx, fp)
	if err != nil {
		observability.RecordAuthRefresh(refreshOutcome(err))
		return nil, s.mapTokenErr(ctx, err, fp)
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthRefresh("invalid")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthRefresh("error")
		return nil, storeErr(err)
	}

	rawNext, next, err := s.newRefreshRecord(user.ID)
	if err != nil {
		observability.RecordAuthRefresh("error")
		return nil, err
	}
	if err := s.tokens.Rotate(ctx, fp, next); err != nil {
		observability.RecordAuthRefresh(refreshOutcome(err))
		return nil, s.mapTokenErr(ctx, err, fp)
	}

	access, err := s.jwtMgr.SignAccessToken(user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		observability.RecordAuthRefresh("error")
		return nil, err
	}
	observability.RecordAuthRefresh("success")
	return &Credentials{
		AccessToken:      access,
		AccessExpiresAt:  time.Now().Add(s.accessTTL),
		RefreshSecret:    rawNext,
		RefreshExpiresAt: next.ExpiresAt,
		User:             user,
	}, nil
}

// Logout revokes the single chain behind the presented secret. Idempotent:
// unknown and already-revoked secrets are not errors.
func (s *SessionService) Logout(ctx context.Context, rawSecret string) error {
	fp := security.FingerprintSecret(rawSecret, s.hashSecret)
	if err := s.tokens.RevokeByFingerprint(ctx, fp); err != nil {
		observability.RecordAuthLogout("error")
		return storeErr(err)
	}
	observability.RecordAuthLogout("success")
	return nil
}

// RevokeAll implements "log out everywhere" for one subject.
func (s *SessionService) RevokeAll(ctx context.Context, userID uint) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		observability.RecordAuthLogout("error")
		return storeErr(err)
	}
	observability.RecordAuthLogout("success")
	return nil
}

func (s *SessionService) issue(ctx context.Context, user *domain.User) (*Credentials, error) {
	rawSecret, rec, err := s.newRefreshRecord(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return nil, storeErr(err)
	}
	access, err := s.jwtMgr.SignAccessToken(user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		AccessToken:      access,
		AccessExpiresAt:  time.Now().Add(s.accessTTL),
		RefreshSecret:    rawSecret,
		RefreshExpiresAt: rec.ExpiresAt,
		User:             user,
	}, nil
}

func (s *SessionService) newRefreshRecord(userID uint) (string, *domain.RefreshToken, error) {
	rawSecret, err := security.NewRefreshSecret()
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	rec := &domain.RefreshToken{
		ID:          uuid.NewString(),
		Fingerprint: security.FingerprintSecret(rawSecret, s.hashSecret),
		UserID:      userID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.refreshTTL),
	}
	return rawSecret, rec, nil
}

// mapTokenErr folds every token-store miss into the generic credential
// error. Reuse of a rotated fingerprint is logged as a security signal
// first; the caller still sees the same unauthorized answer.
func (s *SessionService) mapTokenErr(ctx context.Context, err error, fp string) error {
	switch {
	case errors.Is(err, repository.ErrRefreshTokenReused):
		slog.WarnContext(ctx, "refresh token reuse detected, possible token theft",
			"fingerprint_prefix", security.TruncateFingerprint(fp))
		observability.RecordRefreshReuse()
		return ErrInvalidCredentials
	case errors.Is(err, repository.ErrRefreshTokenNotFound):
		return ErrInvalidCredentials
	default:
		return storeErr(err)
	}
}

func refreshOutcome(err error) string {
	switch {
	case errors.Is(err, repository.ErrRefreshTokenReused):
		return "reuse_detected"
	case errors.Is(err, repository.ErrRefreshTokenNotFound):
		return "invalid"
	default:
		return "error"
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
