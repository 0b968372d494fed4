package service

import (
	"context"
	"errors"
	"strings"

	"github.com/inkwellhq/inkwell-server/internal/domain"
	"github.com/inkwellhq/inkwell-server/internal/repository"
	"github.com/inkwellhq/inkwell-server/internal/security"
)

const minPasswordLength = 8

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidRegistration
	}
	if len(password) < minPasswordLength {
		return nil, ErrInvalidRegistration
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storeErr(err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The unique index wins the race against a concurrent register.
		return nil, ErrEmailTaken
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, storeErr(err)
	}
	return user, nil
}
