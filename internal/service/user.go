package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// UserService manages user accounts.
type UserService struct {
	users repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Register creates an active user account.
func (s *UserService) Register(ctx context.Context, name, phone string, role domain.Role) (*domain.User, error) {
	if role != domain.RoleRider && role != domain.RoleDriver && role != domain.RoleAdmin {
		return nil, ErrInvalidActor
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     phone,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// GetUser returns one user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// GetUsers returns all users.
func (s *UserService) GetUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.GetAll(ctx)
}
