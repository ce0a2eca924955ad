package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"facilitywatch/internal/models"
	"facilitywatch/internal/password"
	"facilitywatch/internal/repository"
)

// ErrNameInUse is returned when registering a duplicate account name.
var ErrNameInUse = errors.New("user: name already registered")

// UserRepository defines the storage contract for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByName(ctx context.Context, name string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.User, error)
}

// UserService contains account management logic.
type UserService struct {
	repo   UserRepository
	hasher password.Hasher
	logger *zap.Logger
}

// NewUserService builds UserService.
func NewUserService(repo UserRepository, hasher password.Hasher, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, logger: logger}
}

// Create registers a new user account.
func (s *UserService) Create(ctx context.Context, name, pass, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("user: name required")
	}
	if pass == "" {
		return nil, errors.New("user: password required")
	}
	if role == "" {
		role = "user"
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, ErrNameInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("name", user.Name))
	return user, nil
}

// UpdateInput carries optional account changes; nil fields keep the current
// value.
type UpdateInput struct {
	Name     *string
	Password *string
	Role     *string
}

// Update applies account changes to an existing user.
func (s *UserService) Update(ctx context.Context, id int64, input UpdateInput) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.New("user: name required")
		}
		if name != user.Name {
			if _, err := s.repo.GetByName(ctx, name); err == nil {
				return nil, ErrNameInUse
			} else if !errors.Is(err, repository.ErrUserNotFound) {
				return nil, err
			}
			user.Name = name
		}
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.Role != nil && *input.Role != "" {
		user.Role = *input.Role
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user account.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

// List returns all user accounts.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}
