package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-registration/internal/apperr"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/google/uuid"
)

// ErrEmailTaken is returned when a user is created with an existing email.
var ErrEmailTaken = apperr.Conflict("Email already exists")

// ErrNameEmailRequired is returned when a user is created without a name or email.
var ErrNameEmailRequired = apperr.InvalidArgument("Name and email are required")

// CreateUserInput carries the fields of a new user.
type CreateUserInput struct {
	Name  string
	Email string
}

// UserService manages the user directory.
type UserService struct {
	users repository.UserStore
	opts  options
}

// NewUserService constructs a UserService.
func NewUserService(users repository.UserStore, opts ...Option) *UserService {
	return &UserService{users: users, opts: buildOptions(opts)}
}

// CreateUser stores a new user. Email uniqueness is enforced by the store.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return nil, ErrNameEmailRequired
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.opts.logger.Info().Str("user_id", user.ID).Msg("user created")
	return user, nil
}

// ListUsers returns every user, oldest first.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
