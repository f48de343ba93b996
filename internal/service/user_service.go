package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stemsi/exstem-scores/internal/repository"
)

// UserService handles account management for self-registration and the
// admin user table.
type UserService struct {
	users *repository.UserRepository
	auth  *AuthService
	log   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users *repository.UserRepository, auth *AuthService, log zerolog.Logger) *UserService {
	return &UserService{
		users: users,
		auth:  auth,
		log:   log.With().Str("component", "user_service").Logger(),
	}
}

// Register creates an active, non-admin account.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	return s.create(ctx, req.Username, req.Email, req.Password, true, false)
}

// Create creates an account on behalf of an admin.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return s.create(ctx, req.Username, req.Email, req.Password, active, req.Admin)
}

func (s *UserService) create(ctx context.Context, username, email, password string, active, admin bool) (*model.User, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Active:       active,
		Admin:        admin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int("user_id", u.ID).Bool("admin", u.Admin).Msg("User created")
	return u, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id int) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// List retrieves a page of users matching filter.
func (s *UserService) List(ctx context.Context, filter model.UserFilter, page, perPage int) ([]model.User, int, error) {
	users, total, err := s.users.ListPaginated(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update applies the non-nil fields of req to a user.
func (s *UserService) Update(ctx context.Context, id int, req *model.UpdateUserRequest) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil {
		hash, err := s.auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if req.Admin != nil {
		u.Admin = *req.Admin
	}

	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUser):
			return nil, ErrDuplicateUser
		case isNotFound(err):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Delete removes a user. An admin cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id int) error {
	if actorID == id {
		return ErrSelfDelete
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info().Int("user_id", id).Int("actor_id", actorID).Msg("User deleted")
	return nil
}

// Stats retrieves the user counts for the dashboard.
func (s *UserService) Stats(ctx context.Context) (model.UserStats, error) {
	stats, err := s.users.GetStats(ctx)
	if err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}
