package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JhostinAleck/asrs/internal/models"
	pkgauth "github.com/JhostinAleck/asrs/pkg/auth"
	pkglogger "github.com/JhostinAleck/asrs/pkg/logger"
)

// UserStore covers the account management operations
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetBlocked(ctx context.Context, id string, blocked bool, until *time.Time) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// CreateUserParams holds the fields accepted when provisioning an account.
type CreateUserParams struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
}

// UserService handles account provisioning and lookups.
type UserService struct {
	users  UserStore
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(users UserStore, logger *slog.Logger, audit *pkglogger.AuditLogger) *UserService {
	return &UserService{users: users, logger: logger, audit: audit}
}

// CreateUser provisions a new account. The password is policy-checked and
// bcrypt-hashed before storage; a duplicate username maps to ErrConflict.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	if err := pkgauth.ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(params.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     params.Username,
		PasswordHash: hash,
		Email:        params.Email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		IsStaff:      params.IsStaff,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user",
			slog.String("username", params.Username),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created",
		slog.String("user_id", created.ID),
		slog.String("username", created.Username))
	s.audit.LogAccountAction("user_created", created.ID, "")
	return created, nil
}

// GetUserByID returns a single account or ErrUserNotFound.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// BlockUser marks an account blocked, optionally until a deadline.
func (s *UserService) BlockUser(ctx context.Context, id string, until *time.Time) error {
	if err := s.users.SetBlocked(ctx, id, true, until); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUserNotFound
		}
		s.logger.Error("failed to block user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.audit.LogAccountAction("user_blocked", id, "")
	return nil
}

// UnblockUser clears the blocked state on an account.
func (s *UserService) UnblockUser(ctx context.Context, id string) error {
	if err := s.users.SetBlocked(ctx, id, false, nil); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUserNotFound
		}
		s.logger.Error("failed to unblock user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.audit.LogAccountAction("user_unblocked", id, "")
	return nil
}

// ListUsers returns a page of accounts.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 || limit > maxUsersPage {
		limit = maxUsersPage
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

const maxUsersPage = 100
