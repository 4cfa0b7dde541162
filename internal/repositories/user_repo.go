package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/JhostinAleck/asrs/internal/database"
	"github.com/JhostinAleck/asrs/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, username, password_hash, email, first_name, last_name,
	is_staff, is_blocked, blocked_until, failed_login_attempts, last_failed_login,
	created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning user rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var blockedUntil, lastFailedLogin *time.Time

	err := scanner.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Email,
		&user.FirstName, &user.LastName,
		&user.IsStaff, &user.IsBlocked, &blockedUntil,
		&user.FailedLoginAttempts, &lastFailedLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.BlockedUntil = blockedUntil
	user.LastFailedLogin = lastFailedLogin

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, password_hash, email, first_name, last_name, is_staff, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Email,
		user.FirstName, user.LastName, user.IsStaff,
		user.CreatedAt, user.UpdatedAt,
	))
}

// RecordLoginFailure bumps the persistent failure counters on the user row.
// The increment happens in SQL so concurrent failures never lose an update.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    last_failed_login = $1,
		    updated_at = $1
		WHERE id = $2
	`

	result, err := r.db.Pool.Exec(ctx, query, at, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ResetLoginFailures clears the failure counters after a successful login.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetBlocked applies or lifts an administrative block.
func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool, until *time.Time) error {
	query := `
		UPDATE users
		SET is_blocked = $1, blocked_until = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`

	result, err := r.db.Pool.Exec(ctx, query, blocked, until, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}
