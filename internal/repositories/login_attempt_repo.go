package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/JhostinAleck/asrs/internal/database"
	"github.com/JhostinAleck/asrs/internal/models"
)

// LoginAttemptRepository handles the append-only login attempt log.
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt appends a login attempt. Rows are never updated or deleted
// by the login flow; only the retention cleanup prunes them.
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username, ip_address, user_agent, success, attempt_time)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Username,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.AttemptTime,
	)

	return err
}

// ListRecent returns the newest attempts first.
func (r *LoginAttemptRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, username, ip_address, user_agent, success, attempt_time
		FROM login_attempts
		ORDER BY attempt_time DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.IPAddress, &a.UserAgent, &a.Success, &a.AttemptTime); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}

// CountSince returns the number of attempts recorded at or after the cutoff.
func (r *LoginAttemptRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE attempt_time >= $1`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

// CountFailedSince returns the number of failed attempts at or after the cutoff.
func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE success = false AND attempt_time >= $1`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

// CountUniqueIPsSince returns the number of distinct source IPs at or after
// the cutoff. Rate-limited requests never reach this table, so the figure
// undercounts IPs that only ever hit the limiter.
func (r *LoginAttemptRepository) CountUniqueIPsSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(DISTINCT ip_address) FROM login_attempts WHERE attempt_time >= $1`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

// DeleteOlderThan prunes attempts past the retention horizon and reports how
// many rows were removed.
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempt_time < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
