package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/JhostinAleck/asrs/internal/models"
)

// AttemptReader provides the aggregate queries behind the security endpoints
type AttemptReader interface {
	ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountFailedSince(ctx context.Context, since time.Time) (int64, error)
	CountUniqueIPsSince(ctx context.Context, since time.Time) (int64, error)
}

// StatsService aggregates the login attempt log for monitoring. The figures
// cover logged attempts only; requests rejected by the rate limiter never
// reach the log and are not counted here.
type StatsService struct {
	attempts AttemptReader
	logger   *slog.Logger
}

// NewStatsService creates a new StatsService
func NewStatsService(attempts AttemptReader, logger *slog.Logger) *StatsService {
	return &StatsService{attempts: attempts, logger: logger}
}

// SecurityStats returns attempt counts over the trailing hour and day.
func (s *StatsService) SecurityStats(ctx context.Context) (*models.SecurityStats, error) {
	now := time.Now()
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	stats := &models.SecurityStats{}
	var err error

	if stats.TotalAttemptsLastHour, err = s.attempts.CountSince(ctx, hourAgo); err != nil {
		return nil, s.statsErr(err)
	}
	if stats.FailedAttemptsLastHour, err = s.attempts.CountFailedSince(ctx, hourAgo); err != nil {
		return nil, s.statsErr(err)
	}
	if stats.TotalAttemptsLastDay, err = s.attempts.CountSince(ctx, dayAgo); err != nil {
		return nil, s.statsErr(err)
	}
	if stats.FailedAttemptsLastDay, err = s.attempts.CountFailedSince(ctx, dayAgo); err != nil {
		return nil, s.statsErr(err)
	}
	if stats.UniqueIPsLastDay, err = s.attempts.CountUniqueIPsSince(ctx, dayAgo); err != nil {
		return nil, s.statsErr(err)
	}

	return stats, nil
}

func (s *StatsService) statsErr(err error) error {
	s.logger.Error("failed to aggregate login attempts", slog.Any("error", err))
	return models.ErrInternalServer
}

// RecentAttempts returns the newest attempt rows, capped at maxAttemptsPage.
func (s *StatsService) RecentAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if limit <= 0 || limit > maxAttemptsPage {
		limit = maxAttemptsPage
	}

	attempts, err := s.attempts.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list login attempts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return attempts, nil
}

const maxAttemptsPage = 100
