package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JhostinAleck/asrs/internal/models"
)

// CounterStore is the shared cache behind the attempt limiter. Implementations
// must provide atomic increment-or-initialize per key; the production store is
// Redis, tests inject an in-memory one.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// LimiterConfig holds the brute-force protection thresholds.
type LimiterConfig struct {
	MaxFailedAttempts int           // Attempts at or above this are rejected
	Window            time.Duration // Counter TTL, reset on every write
}

// LimiterService gates the login endpoint by counting failed attempts per
// client IP. Every write resets the entry TTL, so the window slides: an
// attacker probing steadily stays blocked. Cache errors fail closed and
// surface as ErrStoreUnavailable.
type LimiterService struct {
	store  CounterStore
	config LimiterConfig
	logger *slog.Logger
}

// NewLimiterService creates a new LimiterService
func NewLimiterService(store CounterStore, config LimiterConfig, logger *slog.Logger) *LimiterService {
	return &LimiterService{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Check reports whether a login attempt from ip may proceed. An absent
// counter means zero failures. Credentials play no part here: once the
// threshold is reached every attempt from the IP is rejected until expiry.
func (s *LimiterService) Check(ctx context.Context, ip string) (bool, error) {
	count, err := s.store.Get(ctx, ip)
	if err != nil {
		s.logger.Error("attempt counter read failed",
			slog.String("ip_address", ip),
			slog.Any("error", err))
		return false, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	if count >= int64(s.config.MaxFailedAttempts) {
		s.logger.Warn("login rate limit exceeded",
			slog.String("ip_address", ip),
			slog.Int64("failed_attempts", count))
		return false, nil
	}

	return true, nil
}

// RecordFailure increments the counter for ip and pushes its expiry out to a
// full window from now.
func (s *LimiterService) RecordFailure(ctx context.Context, ip string) error {
	count, err := s.store.IncrementWithExpiry(ctx, ip, s.config.Window)
	if err != nil {
		s.logger.Error("attempt counter write failed",
			slog.String("ip_address", ip),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("failed login recorded",
		slog.String("ip_address", ip),
		slog.Int64("failed_attempts", count))
	return nil
}

// RetryAfterSeconds is the hint returned with 429 responses.
func (s *LimiterService) RetryAfterSeconds() int {
	return int(s.config.Window / time.Second)
}
