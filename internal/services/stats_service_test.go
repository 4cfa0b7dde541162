package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JhostinAleck/asrs/internal/models"
)

type fakeAttemptReader struct {
	attempts []*models.LoginAttempt
	err      error
}

func (r *fakeAttemptReader) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if r.err != nil {
		return nil, r.err
	}
	if limit > len(r.attempts) {
		limit = len(r.attempts)
	}
	return r.attempts[:limit], nil
}

func (r *fakeAttemptReader) countSince(since time.Time, onlyFailed bool) int64 {
	var n int64
	for _, a := range r.attempts {
		if a.AttemptTime.After(since) && (!onlyFailed || !a.Success) {
			n++
		}
	}
	return n
}

func (r *fakeAttemptReader) CountSince(ctx context.Context, since time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.countSince(since, false), nil
}

func (r *fakeAttemptReader) CountFailedSince(ctx context.Context, since time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.countSince(since, true), nil
}

func (r *fakeAttemptReader) CountUniqueIPsSince(ctx context.Context, since time.Time) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	ips := make(map[string]struct{})
	for _, a := range r.attempts {
		if a.AttemptTime.After(since) {
			ips[a.IPAddress] = struct{}{}
		}
	}
	return int64(len(ips)), nil
}

func TestStatsService_SecurityStats(t *testing.T) {
	now := time.Now()
	reader := &fakeAttemptReader{attempts: []*models.LoginAttempt{
		{Username: "alice", IPAddress: "10.0.0.1", Success: true, AttemptTime: now.Add(-10 * time.Minute)},
		{Username: "alice", IPAddress: "10.0.0.1", Success: false, AttemptTime: now.Add(-20 * time.Minute)},
		{Username: "bob", IPAddress: "10.0.0.2", Success: false, AttemptTime: now.Add(-3 * time.Hour)},
		{Username: "bob", IPAddress: "10.0.0.2", Success: true, AttemptTime: now.Add(-30 * time.Hour)},
	}}
	service := NewStatsService(reader, slog.Default())

	stats, err := service.SecurityStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalAttemptsLastHour)
	assert.Equal(t, int64(1), stats.FailedAttemptsLastHour)
	assert.Equal(t, int64(3), stats.TotalAttemptsLastDay)
	assert.Equal(t, int64(2), stats.FailedAttemptsLastDay)
	assert.Equal(t, int64(2), stats.UniqueIPsLastDay)
}

func TestStatsService_SecurityStats_Error(t *testing.T) {
	service := NewStatsService(&fakeAttemptReader{err: errors.New("query failed")}, slog.Default())

	stats, err := service.SecurityStats(context.Background())
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestStatsService_RecentAttempts_LimitClamped(t *testing.T) {
	attempts := make([]*models.LoginAttempt, 150)
	for i := range attempts {
		attempts[i] = &models.LoginAttempt{Username: "alice", AttemptTime: time.Now()}
	}
	service := NewStatsService(&fakeAttemptReader{attempts: attempts}, slog.Default())

	for _, limit := range []int{0, -5, 500} {
		got, err := service.RecentAttempts(context.Background(), limit)
		require.NoError(t, err)
		assert.Len(t, got, maxAttemptsPage, "limit %d", limit)
	}

	got, err := service.RecentAttempts(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}
