package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JhostinAleck/asrs/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectTimeout     = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// DB wraps the pgx connection pool shared by the repositories.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewConnection opens a pool against cfg and pings it once before handing it
// back, so a bad DSN or unreachable host fails at startup rather than on the
// first login.
func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	applyPoolLimits(poolConfig, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database pool ready",
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
	)
	return &DB{Pool: pool, logger: logger}, nil
}

func applyPoolLimits(pc *pgxpool.Config, cfg *config.DatabaseConfig) {
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod
}

func (db *DB) Close() {
	db.logger.Info("closing database pool")
	db.Pool.Close()
}

// HealthCheck pings the pool with a short deadline. The /health endpoint
// calls it on every probe, so it must not block for long.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}
