package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetpulse/internal/config"
	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB owns the connection pool. Connections are established lazily; every
// query acquires one under a deadline and releases it when done.
type DB struct {
	Pool          *pgxpool.Pool
	queryTimeout  time.Duration
	healthTimeout time.Duration
}

func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}

	logger.Info("Database pool configured",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_connections", poolCfg.MaxConns),
		zap.Int32("min_connections", poolCfg.MinConns),
	)

	return &DB{
		Pool:          pool,
		queryTimeout:  orDefault(cfg.QueryTimeout, 5*time.Second),
		healthTimeout: orDefault(cfg.HealthTimeout, 2*time.Second),
	}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (d *DB) Close() {
	d.Pool.Close()
}

// Probe runs a trivial query within the health timeout.
func (d *DB) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.healthTimeout)
	defer cancel()

	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", telemetry.ErrBackendUnavailable, err)
	}
	defer conn.Release()

	var now time.Time
	if err := conn.QueryRow(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return fmt.Errorf("%w: %w", telemetry.ErrBackendUnavailable, err)
	}
	return nil
}

// withConn runs fn on a pooled connection under the query timeout.
// Failures that are not domain errors are reported as ErrTransientIO.
func (d *DB) withConn(ctx context.Context, op string, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
	defer cancel()

	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, telemetry.ErrTransientIO, err)
	}
	defer conn.Release()

	if err := fn(ctx, conn); err != nil {
		if errors.Is(err, telemetry.ErrDeviceNotFound) || errors.Is(err, telemetry.ErrAlertNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w: %w", op, telemetry.ErrTransientIO, err)
	}
	return nil
}
