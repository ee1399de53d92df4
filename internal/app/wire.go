// Package app builds the components the binaries in cmd/ share: the database
// pool, the email sender, the optional Redis cache and the delivery sweep.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/nyashahama/bottled/internal/cache"
	"github.com/nyashahama/bottled/internal/config"
	"github.com/nyashahama/bottled/internal/db"
	"github.com/nyashahama/bottled/internal/email"
	"github.com/nyashahama/bottled/internal/metrics"
	"github.com/nyashahama/bottled/internal/store"
	"github.com/nyashahama/bottled/internal/worker"
)

// OpenDB opens the connection pool, applies migrations when migrate is set,
// and prepares all sqlc statements.
//
// Using db.Prepare (rather than db.New) means every query is validated against
// the database schema at startup, so migrations must run first.
func OpenDB(ctx context.Context, dsn string, migrate bool, logger *slog.Logger) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	if migrate {
		if err := MigrateUp(dsn, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	queries, err := db.Prepare(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("prepare statements: %w", err)
	}

	return pool, queries, nil
}

// MigrateUp applies every pending embedded migration.
func MigrateUp(dsn string, logger *slog.Logger) error {
	m, err := db.NewMigrator(dsn, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// NewSender builds the email sender from the configured transports: Resend
// as primary, the SMTP relay as fallback. It returns a nil Sender (not an
// error) when neither is configured; the notifier and the sweep then report a
// configuration error at invocation time.
func NewSender(cfg config.EmailConfig, logger *slog.Logger) (email.Sender, error) {
	if !cfg.Configured() {
		logger.Warn("email: no transport configured; sends will fail")
		return nil, nil
	}

	var primary, secondary email.Transport
	if cfg.ResendAPIKey != "" {
		t, err := email.NewResendClient(cfg.ResendAPIKey)
		if err != nil {
			return nil, err
		}
		primary = t
	}
	if cfg.SMTPAddr != "" {
		t, err := email.NewSMTPClient(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			return nil, err
		}
		secondary = t
	}

	switch {
	case primary != nil && secondary != nil:
		logger.Info("email: using Resend with SMTP fallback")
	case primary != nil:
		logger.Info("email: using Resend only")
	default:
		logger.Info("email: using SMTP only")
	}

	t, err := email.NewFallback(primary, secondary, logger)
	if err != nil {
		return nil, err
	}
	return email.NewSender(t, cfg.FromAddr, cfg.FromName), nil
}

// ConnectCache connects to Redis when REDIS_ADDR is set. An unreachable Redis
// is logged and treated as absent: the sweep then runs without its lock.
// The returned close func is always safe to call.
func ConnectCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*cache.Cache, func() error) {
	noop := func() error { return nil }
	if cfg.Addr == "" {
		return nil, noop
	}
	rdb, err := cache.Connect(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		logger.Warn("redis unavailable, continuing without it", "addr", cfg.Addr, "error", err)
		return nil, noop
	}
	logger.Info("redis connected", "addr", cfg.Addr)
	return cache.New(rdb), rdb.Close
}

// NewSweeper wires the delivery sweep. c and m may be nil.
func NewSweeper(
	q db.Querier,
	st *store.Store,
	sender email.Sender,
	c *cache.Cache,
	m *metrics.Metrics,
	cfg config.SweepConfig,
	logger *slog.Logger,
) *worker.Sweeper {
	opts := []worker.SweeperOption{worker.WithMetrics(m)}
	if c != nil {
		opts = append(opts, worker.WithLocker(c), worker.WithSentRecorder(c))
	}
	return worker.NewSweeper(q, st, sender, worker.SweepConfig{
		ClaimLease:  cfg.ClaimLease,
		ItemTimeout: cfg.ItemTimeout,
		LockTTL:     cfg.LockTTL,
	}, logger, opts...)
}
