// Command sweep runs one delivery sweep and prints the result as JSON. It is
// the cron-friendly alternative to POST /functions/v1/deliver-bottles.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyashahama/bottled/internal/app"
	"github.com/nyashahama/bottled/internal/config"
	"github.com/nyashahama/bottled/internal/store"
	"github.com/nyashahama/bottled/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("sweep failed", "error", err)
		if errors.Is(err, worker.ErrSweepInProgress) {
			os.Exit(75) // EX_TEMPFAIL: try again on the next tick
		}
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	pool, queries, err := app.OpenDB(ctx, cfg.DatabaseURL, cfg.MigrateOnStart, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	rc, closeRedis := app.ConnectCache(ctx, cfg.Redis, logger)
	defer closeRedis()

	sender, err := app.NewSender(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}

	sweeper := app.NewSweeper(queries, store.New(pool, queries), sender, rc, nil, cfg.Sweep, logger)
	res, err := sweeper.Run(ctx)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(res)
}
