// Command migrate applies or rolls back the embedded schema migrations.
//
//	go run ./cmd/migrate -action=up
//	go run ./cmd/migrate -action=down -steps=1
//	go run ./cmd/migrate -action=version
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nyashahama/bottled/internal/config"
	"github.com/nyashahama/bottled/internal/db"
)

func main() {
	action := flag.String("action", "up", "up, down or version")
	steps := flag.Int("steps", 1, "migrations to roll back with -action=down")
	dsn := flag.String("dsn", "", "postgres URL (default: DATABASE_URL)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*action, *steps, *dsn, logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(action string, steps int, dsn string, logger *slog.Logger) error {
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		dsn = cfg.DatabaseURL
	}

	m, err := db.NewMigrator(dsn, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	switch action {
	case "up":
		return m.Up()
	case "down":
		return m.Down(steps)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown action %q (want up, down or version)", action)
	}
}
