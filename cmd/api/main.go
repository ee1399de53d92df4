package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nyashahama/bottled/internal/api"
	"github.com/nyashahama/bottled/internal/app"
	"github.com/nyashahama/bottled/internal/auth"
	"github.com/nyashahama/bottled/internal/config"
	"github.com/nyashahama/bottled/internal/health"
	"github.com/nyashahama/bottled/internal/images"
	"github.com/nyashahama/bottled/internal/metrics"
	"github.com/nyashahama/bottled/internal/notify"
	"github.com/nyashahama/bottled/internal/store"
	"github.com/nyashahama/bottled/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// Root context cancelled by OS signal. Runner, health watch and both
	// servers respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := app.OpenDB(ctx, cfg.DatabaseURL, cfg.MigrateOnStart, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries)

	// ── Redis (optional) ──────────────────────────────────────────────────────
	rc, closeRedis := app.ConnectCache(ctx, cfg.Redis, logger)
	defer closeRedis()

	// ── Metrics ───────────────────────────────────────────────────────────────
	m := metrics.New(prometheus.DefaultRegisterer)

	// ── Email ─────────────────────────────────────────────────────────────────
	sender, err := app.NewSender(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	notifier := notify.New(sender, logger, m)

	// ── Images ────────────────────────────────────────────────────────────────
	imgs, err := images.NewStore(cfg.Images.Dir, cfg.Images.PublicURL)
	if err != nil {
		return fmt.Errorf("images: %w", err)
	}

	// ── Auth (optional) ───────────────────────────────────────────────────────
	// Left as an untyped nil when unset so the owner routes answer 401.
	var verifier api.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("auth: AUTH_JWT_SECRET not set; bottle listing is disabled")
	}

	// ── Health ────────────────────────────────────────────────────────────────
	checker := health.NewChecker(logger)
	checker.AddReadinessCheck("database", st.Ping)
	if rc != nil {
		checker.AddReadinessCheck("redis", rc.Ping)
	}

	// ── Sweep ─────────────────────────────────────────────────────────────────
	sweeper := app.NewSweeper(queries, st, sender, rc, m, cfg.Sweep, logger)
	runner := worker.NewRunner(sweeper, worker.RunnerConfig{Interval: cfg.Sweep.Interval}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Q:        queries,
		Sweep:    sweeper,
		Notifier: notifier,
		Images:   imgs,
		Verifier: verifier,
		Health:   checker.Handler(),
		Metrics:  m,
	}, api.Config{Env: cfg.Env}, logger)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 11 * time.Minute, // a deliver-bottles sweep may run up to 10m
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC health ───────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, checker.GRPCServer())

	// ── One port, two protocols ───────────────────────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := mux.Match(cmux.Any())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		checker.Watch(gctx, 10*time.Second)
		return nil
	})
	g.Go(func() error {
		if err := grpcSrv.Serve(grpcL); err != nil && gctx.Err() == nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && gctx.Err() == nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("server listening", "addr", lis.Addr().String())
		if err := mux.Serve(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("cmux: %w", err)
		}
		return nil
	})

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Give in-flight HTTP requests up to 20 seconds to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		_ = lis.Close()
		if err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
