// Package health exposes liveness and readiness over HTTP (/live, /ready) and
// mirrors readiness into the standard gRPC health service.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// checkTimeout bounds a single dependency ping.
const checkTimeout = 3 * time.Second

// Checker owns the HTTP health handler and the gRPC health server.
type Checker struct {
	http   healthcheck.Handler
	grpc   *grpchealth.Server
	logger *slog.Logger

	mu     sync.Mutex
	checks map[string]PingFunc
}

// NewChecker returns a Checker with a goroutine-count liveness check.
func NewChecker(logger *slog.Logger) *Checker {
	c := &Checker{
		http:   healthcheck.NewHandler(),
		grpc:   grpchealth.NewServer(),
		logger: logger,
		checks: map[string]PingFunc{},
	}
	c.http.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	c.grpc.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// AddReadinessCheck registers a dependency that must be reachable before the
// service reports ready.
func (c *Checker) AddReadinessCheck(name string, ping PingFunc) {
	c.mu.Lock()
	c.checks[name] = ping
	c.mu.Unlock()

	c.http.AddReadinessCheck(name, healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return ping(ctx)
	}, checkTimeout))
}

// Handler serves /live and /ready. Append ?full=1 for per-check detail.
func (c *Checker) Handler() http.Handler {
	return c.http
}

// GRPCServer is registered on the gRPC server in main.
func (c *Checker) GRPCServer() *grpchealth.Server {
	return c.grpc
}

// Ready runs every readiness check and joins the failures.
func (c *Checker) Ready(ctx context.Context) error {
	c.mu.Lock()
	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	checks := make(map[string]PingFunc, len(c.checks))
	for n, f := range c.checks {
		checks[n] = f
	}
	c.mu.Unlock()
	sort.Strings(names)

	var errs []error
	for _, n := range names {
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[n](pctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

// Watch re-evaluates readiness every interval and updates the gRPC status
// until ctx is cancelled, then sets every service to NOT_SERVING.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := c.Ready(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if last != status {
				c.logger.Warn("health: not ready", "error", err)
			}
		}
		if status != last {
			c.grpc.SetServingStatus("", status)
			last = status
		}

		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
