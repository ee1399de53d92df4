// Package api implements the HTTP layer for Bottled.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/bottled/internal/auth"
	"github.com/nyashahama/bottled/internal/db"
	"github.com/nyashahama/bottled/internal/images"
	"github.com/nyashahama/bottled/internal/metrics"
	"github.com/nyashahama/bottled/internal/notify"
	"github.com/nyashahama/bottled/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// RequestTimeout bounds every /api request. Defaults to 30s.
	RequestTimeout time.Duration

	// SweepTimeout bounds a deliver-bottles invocation. Defaults to 10m.
	SweepTimeout time.Duration
}

// Notifier sends the confirmation email. *notify.Notifier satisfies it.
type Notifier interface {
	Seal(ctx context.Context, r notify.Request) error
}

// ImageStore stores and serves uploads. *images.Store satisfies it.
type ImageStore interface {
	Save(r io.Reader) (images.Image, error)
	Handler() http.Handler
}

// TokenVerifier checks bearer tokens. *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Deps are the collaborators the handlers use. Any field except Q may be nil;
// the routes that need a missing collaborator answer with a configuration
// error instead of panicking.
type Deps struct {
	// Q handles all single-query reads and the bottle insert.
	Q db.Querier

	// Sweep runs one delivery sweep.
	Sweep worker.Sweep

	Notifier Notifier
	Images   ImageStore

	// Verifier is nil when AUTH_JWT_SECRET is unset; the owner routes then
	// answer 401.
	Verifier TokenVerifier

	// Health serves /live and /ready.
	Health http.Handler

	Metrics *metrics.Metrics
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	q        db.Querier
	sweep    worker.Sweep
	notifier Notifier
	images   ImageStore
	verifier TokenVerifier
	health   http.Handler
	metrics  *metrics.Metrics

	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 10 * time.Minute
	}
	s := &Server{
		q:        deps.Q,
		sweep:    deps.Sweep,
		notifier: deps.Notifier,
		images:   deps.Images,
		verifier: deps.Verifier,
		health:   deps.Health,
		metrics:  deps.Metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// ── Health & metrics ──────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.health != nil {
		r.Handle("/live", s.health)
		r.Handle("/ready", s.health)
	}
	r.Handle("/metrics", s.metrics.Handler())

	// ── Functions ─────────────────────────────────────────────────────────────
	// Called by the scheduler and the composer. POST only.
	r.With(middleware.Timeout(s.cfg.SweepTimeout)).
		Post("/functions/v1/deliver-bottles", s.handleDeliverBottles)
	r.With(middleware.Timeout(s.cfg.RequestTimeout)).
		Post("/functions/v1/send-confirmation", s.handleSendConfirmation)

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		// Composing is anonymous.
		r.Post("/bottles", s.handleCreateBottle)
		r.Post("/images", s.handleUploadImage)

		// Owner routes: require a verified bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/bottles", s.handleListBottles)
			r.Get("/bottles/{bottleID}", s.handleGetBottle)
		})
	})

	// ── Stored images ─────────────────────────────────────────────────────────
	if s.images != nil {
		r.Handle("/images/*", http.StripPrefix("/images", s.images.Handler()))
	}

	return r
}
