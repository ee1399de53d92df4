package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/bottled/internal/bottle"
	"github.com/nyashahama/bottled/internal/cache"
	"github.com/nyashahama/bottled/internal/db"
	"github.com/nyashahama/bottled/internal/email"
	"github.com/nyashahama/bottled/internal/metrics"
	"github.com/nyashahama/bottled/internal/store"
)

// NoPendingMessage is the Result message when nothing is due.
const NoPendingMessage = "No pending bottles"

// ErrSweepInProgress is returned by Run when another sweep holds the lock.
var ErrSweepInProgress = errors.New("worker: sweep already in progress")

// ─── DEPENDENCIES ─────────────────────────────────────────────────────────────

// Store is the lifecycle-write surface of *store.Store the sweep uses.
type Store interface {
	ClaimBottle(ctx context.Context, p store.ClaimParams) (db.Bottle, error)
	RecordDelivery(ctx context.Context, p store.RecordDeliveryParams) (db.Bottle, error)
	RecordSweep(ctx context.Context, p store.RecordSweepParams) (db.SweepRun, error)
}

// Locker keeps overlapping sweeps apart. *cache.Cache satisfies it.
type Locker interface {
	AcquireSweepLock(ctx context.Context, ttl time.Duration) (func(context.Context) error, error)
}

// SentRecorder stores metadata about sent bottles. *cache.Cache satisfies it.
// A reclaimed bottle with a record is marked delivered without a second send.
type SentRecorder interface {
	RecordSent(ctx context.Context, r cache.SentRecord) error
	Sent(ctx context.Context, bottleID uuid.UUID) (cache.SentRecord, bool, error)
}

// SweepConfig holds tuning parameters for the Sweeper. Zero fields take the
// values from DefaultSweepConfig.
type SweepConfig struct {
	// ClaimLease is how long a claim stays exclusive. A bottle left in sending
	// for longer (the process died mid-send) is picked up again. Default: 15m.
	ClaimLease time.Duration

	// ItemTimeout bounds claim + send for one bottle. Default: 30s.
	ItemTimeout time.Duration

	// LockTTL is the sweep lock lifetime when a Locker is set. Default: 10m.
	LockTTL time.Duration
}

// DefaultSweepConfig returns production defaults.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		ClaimLease:  15 * time.Minute,
		ItemTimeout: 30 * time.Second,
		LockTTL:     10 * time.Minute,
	}
}

// Result is the fold of one sweep over the due bottles. Delivered + Failed
// equals Selected minus Skipped.
type Result struct {
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`

	Selected int `json:"-"`
	Skipped  int `json:"-"` // claimed by another sweep
}

// ─── SWEEPER ──────────────────────────────────────────────────────────────────

// Sweeper finds due bottles and delivers them.
type Sweeper struct {
	q       db.Querier
	store   Store
	sender  email.Sender
	locker  Locker       // optional
	sent    SentRecorder // optional
	cfg     SweepConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// SweeperOption configures optional Sweeper dependencies.
type SweeperOption func(*Sweeper)

// WithLocker enables the one-sweep-at-a-time lock.
func WithLocker(l Locker) SweeperOption { return func(s *Sweeper) { s.locker = l } }

// WithSentRecorder stores delivery metadata after each successful send.
func WithSentRecorder(r SentRecorder) SweeperOption { return func(s *Sweeper) { s.sent = r } }

// WithMetrics records sweep counters.
func WithMetrics(m *metrics.Metrics) SweeperOption { return func(s *Sweeper) { s.metrics = m } }

// WithClock replaces time.Now. Tests pin the calendar date with it.
func WithClock(now func() time.Time) SweeperOption { return func(s *Sweeper) { s.now = now } }

// NewSweeper constructs a Sweeper. sender may be nil when no transport is
// configured; Run then fails with bottle.ErrConfiguration before any query.
func NewSweeper(
	q db.Querier,
	st Store,
	sender email.Sender,
	cfg SweepConfig,
	logger *slog.Logger,
	opts ...SweeperOption,
) *Sweeper {
	def := DefaultSweepConfig()
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = def.ClaimLease
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = def.ItemTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	s := &Sweeper{
		q:      q,
		store:  st,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// validate is the fail-fast configuration check done before any query.
func (s *Sweeper) validate() error {
	var missing []string
	if s.sender == nil {
		missing = append(missing, "email transport")
	}
	if s.q == nil || s.store == nil {
		missing = append(missing, "bottle store")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: sweep missing %v", bottle.ErrConfiguration, missing)
	}
	return nil
}

// Run executes one sweep:
//
//  1. Validate configuration and take the sweep lock, if one is configured.
//  2. List bottles due on or before today that are pending (or stuck in
//     sending past the claim lease).
//  3. For each bottle in turn: claim, send, record the outcome.
//  4. Persist a sweep_runs row and return the counts.
//
// Only the checks in steps 1 and 2 return an error; per-bottle failures are
// counted in the Result.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	// ── 1. Configuration and lock ─────────────────────────────────────────────
	if err := s.validate(); err != nil {
		return Result{}, err
	}

	if s.locker != nil {
		release, err := s.locker.AcquireSweepLock(ctx, s.cfg.LockTTL)
		switch {
		case errors.Is(err, cache.ErrLockHeld):
			return Result{}, ErrSweepInProgress
		case err != nil:
			// The claim still keeps bottles exclusive; run unlocked.
			s.logger.Warn("sweep: lock unavailable, continuing without it", "error", err)
		default:
			defer func() {
				relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := release(relCtx); err != nil {
					s.logger.Warn("sweep: release lock failed", "error", err)
				}
			}()
		}
	}

	started := s.now()
	today := bottle.Today(started)

	// ── 2. Due bottles ────────────────────────────────────────────────────────
	due, err := s.q.ListDueBottles(ctx, db.ListDueBottlesParams{
		Today:       today,
		StaleBefore: started.Add(-s.cfg.ClaimLease),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: list due bottles: %v", bottle.ErrPersistence, err)
	}

	if len(due) == 0 {
		s.logger.Info("sweep: no pending bottles to deliver")
		return Result{Message: NoPendingMessage}, nil
	}

	s.logger.Info("sweep: found bottles to deliver", "count", len(due), "today", today.Format(bottle.DateLayout))

	// ── 3. Deliver, one bottle at a time ──────────────────────────────────────
	res := Result{Selected: len(due)}
	for _, b := range due {
		if ctx.Err() != nil {
			s.logger.Warn("sweep: cancelled, leaving remaining bottles for next run",
				"remaining", res.Selected-res.Delivered-res.Failed-res.Skipped,
			)
			break
		}
		if !bottle.IsDue(b.DeliveryDate, today) {
			s.logger.Warn("sweep: listed bottle is not due, skipping",
				"bottle_id", b.ID,
				"delivery_date", b.DeliveryDate.Format(bottle.DateLayout),
			)
			res.Skipped++
			continue
		}
		switch s.deliver(ctx, b) {
		case outcomeDelivered:
			res.Delivered++
		case outcomeSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}

	// ── 4. Summary ────────────────────────────────────────────────────────────
	finished := s.now()
	s.metrics.SweepFinished(res.Delivered, res.Failed, res.Skipped, finished.Sub(started))

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.store.RecordSweep(recCtx, store.RecordSweepParams{
		StartedAt:  started,
		FinishedAt: finished,
		Selected:   res.Selected,
		Delivered:  res.Delivered,
		Failed:     res.Failed,
	}); err != nil {
		s.logger.Warn("sweep: record sweep run failed", "error", err)
	}

	s.logger.Info("sweep: delivery complete",
		"delivered", res.Delivered,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"took", finished.Sub(started),
	)
	return res, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeDelivered
	outcomeSkipped
)

// deliver claims, sends and records one bottle. It never returns an error;
// every failure is logged and folded into the outcome.
func (s *Sweeper) deliver(ctx context.Context, b db.Bottle) outcome {
	log := s.logger.With("bottle_id", b.ID)

	itemCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	// ── a. Claim ──────────────────────────────────────────────────────────────
	claimed, err := s.store.ClaimBottle(itemCtx, store.ClaimParams{
		BottleID: b.ID,
		Now:      s.now(),
		Lease:    s.cfg.ClaimLease,
	})
	if errors.Is(err, store.ErrAlreadyClaimed) {
		log.Info("sweep: bottle claimed by another sweep, skipping")
		return outcomeSkipped
	}
	if err != nil {
		log.Error("sweep: claim failed", "error", err)
		return outcomeFailed
	}

	// A bottle left in sending may already have gone out before the last
	// status write failed.
	if b.Status == db.BottleStatusSending {
		if prev, ok := s.previouslySent(itemCtx, log, claimed.ID); ok {
			return s.recordResent(ctx, log, claimed, prev)
		}
	}

	// ── b/c. Render and send ──────────────────────────────────────────────────
	receipt, sendErr := s.sender.SendBottle(itemCtx, email.BottleParams{
		To:          claimed.RecipientEmail,
		SenderEmail: claimed.SenderEmail,
		Message:     claimed.Message,
		SentAt:      claimed.CreatedAt,
		Theme:       string(claimed.Theme),
		BottleColor: claimed.BottleColor,
		ImageURL:    claimed.ImageUrl.String,
	})
	s.metrics.EmailSent(metrics.KindDelivery, sendErr)

	// The record write gets its own deadline so a send that used up the item
	// timeout can still be recorded.
	recCtx, recCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer recCancel()

	rec := store.RecordDeliveryParams{
		BottleID:          claimed.ID,
		Delivered:         sendErr == nil,
		At:                s.now(),
		ProviderMessageID: receipt.MessageID,
		Response:          receipt.Raw,
	}

	// ── d. Transport failure ──────────────────────────────────────────────────
	if sendErr != nil {
		rec.Error = sendErr.Error()
		log.Error("sweep: send failed", "to", claimed.RecipientEmail, "error", sendErr)
		if _, err := s.store.RecordDelivery(recCtx, rec); err != nil {
			log.Error("sweep: record failure failed, bottle stays sending until the lease expires", "error", err)
		}
		return outcomeFailed
	}

	// ── e. Transport success ──────────────────────────────────────────────────
	if s.sent != nil {
		if err := s.sent.RecordSent(recCtx, cache.SentRecord{
			BottleID:  claimed.ID,
			Recipient: claimed.RecipientEmail,
			Provider:  receipt.Provider,
			MessageID: receipt.MessageID,
			SentAt:    rec.At,
		}); err != nil {
			log.Warn("sweep: store sent metadata failed", "error", err)
		}
	}

	if _, err := s.store.RecordDelivery(recCtx, rec); err != nil {
		// At-least-once: the email went out but the row still says sending.
		// It will be re-sent after the lease; the message id lets an operator
		// reconcile.
		log.Error("sweep: email sent but status update failed",
			"to", claimed.RecipientEmail,
			"provider", receipt.Provider,
			"message_id", receipt.MessageID,
			"error", err,
		)
		return outcomeFailed
	}

	log.Info("sweep: delivered bottle", "to", claimed.RecipientEmail, "message_id", receipt.MessageID)
	return outcomeDelivered
}

// previouslySent looks up the sent metadata for a reclaimed bottle. Lookup
// errors are logged and treated as "not sent".
func (s *Sweeper) previouslySent(ctx context.Context, log *slog.Logger, id uuid.UUID) (cache.SentRecord, bool) {
	if s.sent == nil {
		return cache.SentRecord{}, false
	}
	prev, ok, err := s.sent.Sent(ctx, id)
	if err != nil {
		log.Warn("sweep: sent metadata lookup failed, sending again", "error", err)
		return cache.SentRecord{}, false
	}
	return prev, ok
}

// recordResent marks a reclaimed bottle delivered using the earlier send.
func (s *Sweeper) recordResent(ctx context.Context, log *slog.Logger, claimed db.Bottle, prev cache.SentRecord) outcome {
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := s.store.RecordDelivery(recCtx, store.RecordDeliveryParams{
		BottleID:          claimed.ID,
		Delivered:         true,
		At:                prev.SentAt,
		ProviderMessageID: prev.MessageID,
	}); err != nil {
		log.Error("sweep: record earlier send failed", "message_id", prev.MessageID, "error", err)
		return outcomeFailed
	}
	log.Info("sweep: bottle was already sent, recorded without resending", "message_id", prev.MessageID)
	return outcomeDelivered
}
