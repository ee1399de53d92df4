package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/bottled/internal/db"
	"github.com/sqlc-dev/pqtype"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// ClaimParams identifies the bottle to claim and the lease that decides when
// an in-flight claim is considered abandoned.
type ClaimParams struct {
	BottleID uuid.UUID
	Now      time.Time
	Lease    time.Duration
}

// RecordDeliveryParams is everything the sweep hands to the store once an
// email send has returned.
type RecordDeliveryParams struct {
	BottleID          uuid.UUID
	Delivered         bool
	At                time.Time
	ProviderMessageID string          // empty when the provider returned none
	Error             string          // transport error text; empty on success
	Response          json.RawMessage // raw provider response; may be nil
}

// RecordSweepParams summarises one sweep invocation.
type RecordSweepParams struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Selected   int
	Delivered  int
	Failed     int
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrAlreadyClaimed is returned by ClaimBottle when the bottle is no longer
// pending (or its claim is still within the lease). Another sweep owns it;
// the caller should skip the bottle.
var ErrAlreadyClaimed = errors.New("store: bottle already claimed")

// ErrNotClaimed is returned by RecordDelivery when the bottle is not in the
// sending state, e.g. because its lease expired and another sweep finished it.
var ErrNotClaimed = errors.New("store: bottle is not claimed")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// ClaimBottle moves a due bottle to the sending state with a compare-and-swap
// on status. A bottle stuck in sending for longer than the lease (the process
// died mid-send) can be claimed again.
//
// Race scenario without this guard:
//  1. Two sweeps start at the same moment and both list the same bottle.
//  2. Both send the delivery email.
//  3. The recipient receives the bottle twice.
//
// With the claim only one UPDATE matches the row; the other sweep sees
// ErrAlreadyClaimed and moves on.
func (s *Store) ClaimBottle(ctx context.Context, p ClaimParams) (db.Bottle, error) {
	b, err := s.q.ClaimBottle(ctx, db.ClaimBottleParams{
		ID:          p.BottleID,
		ClaimedAt:   p.Now,
		StaleBefore: p.Now.Add(-p.Lease),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return db.Bottle{}, ErrAlreadyClaimed
	}
	if err != nil {
		return db.Bottle{}, fmt.Errorf("ClaimBottle: %w", err)
	}
	return b, nil
}

// RecordDelivery atomically:
//
//  1. Moves the claimed bottle to delivered (setting delivered_at) or failed.
//  2. Inserts a delivery_attempts row with the provider's response.
//
// If either step fails the transaction rolls back and the bottle stays in
// sending; it becomes claimable again once the lease expires.
func (s *Store) RecordDelivery(ctx context.Context, p RecordDeliveryParams) (db.Bottle, error) {
	var bottle db.Bottle

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		var (
			updated db.Bottle
			err     error
			outcome db.DeliveryOutcome
		)
		if p.Delivered {
			outcome = db.DeliveryOutcomeDelivered
			updated, err = q.MarkBottleDelivered(ctx, db.MarkBottleDeliveredParams{
				ID:          p.BottleID,
				DeliveredAt: sql.NullTime{Time: p.At, Valid: true},
			})
		} else {
			outcome = db.DeliveryOutcomeFailed
			updated, err = q.MarkBottleFailed(ctx, p.BottleID)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotClaimed
		}
		if err != nil {
			return fmt.Errorf("RecordDelivery: mark %s: %w", outcome, err)
		}

		if _, err := q.InsertDeliveryAttempt(ctx, db.InsertDeliveryAttemptParams{
			BottleID:          p.BottleID,
			Outcome:           outcome,
			ProviderMessageID: nullString(p.ProviderMessageID),
			Error:             nullString(p.Error),
			Response: pqtype.NullRawMessage{
				RawMessage: p.Response,
				Valid:      len(p.Response) > 0 && json.Valid(p.Response),
			},
		}); err != nil {
			return fmt.Errorf("RecordDelivery: insert attempt: %w", err)
		}

		bottle = updated
		return nil
	})

	if errors.Is(err, ErrNotClaimed) {
		return db.Bottle{}, ErrNotClaimed
	}
	if err != nil {
		return db.Bottle{}, err
	}
	return bottle, nil
}

// RecordSweep stores the summary of a finished sweep. Single-query write; it
// lives here because it is part of the delivery lifecycle.
func (s *Store) RecordSweep(ctx context.Context, p RecordSweepParams) (db.SweepRun, error) {
	run, err := s.q.CreateSweepRun(ctx, db.CreateSweepRunParams{
		StartedAt:  p.StartedAt,
		FinishedAt: p.FinishedAt,
		Selected:   int32(p.Selected),
		Delivered:  int32(p.Delivered),
		Failed:     int32(p.Failed),
	})
	if err != nil {
		return db.SweepRun{}, fmt.Errorf("RecordSweep: %w", err)
	}
	return run, nil
}

// nullString converts a Go string to sql.NullString. Empty string → NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
