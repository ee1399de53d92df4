package worker_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/bottled/internal/bottle"
	"github.com/nyashahama/bottled/internal/cache"
	"github.com/nyashahama/bottled/internal/db"
	"github.com/nyashahama/bottled/internal/email"
	"github.com/nyashahama/bottled/internal/store"
	"github.com/nyashahama/bottled/internal/worker"
)

// ─── FAKES ────────────────────────────────────────────────────────────────────

// fakeDB is an in-memory bottles table. It implements worker.Store; the
// read side goes through fakeQueries, which shares the same map.
type fakeDB struct {
	mu      sync.Mutex
	bottles map[uuid.UUID]db.Bottle
	order   []uuid.UUID

	listErr   error
	recordErr error
	// ignoreDates makes the listing return future bottles too.
	ignoreDates bool
	// claimHook runs before each claim, e.g. to simulate a concurrent sweep.
	claimHook func(id uuid.UUID)

	listCalls int
	attempts  []store.RecordDeliveryParams
	runs      []store.RecordSweepParams
}

func newFakeDB() *fakeDB {
	return &fakeDB{bottles: map[uuid.UUID]db.Bottle{}}
}

func (f *fakeDB) add(recipient string, due time.Time) db.Bottle {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := db.Bottle{
		ID:             uuid.New(),
		SenderEmail:    "ada@example.com",
		RecipientEmail: recipient,
		Message:        "hello",
		DeliveryDate:   due,
		Theme:          db.BottleThemeParchment,
		BottleColor:    "#3498db",
		Status:         db.BottleStatusPending,
		CreatedAt:      due.AddDate(0, 0, -30),
	}
	f.bottles[b.ID] = b
	f.order = append(f.order, b.ID)
	return b
}

func (f *fakeDB) get(id uuid.UUID) db.Bottle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bottles[id]
}

// fakeQueries is the db.Querier view of a fakeDB. Only ListDueBottles is
// implemented; anything else panics.
type fakeQueries struct {
	db.Querier
	f *fakeDB
}

func (q fakeQueries) ListDueBottles(ctx context.Context, p db.ListDueBottlesParams) ([]db.Bottle, error) {
	return q.f.listDue(ctx, p)
}

func (f *fakeDB) listDue(_ context.Context, p db.ListDueBottlesParams) ([]db.Bottle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []db.Bottle
	for _, id := range f.order {
		b := f.bottles[id]
		if b.DeliveryDate.After(p.Today) && !f.ignoreDates {
			continue
		}
		if b.Status == db.BottleStatusPending ||
			(b.Status == db.BottleStatusSending && b.ClaimedAt.Time.Before(p.StaleBefore)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeDB) ClaimBottle(_ context.Context, p store.ClaimParams) (db.Bottle, error) {
	if f.claimHook != nil {
		f.claimHook(p.BottleID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bottles[p.BottleID]
	stale := b.Status == db.BottleStatusSending && b.ClaimedAt.Time.Before(p.Now.Add(-p.Lease))
	if !ok || (b.Status != db.BottleStatusPending && !stale) {
		return db.Bottle{}, store.ErrAlreadyClaimed
	}
	b.Status = db.BottleStatusSending
	b.ClaimedAt = sql.NullTime{Time: p.Now, Valid: true}
	f.bottles[b.ID] = b
	return b, nil
}

func (f *fakeDB) RecordDelivery(_ context.Context, p store.RecordDeliveryParams) (db.Bottle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return db.Bottle{}, f.recordErr
	}
	b := f.bottles[p.BottleID]
	if b.Status != db.BottleStatusSending {
		return db.Bottle{}, store.ErrNotClaimed
	}
	if p.Delivered {
		b.Status = db.BottleStatusDelivered
		b.DeliveredAt = sql.NullTime{Time: p.At, Valid: true}
	} else {
		b.Status = db.BottleStatusFailed
	}
	f.bottles[b.ID] = b
	f.attempts = append(f.attempts, p)
	return b, nil
}

func (f *fakeDB) RecordSweep(_ context.Context, p store.RecordSweepParams) (db.SweepRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, p)
	return db.SweepRun{ID: uuid.New()}, nil
}

// stubSender fails for any recipient in failFor.
type stubSender struct {
	email.Sender
	mu      sync.Mutex
	failFor map[string]bool
	sent    []email.BottleParams
}

func (s *stubSender) SendBottle(_ context.Context, p email.BottleParams) (email.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, p)
	if s.failFor[p.To] {
		return email.Receipt{}, bottle.ErrTransport
	}
	return email.Receipt{Provider: "stub", MessageID: "msg-" + p.To}, nil
}

type stubLocker struct {
	err      error
	released bool
}

func (l *stubLocker) AcquireSweepLock(context.Context, time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error { l.released = true; return nil }, nil
}

type stubRecorder struct {
	got   []cache.SentRecord
	prior map[uuid.UUID]cache.SentRecord
}

func (r *stubRecorder) RecordSent(_ context.Context, rec cache.SentRecord) error {
	r.got = append(r.got, rec)
	return nil
}

func (r *stubRecorder) Sent(_ context.Context, id uuid.UUID) (cache.SentRecord, bool, error) {
	rec, ok := r.prior[id]
	return rec, ok, nil
}

var (
	_ worker.Store        = (*fakeDB)(nil)
	_ db.Querier          = fakeQueries{}
	_ worker.SentRecorder = (*stubRecorder)(nil)
)

// ─── HELPERS ──────────────────────────────────────────────────────────────────

var (
	today = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	noon  = today.Add(12 * time.Hour)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSweeper(f *fakeDB, s email.Sender, opts ...worker.SweeperOption) *worker.Sweeper {
	opts = append([]worker.SweeperOption{worker.WithClock(func() time.Time { return noon })}, opts...)
	return worker.NewSweeper(fakeQueries{f: f}, f, s, worker.SweepConfig{}, discardLogger(), opts...)
}

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestSweep_ThreeDueSecondFails(t *testing.T) {
	f := newFakeDB()
	b1 := f.add("one@example.com", today)
	b2 := f.add("two@example.com", today)
	b3 := f.add("three@example.com", today.AddDate(0, 0, -1))
	s := &stubSender{failFor: map[string]bool{"two@example.com": true}}

	res, err := newSweeper(f, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 2 || res.Failed != 1 {
		t.Errorf("result: got {%d, %d}, want {2, 1}", res.Delivered, res.Failed)
	}
	if res.Message != "" {
		t.Errorf("message: got %q, want empty", res.Message)
	}

	for _, b := range []db.Bottle{b1, b3} {
		got := f.get(b.ID)
		if got.Status != db.BottleStatusDelivered {
			t.Errorf("%s: status %q, want delivered", b.RecipientEmail, got.Status)
		}
		if !got.DeliveredAt.Valid {
			t.Errorf("%s: delivered_at not set", b.RecipientEmail)
		}
	}
	got2 := f.get(b2.ID)
	if got2.Status != db.BottleStatusFailed {
		t.Errorf("bottle 2: status %q, want failed", got2.Status)
	}
	if got2.DeliveredAt.Valid {
		t.Error("bottle 2: delivered_at must stay unset")
	}
	if len(s.sent) != 3 {
		t.Errorf("sends: got %d, want exactly one per bottle", len(s.sent))
	}
	if len(f.runs) != 1 || f.runs[0].Selected != 3 {
		t.Errorf("sweep run not recorded: %+v", f.runs)
	}
}

func TestSweep_FutureBottlesUntouched(t *testing.T) {
	f := newFakeDB()
	future := f.add("later@example.com", today.AddDate(0, 0, 1))
	s := &stubSender{}

	res, err := newSweeper(f, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 0 || res.Failed != 0 || res.Message != worker.NoPendingMessage {
		t.Errorf("result: got %+v", res)
	}
	if f.get(future.ID).Status != db.BottleStatusPending {
		t.Error("future bottle must stay pending")
	}
	if len(s.sent) != 0 {
		t.Error("no email expected")
	}
}

func TestSweep_SecondRunIsNoop(t *testing.T) {
	f := newFakeDB()
	f.add("one@example.com", today)
	s := &stubSender{}
	sw := newSweeper(f, s)

	if _, err := sw.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := sw.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Delivered != 0 || res.Failed != 0 || res.Message != worker.NoPendingMessage {
		t.Errorf("second run: got %+v", res)
	}
	if len(s.sent) != 1 {
		t.Errorf("sends: got %d, want 1", len(s.sent))
	}
}

func TestSweep_BottleClaimedElsewhereIsSkipped(t *testing.T) {
	f := newFakeDB()
	b1 := f.add("one@example.com", today)
	f.add("two@example.com", today)

	// Another sweep claims bottle 1 between our list and our claim.
	f.claimHook = func(id uuid.UUID) {
		if id != b1.ID {
			return
		}
		f.mu.Lock()
		b := f.bottles[id]
		b.Status = db.BottleStatusSending
		b.ClaimedAt = sql.NullTime{Time: noon, Valid: true}
		f.bottles[id] = b
		f.mu.Unlock()
	}
	s := &stubSender{}

	res, err := newSweeper(f, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 1 || res.Failed != 0 || res.Skipped != 1 {
		t.Errorf("result: got %+v", res)
	}
	if len(s.sent) != 1 || s.sent[0].To != "two@example.com" {
		t.Errorf("only bottle 2 should be sent, got %+v", s.sent)
	}
}

func TestSweep_StaleSendingIsReclaimed(t *testing.T) {
	f := newFakeDB()
	b := f.add("one@example.com", today)
	f.mu.Lock()
	stuck := f.bottles[b.ID]
	stuck.Status = db.BottleStatusSending
	stuck.ClaimedAt = sql.NullTime{Time: noon.Add(-time.Hour), Valid: true}
	f.bottles[b.ID] = stuck
	f.mu.Unlock()

	res, err := newSweeper(f, &stubSender{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 1 {
		t.Errorf("result: got %+v", res)
	}
}

func TestSweep_UpdateFailureAfterSendCountsFailed(t *testing.T) {
	f := newFakeDB()
	b := f.add("one@example.com", today)
	f.recordErr = errors.New("connection reset")
	s := &stubSender{}

	res, err := newSweeper(f, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 0 || res.Failed != 1 {
		t.Errorf("result: got %+v, want {0, 1}", res)
	}
	if f.get(b.ID).Status != db.BottleStatusSending {
		t.Error("bottle should stay sending so it is retried after the lease")
	}
	if len(s.sent) != 1 {
		t.Errorf("sends: got %d", len(s.sent))
	}
}

func TestSweep_ListErrorIsPersistenceError(t *testing.T) {
	f := newFakeDB()
	f.listErr = errors.New("db down")

	_, err := newSweeper(f, &stubSender{}).Run(context.Background())
	if !errors.Is(err, bottle.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestSweep_NoSenderFailsBeforeQuery(t *testing.T) {
	f := newFakeDB()
	f.add("one@example.com", today)

	_, err := newSweeper(f, nil).Run(context.Background())
	if !errors.Is(err, bottle.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if f.listCalls != 0 {
		t.Error("no query may run when configuration is invalid")
	}
}

func TestSweep_LockHeld(t *testing.T) {
	f := newFakeDB()
	f.add("one@example.com", today)
	s := &stubSender{}

	_, err := newSweeper(f, s, worker.WithLocker(&stubLocker{err: cache.ErrLockHeld})).Run(context.Background())
	if !errors.Is(err, worker.ErrSweepInProgress) {
		t.Fatalf("expected ErrSweepInProgress, got %v", err)
	}
	if f.listCalls != 0 || len(s.sent) != 0 {
		t.Error("a locked-out sweep must do nothing")
	}
}

func TestSweep_LockErrorRunsUnlocked(t *testing.T) {
	f := newFakeDB()
	f.add("one@example.com", today)

	res, err := newSweeper(f, &stubSender{}, worker.WithLocker(&stubLocker{err: errors.New("dial tcp: refused")})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 1 {
		t.Errorf("result: got %+v", res)
	}
}

func TestSweep_ReleasesLockAndRecordsSent(t *testing.T) {
	f := newFakeDB()
	b := f.add("one@example.com", today)
	l := &stubLocker{}
	r := &stubRecorder{}

	if _, err := newSweeper(f, &stubSender{}, worker.WithLocker(l), worker.WithSentRecorder(r)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !l.released {
		t.Error("lock not released")
	}
	if len(r.got) != 1 || r.got[0].BottleID != b.ID || r.got[0].MessageID != "msg-one@example.com" {
		t.Errorf("sent record: got %+v", r.got)
	}
}

func TestSweep_CancelledContextStopsBeforeNextBottle(t *testing.T) {
	f := newFakeDB()
	f.add("one@example.com", today)
	f.add("two@example.com", today)

	ctx, cancel := context.WithCancel(context.Background())
	s := &cancellingSender{cancel: cancel}

	res, err := newSweeper(f, s).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 1 {
		t.Errorf("result: got %+v, want one delivered", res)
	}

	var pending []string
	for _, b := range f.bottles {
		if b.Status == db.BottleStatusPending {
			pending = append(pending, b.RecipientEmail)
		}
	}
	sort.Strings(pending)
	if len(pending) != 1 || pending[0] != "two@example.com" {
		t.Errorf("pending after cancel: %v", pending)
	}
}

// cancellingSender succeeds and then cancels the sweep context.
type cancellingSender struct {
	email.Sender
	cancel context.CancelFunc
}

func (c *cancellingSender) SendBottle(context.Context, email.BottleParams) (email.Receipt, error) {
	c.cancel()
	return email.Receipt{}, nil
}

func TestSweep_NotYetDueIsSkipped(t *testing.T) {
	f := newFakeDB()
	b := f.add("later@example.com", today.AddDate(0, 0, 1))
	f.ignoreDates = true
	s := &stubSender{}

	res, err := newSweeper(f, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 0 || res.Failed != 0 || res.Skipped != 1 {
		t.Errorf("result: got %+v", res)
	}
	if len(s.sent) != 0 {
		t.Errorf("a future bottle must not be sent, got %+v", s.sent)
	}
	if f.get(b.ID).Status != db.BottleStatusPending {
		t.Error("a future bottle must stay pending")
	}
}

func TestSweep_ReclaimedAlreadySentIsNotResent(t *testing.T) {
	f := newFakeDB()
	b := f.add("one@example.com", today)
	f.mu.Lock()
	stuck := f.bottles[b.ID]
	stuck.Status = db.BottleStatusSending
	stuck.ClaimedAt = sql.NullTime{Time: noon.Add(-time.Hour), Valid: true}
	f.bottles[b.ID] = stuck
	f.mu.Unlock()

	sentAt := noon.Add(-time.Hour)
	r := &stubRecorder{prior: map[uuid.UUID]cache.SentRecord{
		b.ID: {BottleID: b.ID, MessageID: "msg-earlier", SentAt: sentAt},
	}}
	s := &stubSender{}

	res, err := newSweeper(f, s, worker.WithSentRecorder(r)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Delivered != 1 {
		t.Errorf("result: got %+v", res)
	}
	if len(s.sent) != 0 {
		t.Errorf("an already sent bottle must not be sent again, got %+v", s.sent)
	}
	got := f.get(b.ID)
	if got.Status != db.BottleStatusDelivered || !got.DeliveredAt.Time.Equal(sentAt) {
		t.Errorf("bottle: status %s delivered_at %v", got.Status, got.DeliveredAt)
	}
	if len(f.attempts) != 1 || f.attempts[0].ProviderMessageID != "msg-earlier" {
		t.Errorf("attempts: got %+v", f.attempts)
	}
}

func TestSweep_PendingBottleSkipsSentLookup(t *testing.T) {
	f := newFakeDB()
	b := f.add("one@example.com", today)
	// A stray record must not stop a pending bottle from being sent.
	r := &stubRecorder{prior: map[uuid.UUID]cache.SentRecord{b.ID: {BottleID: b.ID}}}
	s := &stubSender{}

	if _, err := newSweeper(f, s, worker.WithSentRecorder(r)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.sent) != 1 {
		t.Errorf("sends: got %d, want 1", len(s.sent))
	}
}
