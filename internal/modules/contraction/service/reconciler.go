package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/platform/clock"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/platform/logging"
	"storkwatch/internal/platform/metrics"
)

// DefaultHistoryLimit bounds how many stored events are fetched for the view.
const DefaultHistoryLimit = 50

// Reconciler keeps the last known remote snapshot and merges it with the local
// session. Store failures are wrapped with apperrors.ErrStore and never touch
// local state. Remote change notifications are queued and applied by Drain on
// the caller's goroutine.
type Reconciler struct {
	store   contractionout.HistoryStore
	clock   clock.Clock
	userID  string
	limit   int
	dedupe  domain.DedupeKey
	logger  *slog.Logger
	metrics *metrics.Contractions

	remote    []domain.Event
	available bool
	lastErr   error

	queue       *snapshotQueue
	unsubscribe contractionout.Unsubscribe
}

// CommitResult describes a successful save.
type CommitResult struct {
	SessionDate time.Time
	Events      []domain.Event
}

func NewReconciler(
	store contractionout.HistoryStore,
	clk clock.Clock,
	userID string,
	limit int,
	dedupe domain.DedupeKey,
	logger *slog.Logger,
	m *metrics.Contractions,
) *Reconciler {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Reconciler{
		store:   store,
		clock:   clk,
		userID:  userID,
		limit:   limit,
		dedupe:  dedupe,
		logger:  logging.OrDiscard(logger).With("component", "reconciler", "user_id", userID),
		metrics: m,
		queue:   newSnapshotQueue(),
	}
}

// Fetch replaces the remote snapshot. On failure the previous snapshot stays in
// place and the history is marked unavailable.
func (r *Reconciler) Fetch(ctx context.Context) error {
	stored, err := r.store.FetchRecent(ctx, r.userID, r.limit)
	r.metrics.ObserveStoreOp("fetch", err)
	if err != nil {
		r.available = false
		r.lastErr = err
		r.logger.Warn("history fetch failed", "error", err)
		return fmt.Errorf("%w: fetch history: %w", apperrors.ErrStore, err)
	}
	r.Apply(stored)
	return nil
}

// Apply installs a remote snapshot. Applying the same snapshot twice is a no-op.
func (r *Reconciler) Apply(stored []domain.StoredEvent) {
	if len(stored) > r.limit {
		stored = stored[:r.limit]
	}
	r.remote = domain.EventsFromStored(stored)
	r.available = true
	r.lastErr = nil
}

// View merges the remote snapshot with the local session, newest first.
func (r *Reconciler) View(local []domain.Event) []domain.Event {
	return domain.Merge(r.remote, local, r.dedupe)
}

func (r *Reconciler) Available() bool { return r.available }

func (r *Reconciler) LastError() error { return r.lastErr }

// Commit persists the tracker's session in one batch and clears it on success.
// The session must be idle and non-empty. On failure nothing local changes.
func (r *Reconciler) Commit(ctx context.Context, tracker *Tracker) (CommitResult, error) {
	session := tracker.Session()
	if session.Empty() {
		return CommitResult{}, apperrors.ErrNothingToSave
	}
	if session.State() == domain.Timing {
		return CommitResult{}, fmt.Errorf("%w: stop the running contraction before saving", apperrors.ErrInvalidState)
	}
	events := session.Events()
	sessionDate := r.clock.Now()
	err := r.store.CommitBatch(ctx, r.userID, sessionDate, events)
	r.metrics.ObserveStoreOp("commit", err)
	if err != nil {
		r.logger.Error("session commit failed", "events", len(events), "error", err)
		return CommitResult{}, fmt.Errorf("%w: save session: %w", apperrors.ErrStore, err)
	}
	r.metrics.ObserveSaved(len(events))
	r.logger.Info("session committed", "events", len(events), "session_date", sessionDate)

	// Keep the batch visible until the next fetch replaces the snapshot.
	committed := make([]domain.Event, 0, len(events)+len(r.remote))
	for _, e := range events {
		committed = append(committed, e.Clone())
	}
	r.remote = append(committed, r.remote...)

	if _, err := tracker.Clear(ctx); err != nil {
		// The batch is durable. A stale cache entry re-merges by start time and
		// the stores ignore client ids they already hold.
		r.logger.Warn("clear session after commit", "error", err)
	}
	return CommitResult{SessionDate: sessionDate, Events: events}, nil
}

// Delete removes one stored event and drops it from the current snapshot.
func (r *Reconciler) Delete(ctx context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("%w: event id is required", apperrors.ErrInvalidInput)
	}
	err := r.store.DeleteOne(ctx, r.userID, eventID)
	r.metrics.ObserveStoreOp("delete", err)
	if err != nil {
		r.logger.Warn("history delete failed", "event_id", eventID, "error", err)
		return fmt.Errorf("%w: delete %s: %w", apperrors.ErrStore, eventID, err)
	}
	kept := r.remote[:0:0]
	for _, e := range r.remote {
		if e.ID != eventID {
			kept = append(kept, e)
		}
	}
	r.remote = kept
	return nil
}

// Subscribe starts queueing remote snapshots. Subscribing twice is a no-op.
func (r *Reconciler) Subscribe(ctx context.Context) error {
	if r.unsubscribe != nil {
		return nil
	}
	unsub, err := r.store.Subscribe(ctx, r.userID, r.limit, func(stored []domain.StoredEvent) {
		r.queue.Enqueue(stored)
	})
	r.metrics.ObserveStoreOp("subscribe", err)
	if err != nil {
		return fmt.Errorf("%w: subscribe: %w", apperrors.ErrStore, err)
	}
	r.unsubscribe = unsub
	return nil
}

// Changes signals that Drain has snapshots to apply.
func (r *Reconciler) Changes() <-chan struct{} {
	return r.queue.Signal()
}

// Drain applies queued snapshots in arrival order and reports how many were applied.
func (r *Reconciler) Drain() int {
	n := 0
	for {
		snapshot, ok := r.queue.TryDequeue()
		if !ok {
			return n
		}
		r.Apply(snapshot)
		n++
	}
}

func (r *Reconciler) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	r.queue.Close()
}
