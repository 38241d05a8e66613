package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/platform/clock"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/platform/id"
	"storkwatch/internal/platform/logging"
	"storkwatch/internal/platform/metrics"
)

// Tracker owns the unsaved session for one user: it applies state transitions,
// drives the clock while timing and mirrors every change into the session cache.
// It is the only writer of its cache entry and is not safe for concurrent use.
type Tracker struct {
	clock   clock.Clock
	ids     id.Generator
	cache   contractionout.SessionCache
	driver  *ClockDriver
	key     domain.CacheKey
	logger  *slog.Logger
	metrics *metrics.Contractions

	session domain.Session
	elapsed int
}

func NewTracker(
	clk clock.Clock,
	ids id.Generator,
	cache contractionout.SessionCache,
	driver *ClockDriver,
	userID string,
	logger *slog.Logger,
	m *metrics.Contractions,
) *Tracker {
	return &Tracker{
		clock:   clk,
		ids:     ids,
		cache:   cache,
		driver:  driver,
		key:     domain.NewCacheKey(userID),
		logger:  logging.OrDiscard(logger).With("component", "tracker", "user_id", userID),
		metrics: m,
	}
}

// Restore loads the cached session left by a previous process. An in-progress
// contraction resumes timing with the elapsed counter caught up to the wall clock.
func (t *Tracker) Restore(ctx context.Context) error {
	events, ok, err := t.cache.Load(ctx, t.key)
	if err != nil {
		return fmt.Errorf("load cached session: %w", err)
	}
	if !ok {
		return nil
	}
	session, err := domain.RestoreSession(events)
	if err != nil {
		return fmt.Errorf("restore cached session: %w", err)
	}
	t.session = session
	t.elapsed = 0
	if session.State() == domain.Timing {
		last, _ := session.Last()
		t.elapsed = elapsedSince(last.StartTime, t.clock.Now())
		t.driver.Start()
	}
	t.metrics.SetSessionSize(session.Len())
	t.logger.Debug("session restored", "events", session.Len(), "state", session.State().String())
	return nil
}

// Start begins timing a new contraction. When the transition succeeds but the
// cache write fails, the event is returned together with an ErrCacheWrite error.
func (t *Tracker) Start(ctx context.Context, intensity int) (domain.Event, error) {
	next, event, err := t.session.Start(t.clock.Now(), t.ids.New(), intensity)
	if err != nil {
		return domain.Event{}, err
	}
	t.session = next
	t.elapsed = 0
	t.driver.Start()
	t.logger.Debug("contraction started", "client_id", event.ClientID, "intensity", intensity)
	return event, t.persist(ctx)
}

// Stop finalizes the running contraction; duration comes from the wall clock, not the tick counter.
func (t *Tracker) Stop(ctx context.Context) (domain.Event, error) {
	next, event, err := t.session.Stop(t.clock.Now())
	if err != nil {
		return domain.Event{}, err
	}
	ticks := t.elapsed
	t.session = next
	t.driver.Stop()
	t.elapsed = 0
	t.metrics.ObserveRecorded()
	t.logger.Debug("contraction stopped", "client_id", event.ClientID, "duration", *event.Duration, "ticks_seen", ticks)
	return event, t.persist(ctx)
}

// Clear empties the session in any state and removes the cache entry. It returns
// how many events were dropped.
func (t *Tracker) Clear(ctx context.Context) (int, error) {
	dropped := t.session.Len()
	next, _ := t.session.Clear(t.clock.Now())
	t.session = next
	t.driver.Stop()
	t.elapsed = 0
	t.logger.Debug("session cleared", "dropped", dropped)
	return dropped, t.persist(ctx)
}

// Tick advances the display counter. Ticks arriving while idle are ignored.
func (t *Tracker) Tick() int {
	if t.session.State() != domain.Timing {
		return 0
	}
	t.elapsed++
	return t.elapsed
}

func (t *Tracker) State() domain.State { return t.session.State() }

func (t *Tracker) Elapsed() int { return t.elapsed }

func (t *Tracker) Session() domain.Session { return t.session }

func (t *Tracker) Ticks() <-chan time.Time { return t.driver.C() }

// Close stops the clock driver.
func (t *Tracker) Close() { t.driver.Stop() }

func (t *Tracker) persist(ctx context.Context) error {
	t.metrics.SetSessionSize(t.session.Len())
	var err error
	if t.session.Empty() {
		err = t.cache.Clear(ctx, t.key)
	} else {
		err = t.cache.Save(ctx, t.key, t.session.Events())
	}
	if err != nil {
		t.metrics.ObserveCacheFailure()
		t.logger.Warn("session cache write failed", "error", err)
		return fmt.Errorf("%w: %v", apperrors.ErrCacheWrite, err)
	}
	return nil
}

func elapsedSince(start, now time.Time) int {
	d := int(now.Sub(start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
