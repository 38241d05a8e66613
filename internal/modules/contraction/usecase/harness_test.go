package usecase_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	contractionoutadapter "storkwatch/internal/modules/contraction/adapter/out"
	"storkwatch/internal/modules/contraction/domain"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/modules/contraction/service"
	"storkwatch/internal/modules/contraction/usecase"
	"storkwatch/internal/platform/clock"
	"storkwatch/internal/platform/id"
	"storkwatch/internal/platform/metrics"
)

var t0 = time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(sec int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t0.Add(time.Duration(sec) * time.Second)
}

func (f *fakeClock) NewTicker(time.Duration) clock.Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	tk := &fakeTicker{ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, tk)
	return tk
}

func (f *fakeClock) lastTicker() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

// flakyStore fails on demand in front of a working store.
type flakyStore struct {
	*contractionoutadapter.MemoryHistoryStore
	mu        sync.Mutex
	fetchErr  error
	commitErr error
}

func (s *flakyStore) fail(fetch, commit error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr, s.commitErr = fetch, commit
}

func (s *flakyStore) FetchRecent(ctx context.Context, userID string, limit int) ([]domain.StoredEvent, error) {
	s.mu.Lock()
	err := s.fetchErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryHistoryStore.FetchRecent(ctx, userID, limit)
}

func (s *flakyStore) CommitBatch(ctx context.Context, userID string, sessionDate time.Time, events []domain.Event) error {
	s.mu.Lock()
	err := s.commitErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryHistoryStore.CommitBatch(ctx, userID, sessionDate, events)
}

type harness struct {
	clk      *fakeClock
	store    *flakyStore
	cache    contractionout.SessionCache
	notesDir string
	metrics  *metrics.Contractions
	uc       contractionin.Usecase
}

const userID = "local"

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := &fakeClock{now: t0}
	dir := t.TempDir()
	h := &harness{
		clk:      clk,
		store:    &flakyStore{MemoryHistoryStore: contractionoutadapter.NewMemoryHistoryStore(clk, id.UUID{})},
		cache:    contractionoutadapter.NewFileSessionCache(filepath.Join(dir, "cache")),
		notesDir: filepath.Join(dir, "contractions"),
		metrics:  metrics.NewContractions(prometheus.NewRegistry()),
	}
	h.uc = h.open()
	t.Cleanup(h.uc.Close)
	return h
}

// open builds a fresh usecase over the harness stores, like a restarted process.
func (h *harness) open() contractionin.Usecase {
	tracker := service.NewTracker(h.clk, id.ULID{}, h.cache, service.NewClockDriver(h.clk), userID, nil, h.metrics)
	reconciler := service.NewReconciler(h.store, h.clk, userID, 50, domain.DedupeByStartTime, nil, h.metrics)
	return usecase.NewInteractor(tracker, reconciler, usecase.Options{
		UserID:           userID,
		DefaultIntensity: 6,
		Notes:            contractionoutadapter.NewVaultNoteWriter(h.notesDir),
	})
}
