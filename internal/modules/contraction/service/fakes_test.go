package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/platform/clock"
)

var t0 = time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

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
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type seqID struct{ n int }

func (s *seqID) New() string {
	s.n++
	return "client-" + string(rune('a'+s.n-1))
}

type memCache struct {
	entries map[string][]domain.Event
	saveErr error
	saves   int
	clears  int
}

func newMemCache() *memCache { return &memCache{entries: map[string][]domain.Event{}} }

func (m *memCache) Load(_ context.Context, key domain.CacheKey) ([]domain.Event, bool, error) {
	events, ok := m.entries[key.String()]
	return events, ok, nil
}

func (m *memCache) Save(_ context.Context, key domain.CacheKey, events []domain.Event) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.entries[key.String()] = events
	return nil
}

func (m *memCache) Clear(_ context.Context, key domain.CacheKey) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.clears++
	delete(m.entries, key.String())
	return nil
}

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu         sync.Mutex
	records    []domain.StoredEvent
	fetchErr   error
	commitErr  error
	deleteErr  error
	commits    int
	onChange   func([]domain.StoredEvent)
	unsubCalls int
}

func (f *fakeStore) FetchRecent(_ context.Context, _ string, limit int) ([]domain.StoredEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := append([]domain.StoredEvent(nil), f.records...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CommitBatch(_ context.Context, userID string, sessionDate time.Time, events []domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits++
	for i, e := range events {
		f.records = append([]domain.StoredEvent{{
			ID:          "r-" + e.ClientID,
			UserID:      userID,
			SessionDate: sessionDate,
			Start:       e.StartTime,
			End:         e.EndTime,
			Duration:    e.Duration,
			Interval:    e.Interval,
			Intensity:   e.Intensity,
			ClientID:    e.ClientID,
			CreatedAt:   sessionDate.Add(time.Duration(i)),
		}}, f.records...)
	}
	return nil
}

func (f *fakeStore) DeleteOne(_ context.Context, _ string, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.records[:0]
	for _, r := range f.records {
		if r.ID != eventID {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeStore) Subscribe(_ context.Context, _ string, _ int, onChange func([]domain.StoredEvent)) (contractionout.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = onChange
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubCalls++
	}, nil
}

func (f *fakeStore) push(snapshot []domain.StoredEvent) {
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	cb(snapshot)
}
