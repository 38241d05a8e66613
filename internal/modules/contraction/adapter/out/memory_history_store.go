package out

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/platform/clock"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/platform/id"
)

// MemoryHistoryStore keeps history for the lifetime of the process.
type MemoryHistoryStore struct {
	clock clock.Clock
	ids   id.Generator

	mu      sync.RWMutex
	records map[string][]domain.StoredEvent // per user, oldest first
	subs    map[int]memorySubscriber
	nextSub int
}

type memorySubscriber struct {
	userID   string
	limit    int
	onChange func([]domain.StoredEvent)
}

func NewMemoryHistoryStore(clk clock.Clock, ids id.Generator) *MemoryHistoryStore {
	return &MemoryHistoryStore{
		clock:   clk,
		ids:     ids,
		records: map[string][]domain.StoredEvent{},
		subs:    map[int]memorySubscriber{},
	}
}

var _ contractionout.HistoryStore = (*MemoryHistoryStore)(nil)

func (s *MemoryHistoryStore) FetchRecent(_ context.Context, userID string, limit int) ([]domain.StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(userID, limit), nil
}

func (s *MemoryHistoryStore) CommitBatch(ctx context.Context, userID string, sessionDate time.Time, events []domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	created := s.clock.Now().UTC()
	s.mu.Lock()
	existing := s.records[userID]
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		if r.ClientID != "" {
			seen[r.ClientID] = struct{}{}
		}
	}
	for _, e := range events {
		if _, dup := seen[e.ClientID]; dup && e.ClientID != "" {
			continue
		}
		c := e.Clone()
		existing = append(existing, domain.StoredEvent{
			ID:          s.ids.New(),
			UserID:      userID,
			SessionDate: sessionDate.UTC(),
			Start:       c.StartTime,
			End:         c.EndTime,
			Duration:    c.Duration,
			Interval:    c.Interval,
			Intensity:   c.Intensity,
			ClientID:    c.ClientID,
			CreatedAt:   created,
		})
	}
	s.records[userID] = existing
	s.mu.Unlock()
	s.notify(userID)
	return nil
}

func (s *MemoryHistoryStore) DeleteOne(_ context.Context, userID, eventID string) error {
	s.mu.Lock()
	existing := s.records[userID]
	idx := -1
	for i, r := range existing {
		if r.ID == eventID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: contraction event %s", apperrors.ErrNotFound, eventID)
	}
	s.records[userID] = append(existing[:idx:idx], existing[idx+1:]...)
	s.mu.Unlock()
	s.notify(userID)
	return nil
}

// Subscribe calls onChange synchronously, first with the current records and
// then from whichever goroutine commits or deletes.
func (s *MemoryHistoryStore) Subscribe(_ context.Context, userID string, limit int, onChange func([]domain.StoredEvent)) (contractionout.Unsubscribe, error) {
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = memorySubscriber{userID: userID, limit: limit, onChange: onChange}
	snapshot := s.recentLocked(userID, limit)
	s.mu.Unlock()
	onChange(snapshot)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}, nil
}

func (s *MemoryHistoryStore) notify(userID string) {
	type delivery struct {
		fn       func([]domain.StoredEvent)
		snapshot []domain.StoredEvent
	}
	s.mu.RLock()
	var pending []delivery
	for _, sub := range s.subs {
		if sub.userID == userID {
			pending = append(pending, delivery{fn: sub.onChange, snapshot: s.recentLocked(userID, sub.limit)})
		}
	}
	s.mu.RUnlock()
	for _, d := range pending {
		d.fn(d.snapshot)
	}
}

func (s *MemoryHistoryStore) recentLocked(userID string, limit int) []domain.StoredEvent {
	existing := s.records[userID]
	out := make([]domain.StoredEvent, 0, len(existing))
	for i := len(existing) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, existing[i])
	}
	return out
}
