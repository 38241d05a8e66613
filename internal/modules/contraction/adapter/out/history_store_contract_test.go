package out

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	apperrors "storkwatch/internal/platform/errors"
)

var (
	base  = time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	runID = time.Now().UnixNano()
)

// userFor returns a user id unique to the running test, so stores shared
// between subtests never see each other's records.
func userFor(t *testing.T, name string) string {
	t.Helper()
	safe := strings.NewReplacer("/", "-", " ", "-").Replace(t.Name())
	return fmt.Sprintf("%s-%s-%d", safe, name, runID)
}

// stepClock advances one second per reading so batches get distinct creation times.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type seqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *seqIDs) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%03d", s.prefix, s.n)
}

func finalized(clientID string, startSec, duration int, interval *int) domain.Event {
	start := base.Add(time.Duration(startSec) * time.Second)
	return domain.Event{
		ClientID:  clientID,
		StartTime: start,
		EndTime:   domain.TimePtr(start.Add(time.Duration(duration) * time.Second)),
		Duration:  domain.IntPtr(duration),
		Interval:  interval,
		Intensity: 5,
	}
}

// snapshotRecorder keeps only the latest delivery; onChange never blocks the store.
type snapshotRecorder struct {
	mu     sync.Mutex
	latest []domain.StoredEvent
	calls  int
}

func newSnapshotRecorder() *snapshotRecorder {
	return &snapshotRecorder{}
}

func (r *snapshotRecorder) onChange(records []domain.StoredEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = records
	r.calls++
}

// waitFor returns the latest snapshot once it satisfies ok.
func (r *snapshotRecorder) waitFor(t *testing.T, ok func([]domain.StoredEvent) bool) []domain.StoredEvent {
	t.Helper()
	var got []domain.StoredEvent
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.calls == 0 || !ok(r.latest) {
			return false
		}
		got = r.latest
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func runHistoryStoreContract(t *testing.T, open func(t *testing.T) contractionout.HistoryStore) {
	t.Run("commit and fetch newest batch first", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		u1 := userFor(t, "u1")
		first := []domain.Event{
			finalized("c1", 0, 40, nil),
			finalized("c2", 300, 45, domain.IntPtr(300)),
		}
		second := []domain.Event{finalized("c3", 3600, 50, nil)}
		require.NoError(t, store.CommitBatch(ctx, u1, base.Add(time.Hour), first))
		require.NoError(t, store.CommitBatch(ctx, u1, base.Add(2*time.Hour), second))

		records, err := store.FetchRecent(ctx, u1, 10)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "c3", records[0].ClientID)
		for _, r := range records {
			assert.NotEmpty(t, r.ID)
			assert.Equal(t, u1, r.UserID)
		}

		byClient := map[string]domain.StoredEvent{}
		for _, r := range records {
			byClient[r.ClientID] = r
		}
		c2 := byClient["c2"]
		assert.True(t, c2.SessionDate.Equal(base.Add(time.Hour)))
		assert.True(t, c2.Start.Equal(base.Add(300*time.Second)))
		require.NotNil(t, c2.End)
		assert.True(t, c2.End.Equal(base.Add(345*time.Second)))
		assert.Equal(t, 45, *c2.Duration)
		assert.Equal(t, 300, *c2.Interval)
		assert.Nil(t, byClient["c1"].Interval)

		limited, err := store.FetchRecent(ctx, u1, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "c3", limited[0].ClientID)
	})

	t.Run("users are isolated", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		u1 := userFor(t, "u1")
		require.NoError(t, store.CommitBatch(ctx, u1, base, []domain.Event{finalized("a", 0, 30, nil)}))
		records, err := store.FetchRecent(ctx, userFor(t, "u2"), 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("retried batch does not duplicate", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		u1 := userFor(t, "u1")
		batch := []domain.Event{finalized("r1", 0, 30, nil), finalized("r2", 200, 30, domain.IntPtr(200))}
		require.NoError(t, store.CommitBatch(ctx, u1, base, batch))
		require.NoError(t, store.CommitBatch(ctx, u1, base, batch))
		records, err := store.FetchRecent(ctx, u1, 10)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		u1 := userFor(t, "u1")
		require.NoError(t, store.CommitBatch(ctx, u1, base, []domain.Event{finalized("d1", 0, 30, nil), finalized("d2", 100, 30, domain.IntPtr(100))}))
		records, err := store.FetchRecent(ctx, u1, 10)
		require.NoError(t, err)
		require.Len(t, records, 2)

		require.NoError(t, store.DeleteOne(ctx, u1, records[0].ID))
		after, err := store.FetchRecent(ctx, u1, 10)
		require.NoError(t, err)
		require.Len(t, after, 1)
		assert.Equal(t, records[1].ID, after[0].ID)

		err = store.DeleteOne(ctx, u1, records[0].ID)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("subscribe delivers current state then changes", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		u1 := userFor(t, "u1")
		require.NoError(t, store.CommitBatch(ctx, u1, base, []domain.Event{finalized("s1", 0, 30, nil)}))

		rec := newSnapshotRecorder()
		unsub, err := store.Subscribe(ctx, u1, 10, rec.onChange)
		require.NoError(t, err)
		defer unsub()

		rec.waitFor(t, func(s []domain.StoredEvent) bool { return len(s) == 1 })
		require.NoError(t, store.CommitBatch(ctx, u1, base.Add(time.Hour), []domain.Event{finalized("s2", 3600, 30, nil)}))
		snap := rec.waitFor(t, func(s []domain.StoredEvent) bool { return len(s) == 2 })
		assert.Equal(t, "s2", snap[0].ClientID)

		unsub()
		unsub()
	})
}
