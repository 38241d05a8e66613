package out

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
)

func openSQLite(t *testing.T, path string) *SQLiteHistoryStore {
	t.Helper()
	store, err := NewSQLiteHistoryStore(path, &stepClock{now: base}, &seqIDs{prefix: "row"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteHistoryStoreContract(t *testing.T) {
	t.Parallel()
	runHistoryStoreContract(t, func(t *testing.T) contractionout.HistoryStore {
		return openSQLite(t, filepath.Join(t.TempDir(), ".storkwatch", "storkwatch.db"))
	})
}

func TestSQLiteCommitBatchIsAllOrNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openSQLite(t, filepath.Join(t.TempDir(), "history.db"))

	bad := finalized("b2", 100, 30, nil)
	bad.Duration = domain.IntPtr(-5)
	err := store.CommitBatch(ctx, "u1", base, []domain.Event{finalized("b1", 0, 30, nil), bad})
	require.Error(t, err)

	records, err := store.FetchRecent(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, records, "a failed batch must not leave partial rows")
}

func TestSQLiteSubscriptionSeesOtherConnections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	watcher := openSQLite(t, path)
	writer := openSQLite(t, path)

	rec := newSnapshotRecorder()
	unsub, err := watcher.Subscribe(ctx, "u1", 10, rec.onChange)
	require.NoError(t, err)
	defer unsub()
	rec.waitFor(t, func(s []domain.StoredEvent) bool { return len(s) == 0 })

	require.NoError(t, writer.CommitBatch(ctx, "u1", base, []domain.Event{finalized("x1", 0, 30, nil)}))
	snap := rec.waitFor(t, func(s []domain.StoredEvent) bool { return len(s) == 1 })
	assert.Equal(t, "x1", snap[0].ClientID)
}

func TestSQLiteReopenKeepsHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := NewSQLiteHistoryStore(path, &stepClock{now: base}, &seqIDs{prefix: "row"}, nil)
	require.NoError(t, err)
	require.NoError(t, first.CommitBatch(ctx, "u1", base, []domain.Event{finalized("k1", 0, 30, nil)}))
	require.NoError(t, first.Close())

	second := openSQLite(t, path)
	records, err := second.FetchRecent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "k1", records[0].ClientID)
}
