package out

import (
	"context"
	"time"

	"storkwatch/internal/modules/contraction/domain"
)

// Unsubscribe stops a change subscription. Calling it more than once is safe.
type Unsubscribe func()

// HistoryStore is the durable, per-user contraction history.
type HistoryStore interface {
	// FetchRecent returns up to limit records, newest creation first.
	FetchRecent(ctx context.Context, userID string, limit int) ([]domain.StoredEvent, error)
	// CommitBatch persists every event under one session date, all or nothing.
	CommitBatch(ctx context.Context, userID string, sessionDate time.Time, events []domain.Event) error
	DeleteOne(ctx context.Context, userID, eventID string) error
	// Subscribe calls onChange with the latest records after every change, starting
	// with the current state. onChange may run on any goroutine.
	Subscribe(ctx context.Context, userID string, limit int, onChange func([]domain.StoredEvent)) (Unsubscribe, error)
}

// SessionCache keeps the unsaved session on the device.
type SessionCache interface {
	// Load reports ok=false when no entry exists.
	Load(ctx context.Context, key domain.CacheKey) (events []domain.Event, ok bool, err error)
	Save(ctx context.Context, key domain.CacheKey, events []domain.Event) error
	Clear(ctx context.Context, key domain.CacheKey) error
}

// SessionNoteWriter renders a saved session for the user's vault and returns its path.
type SessionNoteWriter interface {
	Write(ctx context.Context, note domain.SessionNote) (string, error)
}
