package out

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/platform/clock"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/platform/id"
	"storkwatch/internal/platform/logging"
	"storkwatch/internal/platform/tx"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at sorts as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteHistoryStore keeps contraction history in a local sqlite file. Change
// notifications reach subscribers in this process directly and other processes
// through a file watch on the database directory.
type SQLiteHistoryStore struct {
	db     *sql.DB
	path   string
	tx     tx.Manager
	clock  clock.Clock
	ids    id.Generator
	logger *slog.Logger

	mu   sync.Mutex
	subs map[*sqliteSubscriber]struct{}
}

type sqliteSubscriber struct {
	userID   string
	limit    int
	onChange func([]domain.StoredEvent)
	kick     chan struct{}
}

func NewSQLiteHistoryStore(dbPath string, clk clock.Clock, ids id.Generator, logger *slog.Logger) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteHistoryStore{
		db:     db,
		path:   dbPath,
		tx:     tx.SQLManager{DB: db},
		clock:  clk,
		ids:    ids,
		logger: logging.OrDiscard(logger).With("component", "sqlite_history"),
		subs:   map[*sqliteSubscriber]struct{}{},
	}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var _ contractionout.HistoryStore = (*SQLiteHistoryStore)(nil)

func (s *SQLiteHistoryStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS contraction_events (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  client_id TEXT,
  session_date TEXT NOT NULL,
  contraction_start TEXT NOT NULL,
  contraction_end TEXT,
  duration INTEGER CHECK (duration IS NULL OR duration >= 0),
  interval_between INTEGER CHECK (interval_between IS NULL OR interval_between >= 0),
  intensity INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  UNIQUE (user_id, client_id)
);
CREATE INDEX IF NOT EXISTS contraction_events_user_created
  ON contraction_events (user_id, created_at DESC);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create contraction_events table: %w", err)
	}
	return nil
}

func (s *SQLiteHistoryStore) FetchRecent(ctx context.Context, userID string, limit int) ([]domain.StoredEvent, error) {
	const query = `
SELECT id, user_id, client_id, session_date, contraction_start, contraction_end,
       duration, interval_between, intensity, created_at
FROM contraction_events
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query contraction events: %w", err)
	}
	defer rows.Close()

	out := []domain.StoredEvent{}
	for rows.Next() {
		var (
			rec                         domain.StoredEvent
			clientID, end               sql.NullString
			sessionDate, start, created string
			duration, interval          sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &clientID, &sessionDate, &start, &end, &duration, &interval, &rec.Intensity, &created); err != nil {
			return nil, fmt.Errorf("scan contraction event: %w", err)
		}
		rec.ClientID = clientID.String
		if rec.SessionDate, err = parseSQLiteTime(sessionDate); err != nil {
			return nil, err
		}
		if rec.Start, err = parseSQLiteTime(start); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = parseSQLiteTime(created); err != nil {
			return nil, err
		}
		if end.Valid {
			t, err := parseSQLiteTime(end.String)
			if err != nil {
				return nil, err
			}
			rec.End = &t
		}
		if duration.Valid {
			rec.Duration = domain.IntPtr(int(duration.Int64))
		}
		if interval.Valid {
			rec.Interval = domain.IntPtr(int(interval.Int64))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contraction events: %w", err)
	}
	return out, nil
}

// CommitBatch inserts every event in one transaction. Events whose client id is
// already stored for the user are skipped, so a retried batch never duplicates rows.
func (s *SQLiteHistoryStore) CommitBatch(ctx context.Context, userID string, sessionDate time.Time, events []domain.Event) error {
	const stmt = `
INSERT INTO contraction_events (id, user_id, client_id, session_date, contraction_start, contraction_end,
  duration, interval_between, intensity, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, client_id) DO NOTHING;
`
	created := s.clock.Now().UTC().Format(sqliteTimeLayout)
	err := s.tx.Within(ctx, func(tx *sql.Tx) error {
		for _, e := range events {
			_, err := tx.ExecContext(ctx, stmt,
				s.ids.New(),
				userID,
				nullString(e.ClientID),
				sessionDate.UTC().Format(sqliteTimeLayout),
				e.StartTime.UTC().Format(sqliteTimeLayout),
				nullTime(e.EndTime),
				nullInt(e.Duration),
				nullInt(e.Interval),
				e.Intensity,
				created,
			)
			if err != nil {
				return fmt.Errorf("insert contraction event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(userID)
	return nil
}

func (s *SQLiteHistoryStore) DeleteOne(ctx context.Context, userID, eventID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contraction_events WHERE id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete contraction event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contraction event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: contraction event %s", apperrors.ErrNotFound, eventID)
	}
	s.notify(userID)
	return nil
}

// Subscribe delivers the current records right away and again after every
// change to the database, whichever process made it.
func (s *SQLiteHistoryStore) Subscribe(ctx context.Context, userID string, limit int, onChange func([]domain.StoredEvent)) (contractionout.Unsubscribe, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create db watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch db dir: %w", err)
	}
	sub := &sqliteSubscriber{userID: userID, limit: limit, onChange: onChange, kick: make(chan struct{}, 1)}
	sub.kick <- struct{}{}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.watch(watchCtx, watcher, sub, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			_ = watcher.Close()
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
		})
	}, nil
}

func (s *SQLiteHistoryStore) watch(ctx context.Context, watcher *fsnotify.Watcher, sub *sqliteSubscriber, done chan<- struct{}) {
	defer close(done)
	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.kick:
			s.deliver(ctx, sub)
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Matches the db file and its -wal and -journal companions.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				s.deliver(ctx, sub)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("db watcher error", "error", err)
		}
	}
}

func (s *SQLiteHistoryStore) deliver(ctx context.Context, sub *sqliteSubscriber) {
	records, err := s.FetchRecent(ctx, sub.userID, sub.limit)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("subscription fetch failed", "user_id", sub.userID, "error", err)
		}
		return
	}
	sub.onChange(records)
}

func (s *SQLiteHistoryStore) notify(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}

func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}

func parseSQLiteTime(v string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", v, err)
	}
	return t, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.UTC().Format(sqliteTimeLayout), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
