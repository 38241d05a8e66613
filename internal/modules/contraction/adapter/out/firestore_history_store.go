package out

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/platform/logging"
)

// FirestoreHistoryStore keeps each user's history under users/{uid}/contractionTracking.
type FirestoreHistoryStore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewFirestoreHistoryStore(ctx context.Context, projectID string, logger *slog.Logger) (*FirestoreHistoryStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: firestore project is required", apperrors.ErrInvalidInput)
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return NewFirestoreHistoryStoreWithClient(client, logger), nil
}

func NewFirestoreHistoryStoreWithClient(client *firestore.Client, logger *slog.Logger) *FirestoreHistoryStore {
	return &FirestoreHistoryStore{
		client: client,
		logger: logging.OrDiscard(logger).With("component", "firestore_history"),
	}
}

var _ contractionout.HistoryStore = (*FirestoreHistoryStore)(nil)

type contractionDoc struct {
	UserID           string     `firestore:"userId"`
	ClientID         string     `firestore:"clientId,omitempty"`
	SessionDate      time.Time  `firestore:"sessionDate"`
	ContractionStart time.Time  `firestore:"contractionStart"`
	ContractionEnd   *time.Time `firestore:"contractionEnd"`
	Duration         *int64     `firestore:"duration"`
	IntervalBetween  *int64     `firestore:"intervalBetween"`
	Intensity        int64      `firestore:"intensity"`
	CreatedAt        time.Time  `firestore:"createdAt,serverTimestamp"`
}

func (s *FirestoreHistoryStore) events(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("contractionTracking")
}

func (s *FirestoreHistoryStore) recentQuery(userID string, limit int) firestore.Query {
	q := s.events(userID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

func (s *FirestoreHistoryStore) FetchRecent(ctx context.Context, userID string, limit int) ([]domain.StoredEvent, error) {
	iter := s.recentQuery(userID, limit).Documents(ctx)
	defer iter.Stop()

	out := []domain.StoredEvent{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore fetch history: %w", err)
		}
		rec, err := decodeContraction(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// CommitBatch writes all events in one transaction. Documents are keyed by
// client id, so a retried batch overwrites rather than duplicates.
func (s *FirestoreHistoryStore) CommitBatch(ctx context.Context, userID string, sessionDate time.Time, events []domain.Event) error {
	col := s.events(userID)
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		for _, e := range events {
			ref := col.NewDoc()
			if e.ClientID != "" {
				ref = col.Doc(e.ClientID)
			}
			doc := contractionDoc{
				UserID:           userID,
				ClientID:         e.ClientID,
				SessionDate:      sessionDate.UTC(),
				ContractionStart: e.StartTime.UTC(),
				ContractionEnd:   e.EndTime,
				Duration:         int64Ptr(e.Duration),
				IntervalBetween:  int64Ptr(e.Interval),
				Intensity:        int64(e.Intensity),
			}
			if err := tx.Set(ref, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("firestore commit batch: %w", err)
	}
	return nil
}

func (s *FirestoreHistoryStore) DeleteOne(ctx context.Context, userID, eventID string) error {
	_, err := s.events(userID).Doc(eventID).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: contraction event %s", apperrors.ErrNotFound, eventID)
		}
		return fmt.Errorf("firestore delete event: %w", err)
	}
	return nil
}

// Subscribe listens to the recent-history query. The first snapshot carries the
// current records.
func (s *FirestoreHistoryStore) Subscribe(ctx context.Context, userID string, limit int, onChange func([]domain.StoredEvent)) (contractionout.Unsubscribe, error) {
	listenCtx, cancel := context.WithCancel(ctx)
	iter := s.recentQuery(userID, limit).Snapshots(listenCtx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			snap, err := iter.Next()
			if err != nil {
				if listenCtx.Err() == nil && status.Code(err) != codes.Canceled {
					s.logger.Warn("history listener stopped", "user_id", userID, "error", err)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				s.logger.Warn("read history snapshot", "user_id", userID, "error", err)
				continue
			}
			records := make([]domain.StoredEvent, 0, len(docs))
			for _, d := range docs {
				rec, err := decodeContraction(d)
				if err != nil {
					s.logger.Warn("skip undecodable event", "event_id", d.Ref.ID, "error", err)
					continue
				}
				records = append(records, rec)
			}
			onChange(records)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			iter.Stop()
			<-done
		})
	}, nil
}

func (s *FirestoreHistoryStore) Close() error {
	return s.client.Close()
}

func decodeContraction(snap *firestore.DocumentSnapshot) (domain.StoredEvent, error) {
	var doc contractionDoc
	if err := snap.DataTo(&doc); err != nil {
		return domain.StoredEvent{}, fmt.Errorf("decode contraction %s: %w", snap.Ref.ID, err)
	}
	return domain.StoredEvent{
		ID:          snap.Ref.ID,
		UserID:      doc.UserID,
		SessionDate: doc.SessionDate,
		Start:       doc.ContractionStart,
		End:         doc.ContractionEnd,
		Duration:    intPtr(doc.Duration),
		Interval:    intPtr(doc.IntervalBetween),
		Intensity:   int(doc.Intensity),
		ClientID:    doc.ClientID,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func int64Ptr(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func intPtr(v *int64) *int {
	if v == nil {
		return nil
	}
	return domain.IntPtr(int(*v))
}
