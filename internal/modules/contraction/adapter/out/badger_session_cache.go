package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"storkwatch/internal/modules/contraction/domain"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	apperrors "storkwatch/internal/platform/errors"
)

// BadgerSessionCache keeps session entries in an embedded badger database.
// The database is owned by the caller.
type BadgerSessionCache struct {
	db *badger.DB
}

func NewBadgerSessionCache(db *badger.DB) contractionout.SessionCache {
	return &BadgerSessionCache{db: db}
}

func badgerKey(key domain.CacheKey) ([]byte, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: cache key %q", apperrors.ErrInvalidInput, key.String())
	}
	return []byte(key.String()), nil
}

func (c *BadgerSessionCache) Load(_ context.Context, key domain.CacheKey) ([]domain.Event, bool, error) {
	k, err := badgerKey(key)
	if err != nil {
		return nil, false, err
	}
	var events []domain.Event
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &events)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load cached session: %w", err)
	}
	if len(events) == 0 {
		return nil, false, nil
	}
	return events, true, nil
}

func (c *BadgerSessionCache) Save(_ context.Context, key domain.CacheKey, events []domain.Event) error {
	k, err := badgerKey(key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal cached session: %w", err)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, payload)
	}); err != nil {
		return fmt.Errorf("save cached session: %w", err)
	}
	return nil
}

func (c *BadgerSessionCache) Clear(_ context.Context, key domain.CacheKey) error {
	k, err := badgerKey(key)
	if err != nil {
		return err
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	}); err != nil {
		return fmt.Errorf("clear cached session: %w", err)
	}
	return nil
}
