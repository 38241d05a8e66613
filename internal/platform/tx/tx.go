package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Manager wraps transactional boundaries for multi-statement operations.
type Manager interface {
	Within(ctx context.Context, fn func(*sql.Tx) error) error
}

// SQLManager runs each Within call in one database transaction.
type SQLManager struct {
	DB *sql.DB
}

// Within commits when fn returns nil and rolls back otherwise.
func (m SQLManager) Within(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
