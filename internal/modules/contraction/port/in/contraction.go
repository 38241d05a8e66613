package in

import (
	"context"
	"time"

	"storkwatch/internal/modules/contraction/dto"
)

// Usecase is the contraction tracker surface. Implementations are not safe for
// concurrent use; drive them from one goroutine.
type Usecase interface {
	Restore(ctx context.Context) (dto.StatusOutput, error)
	Start(ctx context.Context, input dto.StartInput) (dto.EventOutput, error)
	Stop(ctx context.Context) (dto.EventOutput, error)
	Clear(ctx context.Context) (dto.ClearOutput, error)
	Tick() int
	Status() dto.StatusOutput
	Stats(input dto.StatsInput) dto.StatsOutput

	Refresh(ctx context.Context) (dto.HistoryOutput, error)
	History() dto.HistoryOutput
	Save(ctx context.Context) (dto.SaveOutput, error)
	Delete(ctx context.Context, input dto.DeleteInput) error

	// Watch subscribes to remote changes. Queued snapshots are applied by DrainRemote.
	Watch(ctx context.Context) error
	RemoteChanged() <-chan struct{}
	DrainRemote() int
	Ticks() <-chan time.Time
	Close()
}

// Executor runs fn with exclusive access to a Usecase and waits for it.
type Executor interface {
	Do(ctx context.Context, fn func(Usecase)) error
}
