package usecase

import (
	"context"
	"errors"
	"log/slog"

	"storkwatch/internal/modules/contraction/dto"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	"storkwatch/internal/platform/logging"
)

// ErrRunnerStopped is returned by Do once Run has returned.
var ErrRunnerStopped = errors.New("runner stopped")

// Runner owns a Usecase on a single goroutine. Commands, clock ticks and remote
// snapshots are applied one at a time in the order the loop receives them.
type Runner struct {
	uc       contractionin.Usecase
	commands chan func(contractionin.Usecase)
	done     chan struct{}
	logger   *slog.Logger

	onTick   func(elapsed int)
	onRemote func(dto.HistoryOutput)
}

type RunnerOption func(*Runner)

// OnTick is called on the loop goroutine after every counted tick.
func OnTick(fn func(elapsed int)) RunnerOption {
	return func(r *Runner) { r.onTick = fn }
}

// OnRemote is called on the loop goroutine after queued remote snapshots are applied.
func OnRemote(fn func(dto.HistoryOutput)) RunnerOption {
	return func(r *Runner) { r.onRemote = fn }
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

func NewRunner(uc contractionin.Usecase, opts ...RunnerOption) *Runner {
	r := &Runner{
		uc:       uc,
		commands: make(chan func(contractionin.Usecase)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger).With("component", "runner")
	return r
}

// Run processes events until ctx is cancelled. It must be called once.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	r.logger.Debug("runner started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("runner stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-r.uc.Ticks():
			elapsed := r.uc.Tick()
			if elapsed > 0 && r.onTick != nil {
				r.onTick(elapsed)
			}
		case <-r.uc.RemoteChanged():
			if n := r.uc.DrainRemote(); n > 0 {
				r.logger.Debug("remote snapshots applied", "count", n)
				if r.onRemote != nil {
					r.onRemote(r.uc.History())
				}
			}
		case fn := <-r.commands:
			fn(r.uc)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(contractionin.Usecase)) error {
	finished := make(chan struct{})
	wrapped := func(uc contractionin.Usecase) {
		defer close(finished)
		fn(uc)
	}
	select {
	case r.commands <- wrapped:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}
