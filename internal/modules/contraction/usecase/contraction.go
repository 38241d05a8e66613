package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storkwatch/internal/modules/contraction/domain"
	"storkwatch/internal/modules/contraction/dto"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	"storkwatch/internal/modules/contraction/service"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/platform/logging"
)

type Interactor struct {
	tracker          *service.Tracker
	reconciler       *service.Reconciler
	notes            contractionout.SessionNoteWriter
	userID           string
	defaultIntensity int
	logger           *slog.Logger
}

type Options struct {
	UserID           string
	DefaultIntensity int
	// Notes is optional; a nil writer skips session notes.
	Notes  contractionout.SessionNoteWriter
	Logger *slog.Logger
}

func NewInteractor(tracker *service.Tracker, reconciler *service.Reconciler, opts Options) contractionin.Usecase {
	intensity := opts.DefaultIntensity
	if intensity == 0 {
		intensity = domain.DefaultIntensity
	}
	return &Interactor{
		tracker:          tracker,
		reconciler:       reconciler,
		notes:            opts.Notes,
		userID:           opts.UserID,
		defaultIntensity: intensity,
		logger:           logging.OrDiscard(opts.Logger),
	}
}

func (i *Interactor) Restore(ctx context.Context) (dto.StatusOutput, error) {
	if err := i.tracker.Restore(ctx); err != nil {
		return dto.StatusOutput{}, err
	}
	return i.Status(), nil
}

func (i *Interactor) Start(ctx context.Context, input dto.StartInput) (dto.EventOutput, error) {
	intensity := input.Intensity
	if intensity == 0 {
		intensity = i.defaultIntensity
	}
	event, err := i.tracker.Start(ctx, intensity)
	if err != nil && !errors.Is(err, apperrors.ErrCacheWrite) {
		return dto.EventOutput{}, err
	}
	return toEventOutput(event), err
}

func (i *Interactor) Stop(ctx context.Context) (dto.EventOutput, error) {
	event, err := i.tracker.Stop(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrCacheWrite) {
		return dto.EventOutput{}, err
	}
	return toEventOutput(event), err
}

func (i *Interactor) Clear(ctx context.Context) (dto.ClearOutput, error) {
	dropped, err := i.tracker.Clear(ctx)
	return dto.ClearOutput{Dropped: dropped}, err
}

func (i *Interactor) Tick() int {
	return i.tracker.Tick()
}

func (i *Interactor) Status() dto.StatusOutput {
	session := i.tracker.Session()
	return dto.StatusOutput{
		State:      session.State().String(),
		Timing:     session.State() == domain.Timing,
		ElapsedSec: i.tracker.Elapsed(),
		Session:    toEventOutputs(session.Events()),
		Stats:      toStatsOutput(domain.ComputeStats(session.Events())),
	}
}

func (i *Interactor) Stats(input dto.StatsInput) dto.StatsOutput {
	events := i.tracker.Session().Events()
	if input.IncludeHistory {
		events = i.reconciler.View(events)
	}
	return toStatsOutput(domain.ComputeStats(events))
}

// Refresh fetches the remote history. On failure the returned view still holds
// the local session and the last known snapshot.
func (i *Interactor) Refresh(ctx context.Context) (dto.HistoryOutput, error) {
	err := i.reconciler.Fetch(ctx)
	return i.History(), err
}

func (i *Interactor) History() dto.HistoryOutput {
	out := dto.HistoryOutput{
		Events:          toEventOutputs(i.reconciler.View(i.tracker.Session().Events())),
		RemoteAvailable: i.reconciler.Available(),
	}
	if err := i.reconciler.LastError(); err != nil {
		out.RemoteError = err.Error()
	}
	return out
}

// Save commits the session, then refreshes the history and writes the session
// note. Neither follow-up can fail a save that was committed.
func (i *Interactor) Save(ctx context.Context) (dto.SaveOutput, error) {
	result, err := i.reconciler.Commit(ctx, i.tracker)
	if err != nil {
		return dto.SaveOutput{}, err
	}
	out := dto.SaveOutput{Saved: len(result.Events), SessionDate: result.SessionDate}
	if err := i.reconciler.Fetch(ctx); err != nil {
		i.logger.Warn("refresh after save", "error", err)
	}
	if i.notes != nil {
		path, err := i.notes.Write(ctx, domain.SessionNote{
			UserID:      i.userID,
			SessionDate: result.SessionDate,
			Events:      result.Events,
			Stats:       domain.ComputeStats(result.Events),
		})
		if err != nil {
			i.logger.Warn("write session note", "error", err)
		} else {
			out.NotePath = path
		}
	}
	return out, nil
}

func (i *Interactor) Delete(ctx context.Context, input dto.DeleteInput) error {
	return i.reconciler.Delete(ctx, input.EventID)
}

func (i *Interactor) Watch(ctx context.Context) error {
	return i.reconciler.Subscribe(ctx)
}

func (i *Interactor) RemoteChanged() <-chan struct{} {
	return i.reconciler.Changes()
}

func (i *Interactor) DrainRemote() int {
	return i.reconciler.Drain()
}

func (i *Interactor) Ticks() <-chan time.Time {
	return i.tracker.Ticks()
}

func (i *Interactor) Close() {
	i.reconciler.Close()
	i.tracker.Close()
}

func toEventOutput(e domain.Event) dto.EventOutput {
	c := e.Clone()
	return dto.EventOutput{
		ID:          c.ID,
		ClientID:    c.ClientID,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		DurationSec: c.Duration,
		IntervalSec: c.Interval,
		Intensity:   c.Intensity,
		Persisted:   c.Persisted(),
		InProgress:  c.InProgress(),
	}
}

func toEventOutputs(events []domain.Event) []dto.EventOutput {
	out := make([]dto.EventOutput, 0, len(events))
	for _, e := range events {
		out = append(out, toEventOutput(e))
	}
	return out
}

func toStatsOutput(s domain.Stats) dto.StatsOutput {
	return dto.StatsOutput{
		AvgDurationSec:    s.AvgDuration,
		AvgIntervalSec:    s.AvgInterval,
		IntervalStdDevSec: s.IntervalStdDev,
		IsRegular:         s.IsRegular,
		Count:             s.Count,
	}
}
