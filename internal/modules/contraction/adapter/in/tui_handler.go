package in

import (
	"context"
	"errors"
	"fmt"

	contractiondto "storkwatch/internal/modules/contraction/dto"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	apperrors "storkwatch/internal/platform/errors"
)

// TUIHandler runs interactive actions through an Executor so they never race
// with clock ticks or remote snapshots. Every action returns the screen state
// observed right after it, even when the action itself failed. When the
// executor is gone the error wraps apperrors.ErrUnavailable and the screen is
// empty.
type TUIHandler struct {
	exec contractionin.Executor
}

func NewTUIHandler(exec contractionin.Executor) TUIHandler {
	return TUIHandler{exec: exec}
}

// Open restores the cached session, loads the history and subscribes to
// remote changes. Store failures are reported but leave the screen usable.
func (h TUIHandler) Open(ctx context.Context) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(uc contractionin.Usecase) error {
		if _, err := uc.Restore(ctx); err != nil {
			return err
		}
		_, refreshErr := uc.Refresh(ctx)
		return errors.Join(refreshErr, uc.Watch(ctx))
	})
}

func (h TUIHandler) Snapshot(ctx context.Context) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(contractionin.Usecase) error { return nil })
}

func (h TUIHandler) Start(ctx context.Context, intensity int) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(uc contractionin.Usecase) error {
		_, err := uc.Start(ctx, contractiondto.StartInput{Intensity: intensity})
		return err
	})
}

func (h TUIHandler) Stop(ctx context.Context) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(uc contractionin.Usecase) error {
		_, err := uc.Stop(ctx)
		return err
	})
}

func (h TUIHandler) Clear(ctx context.Context) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(uc contractionin.Usecase) error {
		_, err := uc.Clear(ctx)
		return err
	})
}

func (h TUIHandler) Save(ctx context.Context) (contractiondto.SaveOutput, contractiondto.ScreenOutput, error) {
	var saved contractiondto.SaveOutput
	screen, err := h.run(ctx, func(uc contractionin.Usecase) error {
		var err error
		saved, err = uc.Save(ctx)
		return err
	})
	return saved, screen, err
}

func (h TUIHandler) Delete(ctx context.Context, eventID string) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(uc contractionin.Usecase) error {
		return uc.Delete(ctx, contractiondto.DeleteInput{EventID: eventID})
	})
}

func (h TUIHandler) Refresh(ctx context.Context) (contractiondto.ScreenOutput, error) {
	return h.run(ctx, func(uc contractionin.Usecase) error {
		_, err := uc.Refresh(ctx)
		return err
	})
}

func (h TUIHandler) run(ctx context.Context, action func(contractionin.Usecase) error) (contractiondto.ScreenOutput, error) {
	var (
		screen    contractiondto.ScreenOutput
		actionErr error
	)
	err := h.exec.Do(ctx, func(uc contractionin.Usecase) {
		actionErr = action(uc)
		screen = contractiondto.ScreenOutput{
			Status:       uc.Status(),
			History:      uc.History(),
			HistoryStats: uc.Stats(contractiondto.StatsInput{IncludeHistory: true}),
		}
	})
	if err != nil {
		return contractiondto.ScreenOutput{}, fmt.Errorf("%w: %w", apperrors.ErrUnavailable, err)
	}
	return screen, actionErr
}
