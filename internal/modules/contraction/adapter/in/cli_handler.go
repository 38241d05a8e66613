package in

import (
	"context"

	contractiondto "storkwatch/internal/modules/contraction/dto"
	contractionin "storkwatch/internal/modules/contraction/port/in"
)

// CLIHandler adapts the usecase to one-shot commands. Each call first restores
// the cached session left by the previous invocation.
type CLIHandler struct {
	usecase contractionin.Usecase
}

func NewCLIHandler(usecase contractionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context) (contractiondto.StatusOutput, error) {
	return h.usecase.Restore(ctx)
}

func (h CLIHandler) Start(ctx context.Context, intensity int) (contractiondto.EventOutput, error) {
	if _, err := h.usecase.Restore(ctx); err != nil {
		return contractiondto.EventOutput{}, err
	}
	return h.usecase.Start(ctx, contractiondto.StartInput{Intensity: intensity})
}

func (h CLIHandler) Stop(ctx context.Context) (contractiondto.EventOutput, error) {
	if _, err := h.usecase.Restore(ctx); err != nil {
		return contractiondto.EventOutput{}, err
	}
	return h.usecase.Stop(ctx)
}

func (h CLIHandler) Clear(ctx context.Context) (contractiondto.ClearOutput, error) {
	if _, err := h.usecase.Restore(ctx); err != nil {
		return contractiondto.ClearOutput{}, err
	}
	return h.usecase.Clear(ctx)
}

func (h CLIHandler) Save(ctx context.Context) (contractiondto.SaveOutput, error) {
	if _, err := h.usecase.Restore(ctx); err != nil {
		return contractiondto.SaveOutput{}, err
	}
	return h.usecase.Save(ctx)
}

// History returns the merged view. A store failure still yields the local part.
func (h CLIHandler) History(ctx context.Context) (contractiondto.HistoryOutput, error) {
	if _, err := h.usecase.Restore(ctx); err != nil {
		return contractiondto.HistoryOutput{}, err
	}
	return h.usecase.Refresh(ctx)
}

func (h CLIHandler) Delete(ctx context.Context, eventID string) error {
	return h.usecase.Delete(ctx, contractiondto.DeleteInput{EventID: eventID})
}

func (h CLIHandler) Stats(ctx context.Context, includeHistory bool) (contractiondto.StatsOutput, error) {
	if _, err := h.usecase.Restore(ctx); err != nil {
		return contractiondto.StatsOutput{}, err
	}
	if includeHistory {
		if _, err := h.usecase.Refresh(ctx); err != nil {
			return h.usecase.Stats(contractiondto.StatsInput{IncludeHistory: true}), err
		}
	}
	return h.usecase.Stats(contractiondto.StatsInput{IncludeHistory: includeHistory}), nil
}
