package bootstrap

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	contractioninadapter "storkwatch/internal/modules/contraction/adapter/in"
	contractiondto "storkwatch/internal/modules/contraction/dto"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	contractionusecase "storkwatch/internal/modules/contraction/usecase"
	"storkwatch/internal/platform/metrics"
	uiapp "storkwatch/internal/ui/app"
)

// RunTUI drives the tracker from a full-screen program. The runner goroutine
// owns the usecase; the program reaches it only through the TUI handler.
func RunTUI(ctx context.Context, app *App) error {
	g, gctx := errgroup.WithContext(ctx)

	var program *tea.Program
	runner := contractionusecase.NewRunner(app.Contraction,
		contractionusecase.WithLogger(app.Logger),
		contractionusecase.OnTick(func(elapsed int) {
			program.Send(uiapp.TickMsg{Elapsed: elapsed})
		}),
		contractionusecase.OnRemote(func(contractiondto.HistoryOutput) {
			program.Send(uiapp.RemoteChangedMsg{})
		}),
	)
	model := uiapp.NewModel(contractioninadapter.NewTUIHandler(runner), app.Config.DefaultIntensity)
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))

	if err := app.serveMetrics(gctx, g); err != nil {
		return err
	}
	g.Go(func() error {
		return ignoreCanceled(runner.Run(gctx))
	})
	g.Go(func() error {
		_, err := program.Run()
		if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil) {
			return fmt.Errorf("run tui: %w", err)
		}
		// Returning an error cancels gctx, which stops the runner and the metrics server.
		return errProgramDone
	})
	if err := g.Wait(); !errors.Is(err, errProgramDone) {
		return err
	}
	return nil
}

// RunWatch keeps the usecase ticking and merging remote snapshots until ctx
// ends, calling back on the runner goroutine.
func RunWatch(ctx context.Context, app *App, onTick func(int), onRemote func(contractiondto.HistoryOutput)) error {
	runner := contractionusecase.NewRunner(app.Contraction,
		contractionusecase.WithLogger(app.Logger),
		contractionusecase.OnTick(onTick),
		contractionusecase.OnRemote(onRemote),
	)
	g, gctx := errgroup.WithContext(ctx)
	if err := app.serveMetrics(gctx, g); err != nil {
		return err
	}
	g.Go(func() error {
		return ignoreCanceled(runner.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(runner.Do(gctx, func(uc contractionin.Usecase) {
			if _, err := uc.Restore(gctx); err != nil {
				app.Logger.Warn("restore session", "err", err)
			}
			if err := uc.Watch(gctx); err != nil {
				app.Logger.Warn("watch history", "err", err)
			}
		}))
	})
	return g.Wait()
}

var errProgramDone = errors.New("program done")

func (a *App) serveMetrics(ctx context.Context, g *errgroup.Group) error {
	if a.Config.MetricsAddr == "" {
		return nil
	}
	srv, err := metrics.Listen(a.Config.MetricsAddr, a.Registry, a.Logger)
	if err != nil {
		return err
	}
	g.Go(func() error { return srv.Serve(ctx) })
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
