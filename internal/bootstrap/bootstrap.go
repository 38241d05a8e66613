package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	contractioninadapter "storkwatch/internal/modules/contraction/adapter/in"
	contractionoutadapter "storkwatch/internal/modules/contraction/adapter/out"
	"storkwatch/internal/modules/contraction/domain"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	contractionout "storkwatch/internal/modules/contraction/port/out"
	contractionservice "storkwatch/internal/modules/contraction/service"
	contractionusecase "storkwatch/internal/modules/contraction/usecase"
	"storkwatch/internal/platform/clock"
	"storkwatch/internal/platform/config"
	"storkwatch/internal/platform/id"
	"storkwatch/internal/platform/kv"
	"storkwatch/internal/platform/logging"
	"storkwatch/internal/platform/metrics"
)

type App struct {
	Config         config.Config
	Logger         *slog.Logger
	Registry       *prometheus.Registry
	Contraction    contractionin.Usecase
	ContractionCLI contractioninadapter.CLIHandler

	closers []func() error
}

type Option func(*options)

type options struct {
	logOutput io.Writer
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, o.logOutput)
	if err != nil {
		return nil, err
	}
	logger = logger.With("user_id", cfg.UserID)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewContractions(reg)

	app := &App{Config: cfg, Logger: logger, Registry: reg}
	clk := clock.SystemClock{}

	store, err := app.historyStore(ctx, clk)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	cache, err := app.sessionCache()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	dedupe, err := domain.ParseDedupeKey(cfg.DedupeKey)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	tracker := contractionservice.NewTracker(clk, id.ULID{}, cache, contractionservice.NewClockDriver(clk), cfg.UserID, logger, m)
	reconciler := contractionservice.NewReconciler(store, clk, cfg.UserID, cfg.HistoryLimit, dedupe, logger, m)
	var notes contractionout.SessionNoteWriter
	if cfg.Notes {
		notes = contractionoutadapter.NewVaultNoteWriter(cfg.NotesPath)
	}
	uc := contractionusecase.NewInteractor(tracker, reconciler, contractionusecase.Options{
		UserID:           cfg.UserID,
		DefaultIntensity: cfg.DefaultIntensity,
		Notes:            notes,
		Logger:           logger,
	})
	app.closers = append(app.closers, func() error { uc.Close(); return nil })

	app.Contraction = uc
	app.ContractionCLI = contractioninadapter.NewCLIHandler(uc)
	logger.Debug("app ready", "history", cfg.HistoryBackend, "cache", cfg.CacheBackend)
	return app, nil
}

func (a *App) historyStore(ctx context.Context, clk clock.SystemClock) (contractionout.HistoryStore, error) {
	switch a.Config.HistoryBackend {
	case config.HistoryFirestore:
		store, err := contractionoutadapter.NewFirestoreHistoryStore(ctx, a.Config.FirestoreProject, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("new firestore history: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.HistoryMemory:
		return contractionoutadapter.NewMemoryHistoryStore(clk, id.UUID{}), nil
	default:
		store, err := contractionoutadapter.NewSQLiteHistoryStore(a.Config.DBPath, clk, id.UUID{}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("new sqlite history: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
}

func (a *App) sessionCache() (contractionout.SessionCache, error) {
	if a.Config.CacheBackend == config.CacheBadger {
		kvCfg := kv.DefaultConfig(filepath.Join(a.Config.CachePath, "badger"))
		kvCfg.Logger = a.Logger.With("component", "badger")
		db, err := kv.Open(kvCfg)
		if err != nil {
			return nil, fmt.Errorf("open session cache: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return contractionoutadapter.NewBadgerSessionCache(db), nil
	}
	return contractionoutadapter.NewFileSessionCache(a.Config.CachePath), nil
}

// Close releases adapters in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
