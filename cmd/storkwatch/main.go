package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"storkwatch/internal/bootstrap"
	"storkwatch/internal/modules/contraction/domain"
	contractiondto "storkwatch/internal/modules/contraction/dto"
	"storkwatch/internal/platform/config"
	apperrors "storkwatch/internal/platform/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	vaultPath string
	userID    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "storkwatch",
		Short:         "Contraction timer with a synced history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.vaultPath, "vault", ".", "vault directory holding data, cache and notes")
	root.PersistentFlags().StringVar(&flags.userID, "user", "", "user id (overrides config)")

	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newContractionCmd(flags))
	return root
}

func loadApp(ctx context.Context, flags *rootFlags, opts ...config.Option) (*bootstrap.App, error) {
	opts = append([]config.Option{config.WithUserID(flags.userID)}, opts...)
	cfg, err := config.Load(flags.vaultPath, opts...)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

// withApp loads the app, runs fn and closes the app, keeping fn's error first.
func withApp(ctx context.Context, flags *rootFlags, fn func(*bootstrap.App) error, opts ...config.Option) (err error) {
	app, err := loadApp(ctx, flags, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close())
	}()
	return fn(app)
}

func newTUICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive contraction timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.vaultPath, config.WithUserID(flags.userID))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
			logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := bootstrap.New(ctx, cfg, bootstrap.WithLogOutput(logFile))
			if err != nil {
				return err
			}
			return errors.Join(bootstrap.RunTUI(ctx, app), app.Close())
		},
	}
}

func newContractionCmd(flags *rootFlags) *cobra.Command {
	contraction := &cobra.Command{
		Use:     "contraction",
		Aliases: []string{"c"},
		Short:   "Time contractions and manage the saved history",
	}

	var intensity int
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start timing a contraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				e, err := app.ContractionCLI.Start(cmd.Context(), intensity)
				if err != nil && !errors.Is(err, apperrors.ErrCacheWrite) {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "started at %s (intensity %d)\n",
					e.StartTime.Local().Format("15:04:05"), e.Intensity)
				return err
			})
		},
	}
	startCmd.Flags().IntVar(&intensity, "intensity", 0, "intensity 1-10 (default from config)")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running contraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				e, err := app.ContractionCLI.Stop(cmd.Context())
				if err != nil && !errors.Is(err, apperrors.ErrCacheWrite) {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stopped: duration %s, interval %s\n",
					domain.FormatOptional(e.DurationSec), domain.FormatOptional(e.IntervalSec))
				return err
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				st, err := app.ContractionCLI.Status(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "state: %s", st.State)
				if st.Timing {
					_, _ = fmt.Fprintf(w, " (%s elapsed)", domain.FormatClock(float64(st.ElapsedSec)))
				}
				_, _ = fmt.Fprintln(w)
				printEvents(w, st.Session)
				printStats(w, "session", st.Stats)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the unsaved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				out, err := app.ContractionCLI.Clear(cmd.Context())
				if err != nil && !errors.Is(err, apperrors.ErrCacheWrite) {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d contractions\n", out.Dropped)
				return err
			})
		},
	}

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Commit the finished session to the history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				out, err := app.ContractionCLI.Save(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %d contractions for %s\n",
					out.Saved, out.SessionDate.Local().Format("2006-01-02"))
				if out.NotePath != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "note: %s\n", out.NotePath)
				}
				return nil
			})
		},
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List saved and unsaved contractions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				h, err := app.ContractionCLI.History(cmd.Context())
				w := cmd.OutOrStdout()
				if !h.RemoteAvailable {
					_, _ = fmt.Fprintf(w, "history temporarily unavailable: %s\n", h.RemoteError)
				}
				printEvents(w, h.Events)
				if err != nil && !errors.Is(err, apperrors.ErrStore) {
					return err
				}
				return nil
			}, config.WithHistoryLimit(limit))
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 0, "saved events to fetch (default from config)")

	deleteCmd := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete one saved contraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				if err := app.ContractionCLI.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	var includeHistory bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Average duration, interval and regularity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				s, err := app.ContractionCLI.Stats(cmd.Context(), includeHistory)
				scope := "session"
				if includeHistory {
					scope = "history"
				}
				printStats(cmd.OutOrStdout(), scope, s)
				if err != nil && !errors.Is(err, apperrors.ErrStore) {
					return err
				}
				return nil
			})
		},
	}
	statsCmd.Flags().BoolVar(&includeHistory, "history", false, "compute over saved history as well")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the running timer and remote history changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, flags, func(app *bootstrap.App) error {
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(w, "watching, ctrl-c to stop")
				return bootstrap.RunWatch(ctx, app,
					func(elapsed int) {
						_, _ = fmt.Fprintf(w, "\r%s ", domain.FormatClock(float64(elapsed)))
					},
					func(h contractiondto.HistoryOutput) {
						_, _ = fmt.Fprintf(w, "\nhistory changed: %d events\n", len(h.Events))
					},
				)
			})
		},
	}

	contraction.AddCommand(startCmd, stopCmd, statusCmd, clearCmd, saveCmd, historyCmd, deleteCmd, statsCmd, watchCmd)
	return contraction
}

func printEvents(w io.Writer, events []contractiondto.EventOutput) {
	if len(events) == 0 {
		_, _ = fmt.Fprintln(w, "no contractions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "START\tDURATION\tINTERVAL\tINTENSITY\tID")
	for _, e := range events {
		duration := domain.FormatOptional(e.DurationSec)
		if e.InProgress {
			duration = "timing"
		}
		id := e.ID
		if !e.Persisted {
			id = "(unsaved)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			e.StartTime.Local().Format("2006-01-02 15:04:05"), duration,
			domain.FormatOptional(e.IntervalSec), e.Intensity, id)
	}
	_ = tw.Flush()
}

func printStats(w io.Writer, scope string, s contractiondto.StatsOutput) {
	pattern := "irregular"
	switch {
	case s.AvgIntervalSec == 0:
		pattern = "not enough data"
	case s.IsRegular:
		pattern = "regular"
	}
	_, _ = fmt.Fprintf(w, "%s: %d contractions, avg duration %s, avg interval %s, %s\n",
		scope, s.Count, domain.FormatClock(s.AvgDurationSec), domain.FormatClock(s.AvgIntervalSec), pattern)
}
