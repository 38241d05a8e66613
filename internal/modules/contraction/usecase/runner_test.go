package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storkwatch/internal/modules/contraction/domain"
	"storkwatch/internal/modules/contraction/dto"
	contractionin "storkwatch/internal/modules/contraction/port/in"
	"storkwatch/internal/modules/contraction/usecase"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

func TestRunnerSerializesTicksCommandsAndRemoteChanges(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ticks := make(chan int, 4)
	remote := make(chan dto.HistoryOutput, 4)
	runner := usecase.NewRunner(h.uc,
		usecase.OnTick(func(n int) { ticks <- n }),
		usecase.OnRemote(func(out dto.HistoryOutput) { remote <- out }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	var opErr error
	require.NoError(t, runner.Do(ctx, func(uc contractionin.Usecase) {
		_, opErr = uc.Start(ctx, dto.StartInput{})
	}))
	require.NoError(t, opErr)

	h.clk.lastTicker().ch <- t0.Add(time.Second)
	assert.Equal(t, 1, receive(t, ticks))

	require.NoError(t, runner.Do(ctx, func(uc contractionin.Usecase) {
		opErr = uc.Watch(ctx)
	}))
	require.NoError(t, opErr)
	initial := receive(t, remote)
	assert.True(t, initial.RemoteAvailable)
	require.Len(t, initial.Events, 1)

	// another device saves a session
	other := domain.Event{
		ClientID:  "other-device",
		StartTime: t0.Add(-time.Hour),
		EndTime:   domain.TimePtr(t0.Add(-time.Hour + 40*time.Second)),
		Duration:  domain.IntPtr(40),
		Intensity: 4,
	}
	require.NoError(t, h.store.CommitBatch(context.Background(), userID, t0, []domain.Event{other}))
	changed := receive(t, remote)
	require.Len(t, changed.Events, 2)
	assert.True(t, changed.Events[0].InProgress)
	assert.True(t, changed.Events[1].Persisted)

	var status dto.StatusOutput
	require.NoError(t, runner.Do(ctx, func(uc contractionin.Usecase) { status = uc.Status() }))
	assert.Equal(t, 1, status.ElapsedSec)

	cancel()
	assert.True(t, errors.Is(receive(t, runErr), context.Canceled))
	err := runner.Do(context.Background(), func(contractionin.Usecase) {})
	assert.True(t, errors.Is(err, usecase.ErrRunnerStopped))
}

func TestRunnerDoHonoursContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	runner := usecase.NewRunner(h.uc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Run is not started, so only the cancelled context can release Do.
	err := runner.Do(ctx, func(contractionin.Usecase) {})
	assert.True(t, errors.Is(err, context.Canceled))
}
