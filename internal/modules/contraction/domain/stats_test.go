package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// sessionWithIntervals builds finalized events whose successive intervals are the given values.
func sessionWithIntervals(durations int, intervals ...int) []Event {
	events := []Event{finalized(0, durations, nil)}
	start := 0
	for _, iv := range intervals {
		start += iv
		v := iv
		events = append(events, finalized(start, durations, &v))
	}
	return events
}

func finalized(startSec, duration int, interval *int) Event {
	return Event{
		StartTime: at(startSec),
		EndTime:   TimePtr(at(startSec + duration)),
		Duration:  IntPtr(duration),
		Interval:  interval,
		Intensity: DefaultIntensity,
	}
}

func TestComputeStatsRegularity(t *testing.T) {
	t.Parallel()
	regular := ComputeStats(sessionWithIntervals(50, 120, 125, 118, 122))
	assert.True(t, regular.IsRegular)
	assert.InDelta(t, 121.25, regular.AvgInterval, 1e-9)
	assert.Equal(t, 50.0, regular.AvgDuration)

	irregular := ComputeStats(sessionWithIntervals(50, 60, 300, 45, 280))
	assert.False(t, irregular.IsRegular)
	assert.InDelta(t, 171.25, irregular.AvgInterval, 1e-9)
	assert.Greater(t, irregular.IntervalStdDev, RegularityThresholdSeconds)
}

func TestComputeStatsEmptyAndSingle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Stats{}, ComputeStats(nil))

	single := ComputeStats([]Event{finalized(0, 40, nil)})
	assert.Equal(t, 0.0, single.AvgDuration)
	assert.False(t, single.IsRegular)
	assert.Equal(t, 1, single.Count)
}

func TestComputeStatsIsPure(t *testing.T) {
	t.Parallel()
	events := sessionWithIntervals(33, 61, 97, 250, 130)
	snapshot := make([]Event, len(events))
	for i, e := range events {
		snapshot[i] = e.Clone()
	}
	a := ComputeStats(events)
	b := ComputeStats(events)
	assert.Equal(t, a, b)
	assert.Equal(t, snapshot, events, "input must not be modified")
}

func TestComputeStatsOrderIndependent(t *testing.T) {
	t.Parallel()
	events := sessionWithIntervals(40, 120, 130, 125)
	reversed := make([]Event, len(events))
	for i, e := range events {
		reversed[len(events)-1-i] = e
	}
	assert.Equal(t, ComputeStats(events), ComputeStats(reversed))
}

func TestComputeStatsSkipsUnfinalizedAndZero(t *testing.T) {
	t.Parallel()
	inProgress := Event{StartTime: at(500), Interval: IntPtr(200), Intensity: 5}
	events := []Event{
		finalized(0, 60, nil),
		finalized(300, 0, IntPtr(300)),
		inProgress,
	}
	stats := ComputeStats(events)
	// two finalized events, only one with a positive duration
	assert.Equal(t, 60.0, stats.AvgDuration)
	assert.Equal(t, 250.0, stats.AvgInterval)
	assert.True(t, stats.IsRegular)

	onlyOneFinal := ComputeStats([]Event{finalized(0, 60, nil), inProgress})
	assert.Equal(t, 0.0, onlyOneFinal.AvgDuration)
	assert.Equal(t, 200.0, onlyOneFinal.AvgInterval)
}

func TestComputeStatsNoValidIntervals(t *testing.T) {
	t.Parallel()
	events := []Event{finalized(0, 60, nil), finalized(0, 30, IntPtr(0))}
	stats := ComputeStats(events)
	assert.Equal(t, 0.0, stats.AvgInterval)
	assert.False(t, stats.IsRegular)
	assert.Equal(t, 45.0, stats.AvgDuration)
}

func TestFormatClock(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "00:45", FormatClock(45.9))
	assert.Equal(t, "02:35", FormatClock(155))
	assert.Equal(t, "125:00", FormatClock(7500))
	assert.Equal(t, "00:00", FormatClock(-3))
	assert.Equal(t, "--:--", FormatOptional(nil))
	assert.Equal(t, "01:00", FormatOptional(IntPtr(60)))
}
