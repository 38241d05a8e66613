package domain

import (
	"math"
	"sort"
)

// RegularityThresholdSeconds is the interval spread under which contractions are
// flagged as regular. It is a display heuristic, not a clinical assessment.
const RegularityThresholdSeconds = 60.0

type Stats struct {
	AvgDuration    float64
	AvgInterval    float64
	IntervalStdDev float64
	IsRegular      bool
	// Count is the number of events considered.
	Count int
}

// ComputeStats derives averages and the regularity hint. Events may come in any
// order; they are evaluated by ascending start time and the earliest event's
// interval is ignored.
func ComputeStats(events []Event) Stats {
	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime.Before(ordered[j].StartTime)
	})

	stats := Stats{Count: len(ordered)}

	finalized := 0
	var durations []float64
	for _, e := range ordered {
		if e.Duration == nil || e.EndTime == nil {
			continue
		}
		finalized++
		if *e.Duration > 0 {
			durations = append(durations, float64(*e.Duration))
		}
	}
	if finalized >= 2 {
		stats.AvgDuration = mean(durations)
	}

	var intervals []float64
	for i, e := range ordered {
		if i == 0 || e.Interval == nil || *e.Interval <= 0 {
			continue
		}
		intervals = append(intervals, float64(*e.Interval))
	}
	if len(intervals) == 0 {
		return stats
	}
	stats.AvgInterval = mean(intervals)
	stats.IntervalStdDev = populationStdDev(intervals, stats.AvgInterval)
	stats.IsRegular = stats.IntervalStdDev < RegularityThresholdSeconds
	return stats
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64, avg float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
