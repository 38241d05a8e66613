package dto

import "time"

type EventOutput struct {
	ID          string
	ClientID    string
	StartTime   time.Time
	EndTime     *time.Time
	DurationSec *int
	IntervalSec *int
	Intensity   int
	Persisted   bool
	InProgress  bool
}

type StartInput struct {
	// Intensity 1..10; zero selects the configured default.
	Intensity int
}

type ClearOutput struct {
	Dropped int
}

type StatusOutput struct {
	State      string
	Timing     bool
	ElapsedSec int
	Session    []EventOutput
	Stats      StatsOutput
}

type StatsInput struct {
	// IncludeHistory computes over the merged history view instead of the local session.
	IncludeHistory bool
}

type StatsOutput struct {
	AvgDurationSec    float64
	AvgIntervalSec    float64
	IntervalStdDevSec float64
	IsRegular         bool
	Count             int
}

type HistoryOutput struct {
	Events          []EventOutput
	RemoteAvailable bool
	RemoteError     string
}

type SaveOutput struct {
	Saved       int
	SessionDate time.Time
	NotePath    string
}

type DeleteInput struct {
	EventID string
}

// ScreenOutput is everything an interactive view renders after an action.
type ScreenOutput struct {
	Status       StatusOutput
	History      HistoryOutput
	HistoryStats StatsOutput
}
