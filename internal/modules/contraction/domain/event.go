package domain

import "time"

const (
	MinIntensity     = 1
	MaxIntensity     = 10
	DefaultIntensity = 5
)

// Event is one timed contraction. Optional fields are nil while absent.
type Event struct {
	// ID is assigned by the history store; empty while the event is local only.
	ID        string     `json:"id,omitempty"`
	ClientID  string     `json:"client_id,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	Interval  *int       `json:"interval,omitempty"`
	Intensity int        `json:"intensity"`
}

func (e Event) InProgress() bool {
	return e.EndTime == nil
}

func (e Event) Persisted() bool {
	return e.ID != ""
}

// Clone returns a copy that shares no pointers with e.
func (e Event) Clone() Event {
	out := e
	if e.EndTime != nil {
		end := *e.EndTime
		out.EndTime = &end
	}
	out.Duration = cloneInt(e.Duration)
	out.Interval = cloneInt(e.Interval)
	return out
}

// StoredEvent is the durable record shape returned by history stores.
type StoredEvent struct {
	ID          string
	UserID      string
	SessionDate time.Time
	Start       time.Time
	End         *time.Time
	Duration    *int
	Interval    *int
	Intensity   int
	ClientID    string
	CreatedAt   time.Time
}

func (s StoredEvent) Event() Event {
	return Event{
		ID:        s.ID,
		ClientID:  s.ClientID,
		StartTime: s.Start.UTC().Truncate(time.Second),
		EndTime:   truncatedPtr(s.End),
		Duration:  cloneInt(s.Duration),
		Interval:  cloneInt(s.Interval),
		Intensity: s.Intensity,
	}
}

// EventsFromStored maps records in the order given.
func EventsFromStored(stored []StoredEvent) []Event {
	out := make([]Event, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.Event())
	}
	return out
}

func IntPtr(v int) *int {
	return &v
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func truncatedPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}
