package domain

import (
	"fmt"
	"time"

	apperrors "storkwatch/internal/platform/errors"
)

type State int

const (
	Idle State = iota
	Timing
)

func (s State) String() string {
	if s == Timing {
		return "timing"
	}
	return "idle"
}

// Session is the unsaved, start-ordered list of events. Transitions never mutate
// the receiver; they return the next Session value.
type Session struct {
	events []Event
}

// RestoreSession rebuilds a session from cached events, rejecting lists that break
// ordering or hold an in-progress event anywhere but last.
func RestoreSession(events []Event) (Session, error) {
	for i, e := range events {
		if e.StartTime.IsZero() {
			return Session{}, fmt.Errorf("%w: event %d has no start time", apperrors.ErrInvalidInput, i)
		}
		if i > 0 && e.StartTime.Before(events[i-1].StartTime) {
			return Session{}, fmt.Errorf("%w: event %d starts before its predecessor", apperrors.ErrInvalidInput, i)
		}
		if e.InProgress() && i != len(events)-1 {
			return Session{}, fmt.Errorf("%w: event %d is in progress but not last", apperrors.ErrInvalidInput, i)
		}
		if (e.EndTime == nil) != (e.Duration == nil) {
			return Session{}, fmt.Errorf("%w: event %d has end time and duration out of sync", apperrors.ErrInvalidInput, i)
		}
	}
	return Session{events: cloneEvents(events)}, nil
}

func (s Session) State() State {
	if n := len(s.events); n > 0 && s.events[n-1].InProgress() {
		return Timing
	}
	return Idle
}

func (s Session) Len() int { return len(s.events) }

func (s Session) Empty() bool { return len(s.events) == 0 }

// Events returns a copy of the session in start order.
func (s Session) Events() []Event {
	return cloneEvents(s.events)
}

// Last returns the most recent event.
func (s Session) Last() (Event, bool) {
	if len(s.events) == 0 {
		return Event{}, false
	}
	return s.events[len(s.events)-1].Clone(), true
}

// Start appends a new in-progress event stamped at now.
func (s Session) Start(now time.Time, clientID string, intensity int) (Session, Event, error) {
	if s.State() != Idle {
		return s, Event{}, fmt.Errorf("%w: start while timing", apperrors.ErrInvalidState)
	}
	if intensity < MinIntensity || intensity > MaxIntensity {
		return s, Event{}, fmt.Errorf("%w: intensity %d outside %d..%d", apperrors.ErrInvalidInput, intensity, MinIntensity, MaxIntensity)
	}
	start := now.UTC().Truncate(time.Second)
	event := Event{ClientID: clientID, StartTime: start, Intensity: intensity}
	if last, ok := s.Last(); ok {
		event.Interval = IntPtr(secondsBetween(last.StartTime, start))
	}
	next := make([]Event, 0, len(s.events)+1)
	next = append(next, cloneEvents(s.events)...)
	next = append(next, event)
	return Session{events: next}, event.Clone(), nil
}

// Stop finalizes the in-progress event at now. A clock that went backwards yields a zero duration.
func (s Session) Stop(now time.Time) (Session, Event, error) {
	if s.State() != Timing {
		return s, Event{}, fmt.Errorf("%w: stop while idle", apperrors.ErrInvalidState)
	}
	next := cloneEvents(s.events)
	last := &next[len(next)-1]
	end := now.UTC().Truncate(time.Second)
	if end.Before(last.StartTime) {
		end = last.StartTime
	}
	last.EndTime = TimePtr(end)
	last.Duration = IntPtr(secondsBetween(last.StartTime, end))
	return Session{events: next}, last.Clone(), nil
}

// Clear drops every event, stopping first when timing. The stopped event is returned when there was one.
func (s Session) Clear(now time.Time) (Session, *Event) {
	if s.State() == Timing {
		_, stopped, _ := s.Stop(now)
		return Session{}, &stopped
	}
	return Session{}, nil
}

func secondsBetween(from, to time.Time) int {
	d := int(to.Sub(from) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

func cloneEvents(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}
