package domain

import "time"

// SessionNote summarizes a committed session.
type SessionNote struct {
	UserID      string
	SessionDate time.Time
	Events      []Event
	Stats       Stats
}
