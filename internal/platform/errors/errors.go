package apperrors

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrNothingToSave = errors.New("no contractions to save")

	// ErrInvalidState reports an operation invoked in a tracker state that forbids it.
	ErrInvalidState = errors.New("invalid state")

	// ErrStore wraps every durable store failure surfaced by the reconciler.
	ErrStore = errors.New("history store unavailable")

	// ErrCacheWrite is returned when a transition was applied but could not be written to the local cache.
	ErrCacheWrite = errors.New("local cache write failed")

	// ErrUnavailable reports that the tracker could not be reached at all, so no state was observed.
	ErrUnavailable = errors.New("tracker unavailable")
)
