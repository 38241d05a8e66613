package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// DedupeKey selects how a local event is matched with its stored counterpart.
type DedupeKey int

const (
	// DedupeByStartTime collapses events starting in the same second. Two distinct
	// contractions started within one second merge into one; that is accepted.
	DedupeByStartTime DedupeKey = iota
	// DedupeByStartTimeAndClientID additionally requires the client id to match,
	// so same-second events survive but records saved without a client id never
	// collapse with their local copy.
	DedupeByStartTimeAndClientID
)

func ParseDedupeKey(v string) (DedupeKey, error) {
	switch v {
	case "", "start_time":
		return DedupeByStartTime, nil
	case "start_time_client_id":
		return DedupeByStartTimeAndClientID, nil
	default:
		return 0, fmt.Errorf("unknown dedupe key %q", v)
	}
}

func (k DedupeKey) of(e Event) string {
	sec := strconv.FormatInt(e.StartTime.Unix(), 10)
	if k == DedupeByStartTimeAndClientID {
		return sec + "|" + e.ClientID
	}
	return sec
}

// Merge builds the history view: remote records first so they win over the
// matching local copy, de-duplicated by key, newest start first.
func Merge(remote, local []Event, key DedupeKey) []Event {
	seen := make(map[string]struct{}, len(remote)+len(local))
	out := make([]Event, 0, len(remote)+len(local))
	for _, group := range [][]Event{remote, local} {
		for _, e := range group {
			k := key.of(e)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, e.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out
}
