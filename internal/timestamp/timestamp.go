// Package timestamp provides the core's only notion of time: a monotonic
// wall-clock source and ISO-8601 parsing, plus the validity-interval
// arithmetic every edge read is built on (spec §4.1).
//
// The core never compares timestamps taken from different processes; all
// ordering here is per-process, per spec §4.1.
package timestamp

import "time"

// Now returns the current UTC instant at millisecond-or-better resolution.
func Now() time.Time {
	return time.Now().UTC()
}

// Parse reads an ISO-8601/RFC3339 timestamp, normalising to UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Visible reports whether an edge with validity interval [from, to) is
// visible at instant `at`: from <= at and (to is nil or at < to), per the
// edge-visibility definition in spec §4.1.
func Visible(from time.Time, to *time.Time, at time.Time) bool {
	if at.Before(from) {
		return false
	}
	if to != nil && !at.Before(*to) {
		return false
	}
	return true
}

// Overlaps reports whether the interval [from, to) intersects the window
// [winFrom, winTo], used by the Diff Engine to select edges touched in a
// window (spec §4.6 step 1: "from ∈ window OR to ∈ window").
func Overlaps(from time.Time, to *time.Time, winFrom, winTo time.Time) bool {
	if from.After(winTo) {
		return false
	}
	if to != nil && to.Before(winFrom) {
		return false
	}
	return true
}
