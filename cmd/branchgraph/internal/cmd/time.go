package cmd

import (
	"time"

	"github.com/branchgraph/branchgraph/internal/timeparsing"
	"github.com/branchgraph/branchgraph/internal/timestamp"
)

// parseAtFlag resolves a --at/--from/--to style flag, defaulting to now when
// raw is empty.
func parseAtFlag(raw string) (time.Time, error) {
	return parseTimeFlag(raw, timestamp.Now())
}

func parseTimeFlag(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return timeparsing.Parse(raw, timestamp.Now())
}
