package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	now := Now()
	s := now.Format(time.RFC3339Nano)
	got, err := Parse(s)
	require.NoError(t, err)
	require.True(t, got.Equal(now))
	require.Equal(t, time.UTC, got.Location())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-timestamp")
	require.Error(t, err)
}

func TestVisible(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.False(t, Visible(from, &to, from.Add(-time.Second)))
	require.True(t, Visible(from, &to, from))
	require.True(t, Visible(from, &to, to.Add(-time.Second)))
	require.False(t, Visible(from, &to, to))
	require.True(t, Visible(from, nil, to.Add(time.Hour*24*365)))
}

func TestOverlaps(t *testing.T) {
	winFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	winTo := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// entirely before window
	before := winFrom.Add(-48 * time.Hour)
	closedBefore := winFrom.Add(-24 * time.Hour)
	require.False(t, Overlaps(before, &closedBefore, winFrom, winTo))

	// starts before, closes inside window
	midClose := winFrom.Add(time.Hour)
	require.True(t, Overlaps(before, &midClose, winFrom, winTo))

	// starts inside window, still open
	require.True(t, Overlaps(winFrom.Add(time.Hour), nil, winFrom, winTo))

	// entirely after window
	after := winTo.Add(time.Hour)
	require.False(t, Overlaps(after, nil, winFrom, winTo))
}
