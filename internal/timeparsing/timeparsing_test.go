package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRFC3339(t *testing.T) {
	got, err := Parse("2026-01-15T10:00:00Z", time.Now())
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year())
}

func TestParseEmptyIsZero(t *testing.T) {
	got, err := Parse("", time.Now())
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestParseNaturalLanguage(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got, err := Parse("yesterday", now)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, -1).Day(), got.Day())
}

func TestParseUnresolvable(t *testing.T) {
	_, err := Parse("gibberish not a time at all", time.Now())
	require.Error(t, err)
}
