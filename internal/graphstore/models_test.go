package graphstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEdgeVisible(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	open := &Edge{ValidFrom: from}
	require.False(t, open.Visible(from.Add(-time.Minute)))
	require.True(t, open.Visible(from))
	require.True(t, open.Visible(from.Add(time.Hour)))

	closed := &Edge{ValidFrom: from, ValidTo: &to}
	require.True(t, closed.Visible(from))
	require.True(t, closed.Visible(to.Add(-time.Second)))
	require.False(t, closed.Visible(to))
	require.False(t, closed.Visible(to.Add(time.Hour)))
}
