package query

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/internal/graphstore"
)

func edge(level int, from time.Time, status string) *graphstore.Edge {
	return &graphstore.Edge{ID: uuid.New(), BranchLevel: level, ValidFrom: from, Status: status}
}

func TestWinnerHigherBranchLevelWins(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	low := edge(1, base, "active")
	high := edge(2, base, "active")
	require.Same(t, high, Winner([]*graphstore.Edge{low, high}))
}

func TestWinnerLaterFromWinsOnTie(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := edge(1, base, "active")
	newer := edge(1, base.Add(time.Hour), "active")
	require.Same(t, newer, Winner([]*graphstore.Edge{older, newer}))
}

func TestWinnerDeletedBeatsActiveOnFullTie(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := edge(1, base, "active")
	deleted := edge(1, base, "deleted")
	require.Same(t, deleted, Winner([]*graphstore.Edge{active, deleted}))
	require.False(t, Visible(Winner([]*graphstore.Edge{active, deleted})))
}

func TestWinnerEmpty(t *testing.T) {
	require.Nil(t, Winner(nil))
}

func TestWinnersByDstGroupsIndependently(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dstA, dstB := uuid.New(), uuid.New()
	e1 := edge(1, base, "active")
	e1.DstID = dstA
	e2 := edge(1, base, "active")
	e2.DstID = dstB
	e3 := edge(2, base, "active")
	e3.DstID = dstA

	winners := WinnersByDst([]*graphstore.Edge{e1, e2, e3})
	require.Len(t, winners, 2)
	require.Same(t, e3, winners[GroupKey(dstA)])
	require.Same(t, e2, winners[GroupKey(dstB)])
}
