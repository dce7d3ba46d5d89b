package diff

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/internal/graphstore"
)

func mkEdge(id string, from time.Time, status string) *graphstore.Edge {
	return &graphstore.Edge{ID: uuid.MustParse(id), ValidFrom: from, Status: status}
}

var (
	id1 = "00000000-0000-0000-0000-000000000001"
	id2 = "00000000-0000-0000-0000-000000000002"
	id3 = "00000000-0000-0000-0000-000000000003"
)

func TestNodeActionAdded(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	edges := []*graphstore.Edge{mkEdge(id1, base, "active")}
	require.Equal(t, ActionAdded, NodeAction(edges, base, base.Add(time.Hour)))
}

func TestNodeActionRemoved(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	edges := []*graphstore.Edge{
		mkEdge(id1, base, "active"),
		mkEdge(id2, base.Add(time.Hour), "deleted"),
	}
	require.Equal(t, ActionRemoved, NodeAction(edges, base, base.Add(2*time.Hour)))
}

func TestNodeActionUpdatedWhenPredecessorOutsideWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	edges := []*graphstore.Edge{
		mkEdge(id1, base, "active"),
		mkEdge(id2, base.Add(48*time.Hour), "active"),
	}
	require.Equal(t, ActionUpdated, NodeAction(edges, base.Add(47*time.Hour), base.Add(49*time.Hour)))
}

func TestNodeActionUnchangedOutsideWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	edges := []*graphstore.Edge{mkEdge(id1, base, "active")}
	require.Equal(t, ActionUnchanged, NodeAction(edges, base.Add(time.Hour), base.Add(2*time.Hour)))
}

func TestPairTransitionsFirstValueHasNoPrevious(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	edges := []*graphstore.Edge{mkEdge(id1, base, "active")}
	ts := PairTransitions(edges, base, base.Add(time.Hour))
	require.Len(t, ts, 1)
	require.Equal(t, ActionAdded, ts[0].Action)
	require.Nil(t, ts[0].Previous)
}

func TestPairTransitionsUpdatePairsWithPredecessor(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := mkEdge(id1, base, "active")
	newer := mkEdge(id2, base.Add(time.Hour), "active")
	ts := PairTransitions([]*graphstore.Edge{older, newer}, base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.Len(t, ts, 1)
	require.Equal(t, ActionUpdated, ts[0].Action)
	require.Same(t, older, ts[0].Previous)
	require.Same(t, newer, ts[0].New)
}

func TestPairTransitionsTombstoneIsRemoved(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := mkEdge(id1, base, "active")
	deleted := mkEdge(id3, base.Add(time.Hour), "deleted")
	ts := PairTransitions([]*graphstore.Edge{active, deleted}, base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.Len(t, ts, 1)
	require.Equal(t, ActionRemoved, ts[0].Action)
}
