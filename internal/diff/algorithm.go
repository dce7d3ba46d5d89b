package diff

import (
	"sort"
	"time"

	"github.com/branchgraph/branchgraph/internal/graphstore"
)

// inWindow reports whether t falls in the closed interval [from, to].
func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// sortByFrom returns edges sorted by ValidFrom ascending — the piecewise-
// constant-history order spec §3 invariant 1 guarantees never overlaps on
// one branch.
func sortByFrom(edges []*graphstore.Edge) []*graphstore.Edge {
	sorted := append([]*graphstore.Edge(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ValidFrom.Before(sorted[j].ValidFrom) })
	return sorted
}

// NodeAction derives the node-level action from its full (branch) history
// of IS_PART_OF edges, per spec §4.6 step 2: ADDED if the earliest in-window
// edge is the first edge ever seen (no predecessor) and active; REMOVED if
// the latest in-window edge is a tombstone; else UPDATED.
func NodeAction(allPartOf []*graphstore.Edge, from, to time.Time) Action {
	sorted := sortByFrom(allPartOf)

	var windowed []*graphstore.Edge
	for _, e := range sorted {
		if inWindow(e.ValidFrom, from, to) {
			windowed = append(windowed, e)
		}
	}
	if len(windowed) == 0 {
		return ActionUnchanged
	}

	last := windowed[len(windowed)-1]
	if last.Status == string(graphstore.StatusDeleted) {
		return ActionRemoved
	}

	first := windowed[0]
	if len(sorted) > 0 && sorted[0].ID == first.ID && first.Status == string(graphstore.StatusActive) {
		return ActionAdded
	}
	return ActionUpdated
}

// Transition is one open/close pairing for a single-valued property slot
// (HAS_VALUE, IS_VISIBLE, IS_PROTECTED, HAS_SOURCE, HAS_OWNER) — spec §4.6
// step 3: "pair closed edges with opened edges to yield {previous, new}".
type Transition struct {
	ChangedAt time.Time
	Action    Action
	New       *graphstore.Edge
	Previous  *graphstore.Edge
}

// PairTransitions walks a property's full edge history (sorted by from) and
// emits one Transition per in-window open, paired with whatever edge
// immediately preceded it (nil if this is the first value ever recorded).
func PairTransitions(allEdges []*graphstore.Edge, from, to time.Time) []Transition {
	sorted := sortByFrom(allEdges)

	var out []Transition
	for i, e := range sorted {
		if !inWindow(e.ValidFrom, from, to) {
			continue
		}
		t := Transition{ChangedAt: e.ValidFrom, New: e, Action: ActionUpdated}
		if i > 0 {
			t.Previous = sorted[i-1]
		} else {
			t.Action = ActionAdded
		}
		if e.Status == string(graphstore.StatusDeleted) {
			t.Action = ActionRemoved
		}
		out = append(out, t)
	}
	return out
}
