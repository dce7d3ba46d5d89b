// Package query implements the Query Layer (spec §4.4): the precedence rule
// that picks one winning edge out of several branches/times claiming the
// same fact, and the helpers Node Manager and Diff Engine build on top of
// it. It holds no persistence concerns — callers fetch candidate edges from
// internal/graphstore and hand them here.
package query

import (
	"github.com/branchgraph/branchgraph/internal/graphstore"
)

// Winner picks the highest-precedence edge among candidates already
// narrowed to a single (src, label) pair and a visibility window (spec
// §4.4): higher branch_level wins; ties break on the later `from`; ties on
// both break in favour of status=deleted over active. Returns nil if
// candidates is empty.
func Winner(candidates []*graphstore.Edge) *graphstore.Edge {
	var winner *graphstore.Edge
	for _, e := range candidates {
		if winner == nil || precedes(e, winner) {
			winner = e
		}
	}
	return winner
}

// precedes reports whether a outranks b under spec §4.4's precedence order.
func precedes(a, b *graphstore.Edge) bool {
	if a.BranchLevel != b.BranchLevel {
		return a.BranchLevel > b.BranchLevel
	}
	if !a.ValidFrom.Equal(b.ValidFrom) {
		return a.ValidFrom.After(b.ValidFrom)
	}
	if a.Status != b.Status {
		return a.Status == string(graphstore.StatusDeleted)
	}
	return false
}

// GroupKey identifies a distinct fact slot among edges sharing a (src,
// label) pair: a plain IS_PART_OF/HAS_VALUE edge has one slot per src, but
// fan-out edges like HAS_ATTRIBUTE/IS_RELATED have one slot per dst (each
// destination is resolved independently).
type GroupKey = [16]byte

// WinnersByDst groups edges by destination vertex and returns the winning
// edge for each — the multi-valued case of Winner, used to resolve "all
// attributes currently attached to this node" or "all relationships
// currently out of this node" (spec §4.1, §4.4).
func WinnersByDst(edges []*graphstore.Edge) map[GroupKey]*graphstore.Edge {
	groups := make(map[GroupKey][]*graphstore.Edge)
	for _, e := range edges {
		k := GroupKey(e.DstID)
		groups[k] = append(groups[k], e)
	}
	winners := make(map[GroupKey]*graphstore.Edge, len(groups))
	for k, g := range groups {
		winners[k] = Winner(g)
	}
	return winners
}

// Visible reports whether a resolved winner represents a live fact rather
// than a tombstone (spec §3 invariant 2: the highest-precedence edge can
// itself be status=deleted, meaning the fact is currently absent).
func Visible(winner *graphstore.Edge) bool {
	return winner != nil && winner.Status == string(graphstore.StatusActive)
}
