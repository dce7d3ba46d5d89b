// Package diff implements the Diff Engine (spec §4.6): the set of changes
// visible on a branch but not on its parent over a time window. Grounded on
// the teacher's domain/graph diff/changelog rendering (which pairs
// closed/opened version rows) but rewritten against edge-level opens/closes
// instead of row versions, and fixing the §9 DESIGN NOTES bug: nodes
// discovered only via a relationship are keyed by that relationship edge's
// own branch, not by whatever branch the outer per-branch loop last held.
package diff

import (
	"time"

	"github.com/google/uuid"
)

// Action is the diff verdict for a node, attribute, or relationship.
type Action string

const (
	ActionAdded     Action = "ADDED"
	ActionUpdated   Action = "UPDATED"
	ActionRemoved   Action = "REMOVED"
	ActionUnchanged Action = "UNCHANGED"
)

// ValuePair is the before/after of one changed property.
type ValuePair struct {
	New      any `json:"new"`
	Previous any `json:"previous"`
}

// PropertyDiff is one changed facet of an attribute or relationship: value,
// is_visible, is_protected, source, or owner (spec §4.6).
type PropertyDiff struct {
	Property  string    `json:"property"`
	Branch    string    `json:"branch"`
	Type      string    `json:"type,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	Action    Action    `json:"action"`
	Value     ValuePair `json:"value"`
}

// AttributeDiff is the change set for one attribute slot on a node.
type AttributeDiff struct {
	Name       string         `json:"name"`
	ID         uuid.UUID      `json:"id"`
	ChangedAt  time.Time      `json:"changed_at"`
	Action     Action         `json:"action"`
	Properties []PropertyDiff `json:"properties"`
}

// PeerRef describes the other endpoint of a relationship.
type PeerRef struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	DisplayLabel string    `json:"display_label"`
}

// RelationshipDiff is the change set for one relationship instance touching
// a node.
type RelationshipDiff struct {
	Branch     string         `json:"branch"`
	ID         uuid.UUID      `json:"id"`
	Identifier string         `json:"identifier"`
	Name       string         `json:"name"`
	Peer       PeerRef        `json:"peer"`
	Properties []PropertyDiff `json:"properties"`
	ChangedAt  time.Time      `json:"changed_at"`
	Action     Action         `json:"action"`
}

// NodeDiff is the per-entity change record (spec §4.6).
type NodeDiff struct {
	Branch        string             `json:"branch"`
	Kind          string             `json:"kind"`
	ID            uuid.UUID          `json:"id"`
	ChangedAt     time.Time          `json:"changed_at"`
	Action        Action             `json:"action"`
	Attributes    []AttributeDiff    `json:"attributes"`
	Relationships []RelationshipDiff `json:"relationships"`
}

// Options parameterises Compute.
type Options struct {
	Branch     string
	From       time.Time
	To         time.Time
	BranchOnly bool
}

// Result is the wire shape of `GET /diff/data`: branch name -> its NodeDiffs.
type Result map[string][]*NodeDiff
