// Package nodemgr implements the Node Manager (spec §4.5): CRUD on
// entities, and the write algorithm that preserves history instead of
// overwriting it. Grounded on the teacher's domain/graph service layer
// (entity create/update/delete flows) but rewritten against the generic
// vertex/edge schema in internal/graphstore and the precedence ranking in
// internal/query.
package nodemgr

import (
	"time"

	"github.com/google/uuid"
)

// AttributeInput is a caller-supplied attribute assignment for Save/New.
type AttributeInput struct {
	Name  string
	Type  string
	Value any
	// Visible and Protected mirror the IS_VISIBLE/IS_PROTECTED flag edges
	// (spec §3). Source and Owner, if set, emit HAS_SOURCE/HAS_OWNER edges.
	Visible   bool
	Protected bool
	Source    *uuid.UUID
	Owner     *uuid.UUID
}

// RelationshipInput is a caller-supplied relationship assignment.
type RelationshipInput struct {
	Identifier string
	PeerID     uuid.UUID
	Visible    bool
	Protected  bool
}

// Entity is the resolved, read-side view of a Node at (branch, time): its
// identity, kind, attribute values, and relationship targets.
type Entity struct {
	UUID          uuid.UUID
	Kind          string
	Attributes    map[string]AttributeValue
	Relationships map[string][]uuid.UUID
}

// AttributeValue is one resolved attribute slot.
type AttributeValue struct {
	UUID      uuid.UUID
	Type      string
	Value     any
	Visible   bool
	Protected bool
	Source    *uuid.UUID
	Owner     *uuid.UUID
}

// Filter is one `attr__value`-style query predicate (spec §4.5's query op).
// Path is split on "__": ["attr", "value"] or ["rel", "peer_attr", "value"].
type Filter struct {
	Path  []string
	Value any
}

// QueryOptions bundles the parameters of get_one/get_many/query.
type QueryOptions struct {
	Branch        string
	At            time.Time
	IncludeSource bool
}
