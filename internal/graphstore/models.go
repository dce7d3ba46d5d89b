// Package graphstore is the persistent property-graph store (spec §3): a
// directed labelled graph of Root/Node/Attribute/AttributeValue/
// Relationship/Boolean vertices and temporal edges, backed by Postgres via
// bun — adapted from the teacher's kb.graph_objects/kb.graph_relationships
// versioning tables (domain/graph/entity.go, repository.go) onto a generic
// vertex/edge schema since the teacher's versioning model (canonical_id/
// supersedes_id chains) and this spec's model (temporal edge header per
// spec §3) are related but not identical: both "find the edge/row with no
// later successor", but here that fact lives on the edge, not the node.
package graphstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NodeLabel enumerates the vertex labels from spec §3.
type NodeLabel string

const (
	LabelRoot           NodeLabel = "Root"
	LabelNode           NodeLabel = "Node"
	LabelAttribute      NodeLabel = "Attribute"
	LabelAttributeValue NodeLabel = "AttributeValue"
	LabelRelationship   NodeLabel = "Relationship"
	LabelBoolean        NodeLabel = "Boolean"
)

// EdgeLabel enumerates the edge labels from spec §3's edge table.
type EdgeLabel string

const (
	EdgeIsPartOf     EdgeLabel = "IS_PART_OF"
	EdgeHasAttribute EdgeLabel = "HAS_ATTRIBUTE"
	EdgeHasValue     EdgeLabel = "HAS_VALUE"
	EdgeIsVisible    EdgeLabel = "IS_VISIBLE"
	EdgeIsProtected  EdgeLabel = "IS_PROTECTED"
	EdgeHasSource    EdgeLabel = "HAS_SOURCE"
	EdgeHasOwner     EdgeLabel = "HAS_OWNER"
	EdgeIsRelated    EdgeLabel = "IS_RELATED"
)

// EdgeStatus is either active or deleted (spec §3 invariant 2).
type EdgeStatus string

const (
	StatusActive  EdgeStatus = "active"
	StatusDeleted EdgeStatus = "deleted"
)

// Vertex is a row in kb.graph_vertices. EntityUUID is the stable
// user-facing identity for Node/Attribute/Relationship vertices;
// AttributeValue/Boolean/Root vertices have none (they are content-addressed
// or a singleton).
type Vertex struct {
	bun.BaseModel `bun:"table:kb.graph_vertices,alias:v"`

	ID         uuid.UUID       `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Label      string          `bun:"label,notnull"`
	EntityUUID *uuid.UUID      `bun:"entity_uuid,type:uuid"`
	Kind       *string         `bun:"kind"`
	Name       *string         `bun:"name"`
	ValueType  *string         `bun:"value_type"`
	Literal    json.RawMessage `bun:"literal,type:jsonb"`
	CreatedAt  time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

// Edge is a row in kb.graph_edges: every edge carries the temporal header
// (branch, branch_level, status, from, to) from spec §3.
type Edge struct {
	bun.BaseModel `bun:"table:kb.graph_edges,alias:e"`

	ID          uuid.UUID      `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Label       string         `bun:"label,notnull"`
	SrcID       uuid.UUID      `bun:"src_id,notnull,type:uuid"`
	DstID       uuid.UUID      `bun:"dst_id,notnull,type:uuid"`
	BranchID    uuid.UUID      `bun:"branch_id,notnull,type:uuid"`
	BranchLevel int            `bun:"branch_level,notnull"`
	Status      string         `bun:"status,notnull,default:'active'"`
	ValidFrom   time.Time      `bun:"valid_from,notnull"`
	ValidTo     *time.Time     `bun:"valid_to"`
	Properties  map[string]any `bun:"properties,type:jsonb"`
	CreatedAt   time.Time      `bun:"created_at,notnull,default:current_timestamp"`
}

// Visible reports whether this edge is visible at `at` (spec §4.1).
func (e *Edge) Visible(at time.Time) bool {
	if at.Before(e.ValidFrom) {
		return false
	}
	if e.ValidTo != nil && !at.Before(*e.ValidTo) {
		return false
	}
	return true
}
