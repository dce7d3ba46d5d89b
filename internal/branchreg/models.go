// Package branchreg implements the Branch Registry (spec §4.2): branch
// create/list/lookup/rebase/delete, lineage tracking, and the copy-on-write
// in-memory snapshot reads are served from.
package branchreg

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Branch is a named timeline descending from a parent branch, with its own
// write stream (GLOSSARY). All versioning state lives on graph edges, never
// on the branch record itself — Branch only carries the registry metadata
// spec §4.2 names.
type Branch struct {
	bun.BaseModel `bun:"table:kb.branches,alias:b"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name         string     `bun:"name,notnull,unique"`
	ParentID     *uuid.UUID `bun:"parent_id,type:uuid"`
	BranchLevel  int        `bun:"branch_level,notnull,default:1"`
	BranchedFrom time.Time  `bun:"branched_from,notnull"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	IsDefault    bool       `bun:"is_default,notnull,default:false"`
	IsDataOnly   bool       `bun:"is_data_only,notnull,default:false"`
	SchemaHash   string     `bun:"schema_hash,notnull,default:''"`
	MergedAt     *time.Time `bun:"merged_at"`
}

// BranchLineage is the materialised-ancestor-closure cache the registry
// maintains alongside ParentID (C.2): ParentID remains the source of truth,
// this table trades write-amplification on branch creation for O(1) lineage
// reads on every query.
type BranchLineage struct {
	bun.BaseModel `bun:"table:kb.branch_lineage,alias:bl"`

	BranchID   uuid.UUID `bun:"branch_id,pk,type:uuid"`
	AncestorID uuid.UUID `bun:"ancestor_id,pk,type:uuid"`
	Depth      int       `bun:"depth,notnull"`
}
