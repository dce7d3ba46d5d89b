// Package merge implements the Merge Engine (spec §4.7): replaying a
// branch's deltas onto its parent inside a single graph-store transaction,
// failing closed on any schema or value conflict. This replaces the
// teacher's MergeBranch, which only marked a migration row merged without
// touching any data — here the apply step is real: every opened/closed
// edge on the source branch gets an equivalent edge written against the
// parent.
package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/internal/timestamp"
	"github.com/branchgraph/branchgraph/pkg/apperror"
	"github.com/branchgraph/branchgraph/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Publisher is the subset of the Event Emitter's interface merge needs;
// kept local to avoid merge depending on internal/events' concrete type.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload map[string]any)
}

// Engine is the Merge Engine.
type Engine struct {
	db        bun.IDB
	store     *graphstore.Store
	branches  *branchreg.Registry
	schemas   *schema.Cache
	publisher Publisher
}

// New builds a Merge Engine. publisher may be nil (events are then
// dropped, not buffered — the facade layer decides whether that's
// acceptable for a given deployment).
func New(db bun.IDB, store *graphstore.Store, branches *branchreg.Registry, schemas *schema.Cache, publisher Publisher) *Engine {
	e := &Engine{db: db, store: store, branches: branches, schemas: schemas, publisher: publisher}
	branches.SetConflictChecker(e)
	return e
}

var propertyLabels = map[graphstore.EdgeLabel]bool{
	graphstore.EdgeHasValue:    true,
	graphstore.EdgeIsVisible:   true,
	graphstore.EdgeIsProtected: true,
	graphstore.EdgeHasSource:   true,
	graphstore.EdgeHasOwner:    true,
}

// HasConflict implements branchreg.ConflictChecker: true if any property
// edge on `branch` created since its branched_from has a same-(label,src)
// counterpart opened on `parent` after that same instant — the precondition
// Rebase enforces before advancing branched_from.
func (e *Engine) HasConflict(ctx context.Context, branch, parent *branchreg.Branch) (bool, error) {
	now := timestamp.Now()
	edges, err := e.store.EdgesInWindow(ctx, branch.ID, branch.BranchedFrom, now)
	if err != nil {
		return false, err
	}
	for _, edge := range edges {
		if !propertyLabels[graphstore.EdgeLabel(edge.Label)] {
			continue
		}
		openedInWindow := !edge.ValidFrom.Before(branch.BranchedFrom) && !edge.ValidFrom.After(now)
		if !openedInWindow {
			continue
		}
		conflict, err := e.hasBaseDivergence(ctx, edge, parent, branch.BranchedFrom)
		if err != nil {
			return false, err
		}
		if conflict {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) hasBaseDivergence(ctx context.Context, edge *graphstore.Edge, parent *branchreg.Branch, since time.Time) (bool, error) {
	baseEdges, err := e.store.AllEdges(ctx, edge.Label, edge.SrcID, []uuid.UUID{parent.ID})
	if err != nil {
		return false, err
	}
	for _, be := range baseEdges {
		if be.ValidFrom.After(since) {
			return true, nil
		}
	}
	return false, nil
}

// Merge applies branchName's deltas onto its parent at instant `at` (spec
// §4.7). On any failure the transaction rolls back and no edges are
// written.
func (e *Engine) Merge(ctx context.Context, branchName string, at time.Time) error {
	ctx, span := tracing.Start(ctx, "merge.apply", attribute.String("branchgraph.branch", branchName))
	defer span.End()

	b, err := e.branches.Get(ctx, branchName)
	if err != nil {
		return err
	}
	if b.ParentID == nil {
		return apperror.ErrBadRequest.WithMessage("cannot merge the default branch")
	}
	p, err := e.branches.GetByID(ctx, *b.ParentID)
	if err != nil {
		return err
	}

	if b.SchemaHash != "" && p.SchemaHash != "" && b.SchemaHash != p.SchemaHash {
		return apperror.ErrSchemaConflict.WithMessage(
			fmt.Sprintf("branch schema_hash %s incompatible with parent %s", b.SchemaHash, p.SchemaHash))
	}

	now := at
	if now.IsZero() {
		now = timestamp.Now()
	}

	bunDB, ok := e.db.(*bun.DB)
	if !ok {
		return e.applyInTx(ctx, e.db, b, p, now)
	}
	return graphstore.WithRetry(ctx, func() error {
		return bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return e.applyInTx(ctx, tx, b, p, now)
		})
	})
}

func (e *Engine) applyInTx(ctx context.Context, tx bun.IDB, b, p *branchreg.Branch, now time.Time) error {
	if err := graphstore.AcquireBranchWriteLock(ctx, tx, p.Name); err != nil {
		return err
	}
	if err := graphstore.AcquireBranchWriteLock(ctx, tx, b.Name); err != nil {
		return err
	}

	txStore := e.store.WithTx(tx)
	edges, err := txStore.EdgesInWindow(ctx, b.ID, b.BranchedFrom, now)
	if err != nil {
		return err
	}

	var structural, relationships []*graphstore.Edge
	for _, edge := range edges {
		if edge.Label == string(graphstore.EdgeIsRelated) {
			relationships = append(relationships, edge)
		} else {
			structural = append(structural, edge)
		}
	}

	// Relationship tombstones are applied last (spec §4.7 step 4) to avoid
	// dangling peers mid-merge.
	for _, edge := range append(structural, relationships...) {
		if err := e.applyEdge(ctx, txStore, edge, p, b.BranchedFrom, now); err != nil {
			return err
		}
	}

	if err := e.branches.MarkMerged(ctx, b.ID, now); err != nil {
		return err
	}
	if e.publisher != nil {
		e.publisher.Publish(ctx, "branch.merged", map[string]any{"branch": b.Name, "parent": p.Name})
	}
	return nil
}

// applyEdge replays a single edge from b onto p: a newly-opened edge in
// window gets an equivalent edge opened on p at `now`; an edge whose
// validity closed in window gets its p-side counterpart closed at `now`
// (spec §4.7 step 3).
func (e *Engine) applyEdge(ctx context.Context, txStore *graphstore.Store, edge *graphstore.Edge, p *branchreg.Branch, branchedFrom, now time.Time) error {
	openedInWindow := !edge.ValidFrom.Before(branchedFrom) && !edge.ValidFrom.After(now)

	if !openedInWindow {
		if edge.ValidTo == nil {
			return nil
		}
		open, err := txStore.FindOpenEdgeOnBranch(ctx, edge.Label, edge.SrcID, p.ID)
		if err != nil {
			return err
		}
		if open == nil {
			return nil
		}
		return txStore.CloseEdge(ctx, open.ID, now)
	}

	if propertyLabels[graphstore.EdgeLabel(edge.Label)] {
		conflict, err := e.hasBaseDivergence(ctx, edge, p, branchedFrom)
		if err != nil {
			return err
		}
		if conflict {
			return e.conflictError(ctx, txStore, edge, p, branchedFrom)
		}
		if open, err := txStore.FindOpenEdgeOnBranch(ctx, edge.Label, edge.SrcID, p.ID); err != nil {
			return err
		} else if open != nil {
			if err := txStore.CloseEdge(ctx, open.ID, now); err != nil {
				return err
			}
		}
	}

	return txStore.AppendEdge(ctx, &graphstore.Edge{
		Label: edge.Label, SrcID: edge.SrcID, DstID: edge.DstID,
		BranchID: p.ID, BranchLevel: p.BranchLevel, Status: edge.Status,
		ValidFrom: now, Properties: edge.Properties,
	})
}

func (e *Engine) conflictError(ctx context.Context, txStore *graphstore.Store, edge *graphstore.Edge, p *branchreg.Branch, since time.Time) error {
	srcVertex, _ := txStore.GetVertex(ctx, edge.SrcID)
	attribute := edge.SrcID.String()
	if srcVertex != nil && srcVertex.Name != nil {
		attribute = *srcVertex.Name
	}

	branchValue, _ := txStore.GetVertex(ctx, edge.DstID)
	baseEdges, _ := txStore.AllEdges(ctx, edge.Label, edge.SrcID, []uuid.UUID{p.ID})
	var baseValue *graphstore.Vertex
	for _, be := range baseEdges {
		if be.ValidFrom.After(since) {
			baseValue, _ = txStore.GetVertex(ctx, be.DstID)
			break
		}
	}

	entity := edge.SrcID.String()
	if owner, err := txStore.OwnerOfAttribute(ctx, edge.SrcID, []uuid.UUID{p.ID, edge.BranchID}); err == nil {
		if v, err := txStore.GetVertex(ctx, owner); err == nil && v.EntityUUID != nil {
			entity = v.EntityUUID.String()
		}
	}

	return apperror.NewMergeConflict(entity, attribute, literalOf(branchValue), literalOf(baseValue))
}

func literalOf(v *graphstore.Vertex) any {
	if v == nil {
		return nil
	}
	if v.Name != nil {
		return *v.Name
	}
	return string(v.Literal)
}
