package nodemgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/query"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/internal/timestamp"
	"github.com/branchgraph/branchgraph/pkg/apperror"
)

// Manager is the Node Manager (spec §4.5). It owns no persistence of its
// own — it composes the Branch Registry, Schema Cache, and graph Store.
type Manager struct {
	db       bun.IDB
	store    *graphstore.Store
	branches *branchreg.Registry
	schemas  *schema.Cache
}

// New builds a Manager.
func New(db bun.IDB, store *graphstore.Store, branches *branchreg.Registry, schemas *schema.Cache) *Manager {
	return &Manager{db: db, store: store, branches: branches, schemas: schemas}
}

// lineageIDs resolves the branch name to its lineage, nearest-first,
// including the branch itself — the set spec §4.1 calls lineage(q_branch).
func (m *Manager) lineageIDs(ctx context.Context, branchName string) (*branchreg.Branch, []uuid.UUID, error) {
	b, err := m.branches.Get(ctx, branchName)
	if err != nil {
		return nil, nil, err
	}
	lineage, err := m.branches.Lineage(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, 0, len(lineage)+1)
	ids = append(ids, b.ID)
	for _, anc := range lineage {
		ids = append(ids, anc.ID)
	}
	return b, ids, nil
}

// GetOne resolves one entity at (branch, at) (spec §4.5). Fails NotFound if
// no active IS_PART_OF edge is visible.
func (m *Manager) GetOne(ctx context.Context, id uuid.UUID, opts QueryOptions) (*Entity, error) {
	at := opts.At
	if at.IsZero() {
		at = timestamp.Now()
	}
	_, lineage, err := m.lineageIDs(ctx, opts.Branch)
	if err != nil {
		return nil, err
	}

	node, err := m.store.GetVertexByEntityUUID(ctx, string(graphstore.LabelNode), id)
	if err != nil {
		return nil, err
	}

	partOf, err := m.store.CandidateEdges(ctx, string(graphstore.EdgeIsPartOf), node.ID, lineage, at)
	if err != nil {
		return nil, err
	}
	winner := query.Winner(partOf)
	if !query.Visible(winner) {
		return nil, apperror.NewNotFound("Node", id.String())
	}

	entity := &Entity{UUID: id, Attributes: map[string]AttributeValue{}, Relationships: map[string][]uuid.UUID{}}
	if node.Kind != nil {
		entity.Kind = *node.Kind
	}

	if err := m.resolveAttributes(ctx, node.ID, lineage, at, opts.IncludeSource, entity); err != nil {
		return nil, err
	}
	if err := m.resolveRelationships(ctx, node.ID, lineage, at, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// GetMany is the batched variant of GetOne.
func (m *Manager) GetMany(ctx context.Context, ids []uuid.UUID, opts QueryOptions) ([]*Entity, error) {
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		e, err := m.GetOne(ctx, id, opts)
		if err != nil {
			if ae, ok := err.(*apperror.Error); ok && ae.Code == apperror.ErrNotFound.Code {
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Manager) resolveAttributes(ctx context.Context, nodeID uuid.UUID, lineage []uuid.UUID, at time.Time, includeSource bool, entity *Entity) error {
	hasAttr, err := m.store.CandidateEdges(ctx, string(graphstore.EdgeHasAttribute), nodeID, lineage, at)
	if err != nil {
		return err
	}
	for dst, winner := range query.WinnersByDst(hasAttr) {
		if !query.Visible(winner) {
			continue
		}
		attrVertex, err := m.store.GetVertex(ctx, uuid.UUID(dst))
		if err != nil {
			return err
		}

		hasValue, err := m.store.CandidateEdges(ctx, string(graphstore.EdgeHasValue), attrVertex.ID, lineage, at)
		if err != nil {
			return err
		}
		valueWinner := query.Winner(hasValue)
		if !query.Visible(valueWinner) {
			continue
		}
		valueVertex, err := m.store.GetVertex(ctx, valueWinner.DstID)
		if err != nil {
			return err
		}

		var decoded any
		if len(valueVertex.Literal) > 0 {
			if err := json.Unmarshal(valueVertex.Literal, &decoded); err != nil {
				return err
			}
		}
		av := AttributeValue{UUID: attrVertex.ID, Value: decoded}
		if attrVertex.ValueType != nil {
			av.Type = *attrVertex.ValueType
		}
		av.Visible = m.flagValue(ctx, graphstore.EdgeIsVisible, attrVertex.ID, lineage, at)
		av.Protected = m.flagValue(ctx, graphstore.EdgeIsProtected, attrVertex.ID, lineage, at)
		if includeSource {
			av.Source = m.provenance(ctx, graphstore.EdgeHasSource, attrVertex.ID, lineage, at)
			av.Owner = m.provenance(ctx, graphstore.EdgeHasOwner, attrVertex.ID, lineage, at)
		}

		name := ""
		if attrVertex.Name != nil {
			name = *attrVertex.Name
		}
		entity.Attributes[name] = av
	}
	return nil
}

func (m *Manager) resolveRelationships(ctx context.Context, nodeID uuid.UUID, lineage []uuid.UUID, at time.Time, entity *Entity) error {
	related, err := m.store.CandidateEdges(ctx, string(graphstore.EdgeIsRelated), nodeID, lineage, at)
	if err != nil {
		return err
	}
	for dst, winner := range query.WinnersByDst(related) {
		if !query.Visible(winner) {
			continue
		}
		relVertex, err := m.store.GetVertex(ctx, uuid.UUID(dst))
		if err != nil {
			return err
		}
		name := ""
		if relVertex.Name != nil {
			name = *relVertex.Name
		}
		peer, err := m.peerOf(ctx, relVertex.ID, nodeID, lineage, at)
		if err != nil {
			return err
		}
		if peer != nil {
			entity.Relationships[name] = append(entity.Relationships[name], *peer)
		}
	}
	return nil
}

// peerOf finds the other IS_RELATED endpoint pointed at relVertexID, besides
// excludeNodeID (spec §3: both endpoints point at the relationship
// instance, so the peer is found by walking the edge backwards from the
// Relationship vertex).
func (m *Manager) peerOf(ctx context.Context, relVertexID, excludeNodeID uuid.UUID, lineage []uuid.UUID, at time.Time) (*uuid.UUID, error) {
	incoming, err := m.store.EdgesByDst(ctx, string(graphstore.EdgeIsRelated), relVertexID, lineage, at)
	if err != nil {
		return nil, err
	}
	groups := make(map[uuid.UUID][]*graphstore.Edge)
	for _, e := range incoming {
		groups[e.SrcID] = append(groups[e.SrcID], e)
	}
	for src, g := range groups {
		if src == excludeNodeID {
			continue
		}
		winner := query.Winner(g)
		if !query.Visible(winner) {
			continue
		}
		srcVertex, err := m.store.GetVertex(ctx, src)
		if err != nil {
			return nil, err
		}
		if srcVertex.EntityUUID != nil {
			id := *srcVertex.EntityUUID
			return &id, nil
		}
	}
	return nil, nil
}

func (m *Manager) flagValue(ctx context.Context, label graphstore.EdgeLabel, srcID uuid.UUID, lineage []uuid.UUID, at time.Time) bool {
	edges, err := m.store.CandidateEdges(ctx, string(label), srcID, lineage, at)
	if err != nil {
		return false
	}
	winner := query.Winner(edges)
	if !query.Visible(winner) {
		return false
	}
	boolVertex, err := m.store.GetVertex(ctx, winner.DstID)
	if err != nil || len(boolVertex.Literal) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(boolVertex.Literal, &b); err != nil {
		return false
	}
	return b
}

func (m *Manager) provenance(ctx context.Context, label graphstore.EdgeLabel, srcID uuid.UUID, lineage []uuid.UUID, at time.Time) *uuid.UUID {
	edges, err := m.store.CandidateEdges(ctx, string(label), srcID, lineage, at)
	if err != nil {
		return nil
	}
	winner := query.Winner(edges)
	if !query.Visible(winner) {
		return nil
	}
	targetVertex, err := m.store.GetVertex(ctx, winner.DstID)
	if err != nil || targetVertex.EntityUUID == nil {
		return nil
	}
	id := *targetVertex.EntityUUID
	return &id
}

// validateKind fails SchemaMismatch if kind isn't registered (spec §4.3).
func (m *Manager) validateKind(kind string) error {
	if _, err := m.schemas.Kind(kind); err != nil {
		return err
	}
	return nil
}
