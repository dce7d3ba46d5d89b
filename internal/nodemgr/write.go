package nodemgr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/query"
	"github.com/branchgraph/branchgraph/internal/timestamp"
	"github.com/branchgraph/branchgraph/pkg/apperror"
)

// Builder accumulates a new entity's fields before Save persists them — the
// `init(kind, branch) -> builder; new(**fields); save()` flow of spec §4.5.
type Builder struct {
	mgr    *Manager
	kind   string
	branch string

	attributes    []AttributeInput
	relationships []RelationshipInput
}

// Init starts building a new entity of kind on branch.
func (m *Manager) Init(kind, branch string) *Builder {
	return &Builder{mgr: m, kind: kind, branch: branch}
}

// New adds attribute and relationship assignments to the builder.
func (b *Builder) New(attrs []AttributeInput, rels []RelationshipInput) *Builder {
	b.attributes = append(b.attributes, attrs...)
	b.relationships = append(b.relationships, rels...)
	return b
}

// Save persists the builder's accumulated fields as a new entity (spec
// §4.5's write algorithm, steps 1-4): fresh uuid, IS_PART_OF to Root,
// HAS_ATTRIBUTE/HAS_VALUE/flag edges per attribute, IS_RELATED pairs per
// relationship.
func (b *Builder) Save(ctx context.Context) (uuid.UUID, error) {
	if err := b.mgr.validateKind(b.kind); err != nil {
		return uuid.Nil, err
	}

	branch, lineage, err := b.mgr.lineageIDs(ctx, b.branch)
	if err != nil {
		return uuid.Nil, err
	}

	if err := graphstore.AcquireBranchWriteLock(ctx, b.mgr.db, branch.Name); err != nil {
		return uuid.Nil, err
	}

	at := timestamp.Now()
	entityID := uuid.New()

	node := &graphstore.Vertex{Label: string(graphstore.LabelNode), EntityUUID: &entityID, Kind: &b.kind}
	if err := b.mgr.store.CreateVertex(ctx, node); err != nil {
		return uuid.Nil, fmt.Errorf("create node vertex: %w", err)
	}

	root, err := b.mgr.store.GetRoot(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if err := b.mgr.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeIsPartOf), SrcID: node.ID, DstID: root.ID,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive),
		ValidFrom: at,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("open IS_PART_OF edge: %w", err)
	}

	for _, a := range b.attributes {
		if err := b.mgr.writeAttribute(ctx, branch, node.ID, at, a); err != nil {
			return uuid.Nil, err
		}
	}
	for _, r := range b.relationships {
		if err := b.mgr.writeRelationship(ctx, branch, lineage, node.ID, entityID, at, r); err != nil {
			return uuid.Nil, err
		}
	}

	return entityID, nil
}

func (m *Manager) writeAttribute(ctx context.Context, branch *branchreg.Branch, nodeID uuid.UUID, at time.Time, a AttributeInput) error {
	attrUUID := uuid.New()
	attrVertex := &graphstore.Vertex{
		Label: string(graphstore.LabelAttribute), EntityUUID: &attrUUID, Name: &a.Name, ValueType: &a.Type,
	}
	if err := m.store.CreateVertex(ctx, attrVertex); err != nil {
		return fmt.Errorf("create attribute vertex: %w", err)
	}
	if err := m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeHasAttribute), SrcID: nodeID, DstID: attrVertex.ID,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
	}); err != nil {
		return fmt.Errorf("open HAS_ATTRIBUTE edge: %w", err)
	}

	valueVertex, err := m.store.FindOrCreateLiteral(ctx, string(graphstore.LabelAttributeValue), a.Type, a.Value)
	if err != nil {
		return fmt.Errorf("find-or-create attribute value: %w", err)
	}
	if err := m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeHasValue), SrcID: attrVertex.ID, DstID: valueVertex.ID,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
	}); err != nil {
		return fmt.Errorf("open HAS_VALUE edge: %w", err)
	}

	if err := m.writeFlags(ctx, branch, attrVertex.ID, at, a.Visible, a.Protected); err != nil {
		return err
	}
	return m.writeProvenance(ctx, branch, attrVertex.ID, at, a.Source, a.Owner)
}

func (m *Manager) writeRelationship(ctx context.Context, branch *branchreg.Branch, lineage []uuid.UUID, nodeID, entityID uuid.UUID, at time.Time, r RelationshipInput) error {
	peerVertex, err := m.store.GetVertexByEntityUUID(ctx, string(graphstore.LabelNode), r.PeerID)
	if err != nil {
		return err
	}

	partOf, err := m.store.CandidateEdges(ctx, string(graphstore.EdgeIsPartOf), peerVertex.ID, lineage, at)
	if err != nil {
		return err
	}
	if !query.Visible(query.Winner(partOf)) {
		return apperror.NewNotFound("Node", r.PeerID.String())
	}

	relUUID := uuid.New()
	relVertex := &graphstore.Vertex{Label: string(graphstore.LabelRelationship), EntityUUID: &relUUID, Name: &r.Identifier}
	if err := m.store.CreateVertex(ctx, relVertex); err != nil {
		return fmt.Errorf("create relationship vertex: %w", err)
	}

	for _, endpoint := range []uuid.UUID{nodeID, peerVertex.ID} {
		if err := m.store.AppendEdge(ctx, &graphstore.Edge{
			Label: string(graphstore.EdgeIsRelated), SrcID: endpoint, DstID: relVertex.ID,
			BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
		}); err != nil {
			return fmt.Errorf("open IS_RELATED edge: %w", err)
		}
	}

	return m.writeFlags(ctx, branch, relVertex.ID, at, r.Visible, r.Protected)
}

func (m *Manager) writeFlags(ctx context.Context, branch *branchreg.Branch, srcID uuid.UUID, at time.Time, visible, protected bool) error {
	trueVertex, err := m.store.FindOrCreateLiteral(ctx, string(graphstore.LabelBoolean), "bool", true)
	if err != nil {
		return err
	}
	falseVertex, err := m.store.FindOrCreateLiteral(ctx, string(graphstore.LabelBoolean), "bool", false)
	if err != nil {
		return err
	}

	visibleTarget := falseVertex.ID
	if visible {
		visibleTarget = trueVertex.ID
	}
	if err := m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeIsVisible), SrcID: srcID, DstID: visibleTarget,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
	}); err != nil {
		return fmt.Errorf("open IS_VISIBLE edge: %w", err)
	}

	protectedTarget := falseVertex.ID
	if protected {
		protectedTarget = trueVertex.ID
	}
	if err := m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeIsProtected), SrcID: srcID, DstID: protectedTarget,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
	}); err != nil {
		return fmt.Errorf("open IS_PROTECTED edge: %w", err)
	}
	return nil
}

func (m *Manager) writeProvenance(ctx context.Context, branch *branchreg.Branch, srcID uuid.UUID, at time.Time, source, owner *uuid.UUID) error {
	if source != nil {
		if err := m.appendProvenanceEdge(ctx, branch, graphstore.EdgeHasSource, srcID, *source, at); err != nil {
			return err
		}
	}
	if owner != nil {
		if err := m.appendProvenanceEdge(ctx, branch, graphstore.EdgeHasOwner, srcID, *owner, at); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) appendProvenanceEdge(ctx context.Context, branch *branchreg.Branch, label graphstore.EdgeLabel, srcID, targetEntityID uuid.UUID, at time.Time) error {
	targetVertex, err := m.store.GetVertexByEntityUUID(ctx, string(graphstore.LabelNode), targetEntityID)
	if err != nil {
		return err
	}
	return m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(label), SrcID: srcID, DstID: targetVertex.ID,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
	})
}

// UpdateAttribute implements spec §4.5's update algorithm: the current
// HAS_VALUE edge is closed (`to = t`) and a new one opened to the
// content-addressed AttributeValue for the new literal. Writes on branch b
// only — parent history is untouched.
func (m *Manager) UpdateAttribute(ctx context.Context, entityID uuid.UUID, attrName string, newValue any, valueType, branchName string) error {
	branch, lineage, err := m.lineageIDs(ctx, branchName)
	if err != nil {
		return err
	}
	if err := graphstore.AcquireBranchWriteLock(ctx, m.db, branch.Name); err != nil {
		return err
	}

	node, err := m.store.GetVertexByEntityUUID(ctx, string(graphstore.LabelNode), entityID)
	if err != nil {
		return err
	}
	at := timestamp.Now()

	hasAttr, err := m.store.CandidateEdges(ctx, string(graphstore.EdgeHasAttribute), node.ID, lineage, at)
	if err != nil {
		return err
	}
	var attrVertexID uuid.UUID
	found := false
	for dst, winner := range query.WinnersByDst(hasAttr) {
		if !query.Visible(winner) {
			continue
		}
		v, err := m.store.GetVertex(ctx, uuid.UUID(dst))
		if err != nil {
			return err
		}
		if v.Name != nil && *v.Name == attrName {
			attrVertexID = v.ID
			found = true
			break
		}
	}
	if !found {
		return apperror.NewNotFound("Attribute", attrName)
	}

	newLiteral, err := m.store.FindOrCreateLiteral(ctx, string(graphstore.LabelAttributeValue), valueType, newValue)
	if err != nil {
		return err
	}

	if open, err := m.store.FindOpenEdgeOnBranch(ctx, string(graphstore.EdgeHasValue), attrVertexID, branch.ID); err != nil {
		return err
	} else if open != nil {
		if err := m.store.CloseEdge(ctx, open.ID, at); err != nil {
			return err
		}
	}

	return m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeHasValue), SrcID: attrVertexID, DstID: newLiteral.ID,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusActive), ValidFrom: at,
	})
}

// DeleteEntity tombstones the entity on branchName: a sibling IS_PART_OF
// edge with status=deleted and from=t (spec §4.5's delete algorithm).
// Attribute and relationship edges are not tombstoned, here or by any
// caller in this repository — DeleteEntity only tombstones the
// entity's own existence edge, mirroring spec §3 invariant 2's "Existence
// at (b,t) is derived, never stored as a flag."
func (m *Manager) DeleteEntity(ctx context.Context, entityID uuid.UUID, branchName string) error {
	branch, _, err := m.lineageIDs(ctx, branchName)
	if err != nil {
		return err
	}
	if err := graphstore.AcquireBranchWriteLock(ctx, m.db, branch.Name); err != nil {
		return err
	}

	node, err := m.store.GetVertexByEntityUUID(ctx, string(graphstore.LabelNode), entityID)
	if err != nil {
		return err
	}
	root, err := m.store.GetRoot(ctx)
	if err != nil {
		return err
	}
	at := timestamp.Now()
	return m.store.AppendEdge(ctx, &graphstore.Edge{
		Label: string(graphstore.EdgeIsPartOf), SrcID: node.ID, DstID: root.ID,
		BranchID: branch.ID, BranchLevel: branch.BranchLevel, Status: string(graphstore.StatusDeleted), ValidFrom: at,
	})
}
