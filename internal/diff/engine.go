package diff

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/internal/timestamp"
	"github.com/branchgraph/branchgraph/pkg/tracing"
)

// Engine computes branch diffs (spec §4.6).
type Engine struct {
	store    *graphstore.Store
	branches *branchreg.Registry
	schemas  *schema.Cache

	mu     sync.Mutex
	vcache map[uuid.UUID]*graphstore.Vertex
}

// New builds a diff Engine.
func New(store *graphstore.Store, branches *branchreg.Registry, schemas *schema.Cache) *Engine {
	return &Engine{store: store, branches: branches, schemas: schemas, vcache: map[uuid.UUID]*graphstore.Vertex{}}
}

func (e *Engine) vertex(ctx context.Context, id uuid.UUID) (*graphstore.Vertex, error) {
	e.mu.Lock()
	if v, ok := e.vcache[id]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	v, err := e.store.GetVertex(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.vcache[id] = v
	e.mu.Unlock()
	return v, nil
}

var propertyLabels = map[graphstore.EdgeLabel]string{
	graphstore.EdgeHasValue:    "value",
	graphstore.EdgeIsVisible:   "is_visible",
	graphstore.EdgeIsProtected: "is_protected",
	graphstore.EdgeHasSource:   "source",
	graphstore.EdgeHasOwner:    "owner",
}

// Compute runs the full diff algorithm (spec §4.6) and returns the
// branch-name-keyed result the REST facade serves verbatim.
func (e *Engine) Compute(ctx context.Context, opts Options) (Result, error) {
	ctx, span := tracing.Start(ctx, "diff.compute", attribute.String("branchgraph.branch", opts.Branch))
	defer span.End()

	b, err := e.branches.Get(ctx, opts.Branch)
	if err != nil {
		return nil, err
	}

	from, to := opts.From, opts.To
	if from.IsZero() {
		from = b.BranchedFrom
	}
	if to.IsZero() {
		to = timestamp.Now()
	}

	scopeIDs := []uuid.UUID{b.ID}
	if !opts.BranchOnly {
		lineage, err := e.branches.Lineage(ctx, b)
		if err != nil {
			return nil, err
		}
		for _, anc := range lineage {
			scopeIDs = append(scopeIDs, anc.ID)
		}
	}

	var windowEdges []*graphstore.Edge
	for _, branchID := range scopeIDs {
		edges, err := e.store.EdgesInWindow(ctx, branchID, from, to)
		if err != nil {
			return nil, err
		}
		windowEdges = append(windowEdges, edges...)
	}

	partOfByNode := map[uuid.UUID][]*graphstore.Edge{}
	hasAttrByNode := map[uuid.UUID][]*graphstore.Edge{}
	relatedByNode := map[uuid.UUID][]*graphstore.Edge{}
	propByAttr := map[uuid.UUID]map[string][]*graphstore.Edge{}
	propByRel := map[uuid.UUID]map[string][]*graphstore.Edge{}

	for _, edge := range windowEdges {
		srcVertex, err := e.vertex(ctx, edge.SrcID)
		if err != nil {
			return nil, err
		}
		label := graphstore.EdgeLabel(edge.Label)

		switch srcVertex.Label {
		case string(graphstore.LabelNode):
			switch label {
			case graphstore.EdgeIsPartOf:
				partOfByNode[edge.SrcID] = append(partOfByNode[edge.SrcID], edge)
			case graphstore.EdgeHasAttribute:
				hasAttrByNode[edge.SrcID] = append(hasAttrByNode[edge.SrcID], edge)
			case graphstore.EdgeIsRelated:
				relatedByNode[edge.SrcID] = append(relatedByNode[edge.SrcID], edge)
			}
		case string(graphstore.LabelAttribute):
			if prop, ok := propertyLabels[label]; ok {
				m := propByAttr[edge.SrcID]
				if m == nil {
					m = map[string][]*graphstore.Edge{}
					propByAttr[edge.SrcID] = m
				}
				m[prop] = append(m[prop], edge)
			}
		case string(graphstore.LabelRelationship):
			if prop, ok := propertyLabels[label]; ok {
				m := propByRel[edge.SrcID]
				if m == nil {
					m = map[string][]*graphstore.Edge{}
					propByRel[edge.SrcID] = m
				}
				m[prop] = append(m[prop], edge)
			}
		}
	}

	nodeIDs := map[uuid.UUID]struct{}{}
	for id := range partOfByNode {
		nodeIDs[id] = struct{}{}
	}
	for id := range hasAttrByNode {
		nodeIDs[id] = struct{}{}
	}
	for id := range relatedByNode {
		nodeIDs[id] = struct{}{}
	}
	// Attribute-value-only changes (HAS_VALUE updated, HAS_ATTRIBUTE
	// untouched) still need their owning node pulled into scope.
	for attrID := range propByAttr {
		owner, err := e.store.OwnerOfAttribute(ctx, attrID, scopeIDs)
		if err != nil {
			continue
		}
		nodeIDs[owner] = struct{}{}
	}

	result := Result{}
	var resultMu sync.Mutex
	ids := make([]uuid.UUID, 0, len(nodeIDs))
	for id := range nodeIDs {
		ids = append(ids, id)
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, nodeID := range ids {
		nodeID := nodeID
		group.Go(func() error {
			nd, branchName, err := e.diffNode(gctx, nodeID, scopeIDs, b, from, to,
				partOfByNode[nodeID], hasAttrByNode[nodeID], relatedByNode[nodeID], propByAttr, propByRel)
			if err != nil {
				return err
			}
			if nd == nil {
				return nil
			}
			resultMu.Lock()
			result[branchName] = append(result[branchName], nd)
			resultMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Step 5 + the §9 bug fix: relationship-only-touched peer nodes, keyed
	// under the IS_RELATED edge's own branch rather than `b`.
	if err := e.addRelationshipOnlyPeers(ctx, result, &resultMu, nodeIDs, relatedByNode, propByRel, scopeIDs, from, to); err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Engine) diffNode(
	ctx context.Context,
	nodeID uuid.UUID,
	scopeIDs []uuid.UUID,
	b *branchreg.Branch,
	from, to time.Time,
	partOf, hasAttr, related []*graphstore.Edge,
	propByAttr, propByRel map[uuid.UUID]map[string][]*graphstore.Edge,
) (*NodeDiff, string, error) {
	nodeVertex, err := e.vertex(ctx, nodeID)
	if err != nil {
		return nil, "", err
	}

	fullPartOf, err := e.store.AllEdges(ctx, string(graphstore.EdgeIsPartOf), nodeID, scopeIDs)
	if err != nil {
		return nil, "", err
	}
	action := NodeAction(fullPartOf, from, to)

	nd := &NodeDiff{Branch: b.Name, Kind: "", Action: action, ChangedAt: latestFrom(partOf)}
	if nodeVertex.Kind != nil {
		nd.Kind = *nodeVertex.Kind
	}
	if nodeVertex.EntityUUID != nil {
		nd.ID = *nodeVertex.EntityUUID
	}

	attrIDs := map[uuid.UUID]struct{}{}
	for _, e := range hasAttr {
		attrIDs[e.DstID] = struct{}{}
	}
	for attrID := range propByAttr {
		owner, err := e.ownerCache(ctx, attrID, scopeIDs)
		if err == nil && owner == nodeID {
			attrIDs[attrID] = struct{}{}
		}
	}
	for attrID := range attrIDs {
		ad, err := e.diffAttribute(ctx, attrID, propByAttr[attrID], from, to)
		if err != nil {
			return nil, "", err
		}
		nd.Attributes = append(nd.Attributes, ad)
	}

	for _, edge := range related {
		rd, err := e.diffRelationship(ctx, edge.DstID, nodeID, propByRel[edge.DstID], b.Name, scopeIDs, from, to)
		if err != nil {
			return nil, "", err
		}
		nd.Relationships = append(nd.Relationships, rd)
	}

	return nd, b.Name, nil
}

// ownerCache is a thin wrapper kept as a method purely so diffNode can call
// it without threading the store through every helper signature.
func (e *Engine) ownerCache(ctx context.Context, attrID uuid.UUID, scopeIDs []uuid.UUID) (uuid.UUID, error) {
	return e.store.OwnerOfAttribute(ctx, attrID, scopeIDs)
}

func (e *Engine) diffAttribute(ctx context.Context, attrID uuid.UUID, props map[string][]*graphstore.Edge, from, to time.Time) (AttributeDiff, error) {
	attrVertex, err := e.vertex(ctx, attrID)
	if err != nil {
		return AttributeDiff{}, err
	}
	ad := AttributeDiff{ID: attrID}
	if attrVertex.Name != nil {
		ad.Name = *attrVertex.Name
	}

	var latest time.Time
	for prop, edges := range props {
		transitions := PairTransitions(edges, from, to)
		for _, t := range transitions {
			pd, err := e.toPropertyDiff(ctx, prop, t)
			if err != nil {
				return AttributeDiff{}, err
			}
			ad.Properties = append(ad.Properties, pd)
			if t.ChangedAt.After(latest) {
				latest = t.ChangedAt
			}
		}
	}
	ad.ChangedAt = latest
	ad.Action = ActionUpdated
	if len(ad.Properties) > 0 {
		ad.Action = ad.Properties[0].Action
	}
	return ad, nil
}

func (e *Engine) diffRelationship(ctx context.Context, relID, ownerNodeID uuid.UUID, props map[string][]*graphstore.Edge, branchName string, scopeIDs []uuid.UUID, from, to time.Time) (RelationshipDiff, error) {
	relVertex, err := e.vertex(ctx, relID)
	if err != nil {
		return RelationshipDiff{}, err
	}
	rd := RelationshipDiff{Branch: branchName, ID: relID, Action: ActionUpdated}
	if relVertex.Name != nil {
		rd.Identifier = *relVertex.Name
		rd.Name = *relVertex.Name
	}

	peerID, err := e.otherEndpoint(ctx, relID, ownerNodeID, scopeIDs)
	if err == nil && peerID != uuid.Nil {
		peerVertex, err := e.vertex(ctx, peerID)
		if err == nil {
			if peerVertex.Kind != nil {
				rd.Peer.Kind = *peerVertex.Kind
			}
			if peerVertex.EntityUUID != nil {
				rd.Peer.ID = *peerVertex.EntityUUID
			}
		}
	}

	var latest time.Time
	for prop, edges := range props {
		transitions := PairTransitions(edges, from, to)
		for _, t := range transitions {
			pd, err := e.toPropertyDiff(ctx, prop, t)
			if err != nil {
				return RelationshipDiff{}, err
			}
			rd.Properties = append(rd.Properties, pd)
			if t.ChangedAt.After(latest) {
				latest = t.ChangedAt
			}
		}
	}
	rd.ChangedAt = latest
	return rd, nil
}

// otherEndpoint locates the peer Node of a Relationship vertex, excluding
// the owner side, by walking IS_RELATED edges backwards into relID.
func (e *Engine) otherEndpoint(ctx context.Context, relID, excludeNodeID uuid.UUID, scopeIDs []uuid.UUID) (uuid.UUID, error) {
	incoming, err := e.store.AllEdgesByDst(ctx, string(graphstore.EdgeIsRelated), relID, scopeIDs)
	if err != nil {
		return uuid.Nil, err
	}
	for _, edge := range incoming {
		if edge.SrcID != excludeNodeID {
			return edge.SrcID, nil
		}
	}
	return uuid.Nil, nil
}

func (e *Engine) toPropertyDiff(ctx context.Context, prop string, t Transition) (PropertyDiff, error) {
	pd := PropertyDiff{Property: prop, ChangedAt: t.ChangedAt, Action: t.Action, Branch: ""}
	if t.New != nil {
		pd.Branch = t.New.BranchID.String()
		v, err := e.resolveEdgeValue(ctx, t.New)
		if err != nil {
			return PropertyDiff{}, err
		}
		pd.Value.New = v
	}
	if t.Previous != nil {
		v, err := e.resolveEdgeValue(ctx, t.Previous)
		if err != nil {
			return PropertyDiff{}, err
		}
		pd.Value.Previous = v
	}
	return pd, nil
}

// resolveEdgeValue renders an edge's target vertex as the JSON-friendly
// value it represents: a literal for AttributeValue, a bool for Boolean, an
// entity uuid for Node (source/owner provenance edges).
func (e *Engine) resolveEdgeValue(ctx context.Context, edge *graphstore.Edge) (any, error) {
	target, err := e.vertex(ctx, edge.DstID)
	if err != nil {
		return nil, err
	}
	switch target.Label {
	case string(graphstore.LabelBoolean):
		if len(target.Literal) == 0 {
			return false, nil
		}
		var b bool
		if err := json.Unmarshal(target.Literal, &b); err != nil {
			return nil, err
		}
		return b, nil
	case string(graphstore.LabelNode):
		if target.EntityUUID != nil {
			return target.EntityUUID.String(), nil
		}
		return nil, nil
	default:
		if len(target.Literal) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(target.Literal, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func latestFrom(edges []*graphstore.Edge) time.Time {
	var latest time.Time
	for _, e := range edges {
		if e.ValidFrom.After(latest) {
			latest = e.ValidFrom
		}
	}
	return latest
}

// addRelationshipOnlyPeers implements spec §4.6 step 5 and the §9 fix: a
// node whose own attributes didn't change, but that is the *other* endpoint
// of a relationship touched in-window, gets an UPDATED entry with no
// attributes — keyed under the specific IS_RELATED edge's own branch, never
// under a stale loop variable from the primary pass.
func (e *Engine) addRelationshipOnlyPeers(
	ctx context.Context,
	result Result,
	resultMu *sync.Mutex,
	alreadyTouched map[uuid.UUID]struct{},
	relatedByNode map[uuid.UUID][]*graphstore.Edge,
	propByRel map[uuid.UUID]map[string][]*graphstore.Edge,
	scopeIDs []uuid.UUID,
	from, to time.Time,
) error {
	touchedRelIDs := map[uuid.UUID][]*graphstore.Edge{} // relID -> the IS_RELATED edges surfacing it
	for _, edges := range relatedByNode {
		for _, edge := range edges {
			touchedRelIDs[edge.DstID] = append(touchedRelIDs[edge.DstID], edge)
		}
	}
	for relID := range propByRel {
		if _, ok := touchedRelIDs[relID]; !ok {
			incoming, err := e.store.AllEdgesByDst(ctx, string(graphstore.EdgeIsRelated), relID, scopeIDs)
			if err != nil {
				return err
			}
			touchedRelIDs[relID] = incoming
		}
	}

	for relID, surfacingEdges := range touchedRelIDs {
		for _, surfacing := range surfacingEdges {
			peerNodeID := surfacing.SrcID
			if _, done := alreadyTouched[peerNodeID]; done {
				continue
			}

			branch, err := e.branches.GetByID(ctx, surfacing.BranchID)
			if err != nil {
				continue
			}

			rd, err := e.diffRelationship(ctx, relID, peerNodeID, propByRel[relID], branch.Name, scopeIDs, from, to)
			if err != nil {
				return err
			}

			peerVertex, err := e.vertex(ctx, peerNodeID)
			if err != nil {
				return err
			}
			nd := &NodeDiff{Branch: branch.Name, Action: ActionUpdated, Relationships: []RelationshipDiff{rd}}
			if peerVertex.Kind != nil {
				nd.Kind = *peerVertex.Kind
			}
			if peerVertex.EntityUUID != nil {
				nd.ID = *peerVertex.EntityUUID
			}

			resultMu.Lock()
			result[branch.Name] = append(result[branch.Name], nd)
			resultMu.Unlock()

			alreadyTouched[peerNodeID] = struct{}{}
		}
	}
	return nil
}
