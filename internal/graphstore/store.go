package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/branchgraph/branchgraph/pkg/apperror"
	"github.com/branchgraph/branchgraph/pkg/metrics"
	"github.com/branchgraph/branchgraph/pkg/pgutils"
)

// Store is the persistence layer over kb.graph_vertices / kb.graph_edges,
// grounded on the teacher's domain/graph/repository.go (CreateVersion,
// GetEdges, transactional upsert patterns) but addressed at a generic
// vertex/edge schema rather than a fixed set of domain tables.
type Store struct {
	db bun.IDB
}

// NewStore builds a Store over db (a *bun.DB or an in-flight *bun.Tx).
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to tx, for callers composing multiple stores
// inside one transaction (mirrors branchreg.Store.WithTx).
func (s *Store) WithTx(tx bun.IDB) *Store {
	return &Store{db: tx}
}

// CreateVertex inserts v, assigning an ID if unset.
func (s *Store) CreateVertex(ctx context.Context, v *Vertex) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := s.db.NewInsert().Model(v).Exec(ctx)
	return err
}

// GetVertex fetches a vertex by its primary key.
func (s *Store) GetVertex(ctx context.Context, id uuid.UUID) (*Vertex, error) {
	v := new(Vertex)
	if err := s.db.NewSelect().Model(v).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("vertex", id.String())
		}
		return nil, err
	}
	return v, nil
}

// GetVertexByEntityUUID fetches the Node/Attribute/Relationship vertex
// carrying the given stable entity identity.
func (s *Store) GetVertexByEntityUUID(ctx context.Context, label string, entityUUID uuid.UUID) (*Vertex, error) {
	v := new(Vertex)
	err := s.db.NewSelect().Model(v).
		Where("label = ?", label).
		Where("entity_uuid = ?", entityUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound(label, entityUUID.String())
		}
		return nil, err
	}
	return v, nil
}

// GetRoot returns the singleton Root vertex seeded by the init migration.
func (s *Store) GetRoot(ctx context.Context) (*Vertex, error) {
	v := new(Vertex)
	if err := s.db.NewSelect().Model(v).Where("label = ?", string(LabelRoot)).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrFatal.WithMessage("root vertex missing; migrations not applied")
		}
		return nil, err
	}
	return v, nil
}

// FindOrCreateLiteral returns the content-addressed AttributeValue/Boolean
// vertex for (valueType, literal), inserting it on first use (spec §3
// invariant 3: "identical literal values are represented by one shared
// AttributeValue vertex"). Races are resolved by retrying the lookup after a
// unique-violation, the same pattern the teacher uses for idempotent lookup
// tables (pkg/pgutils IsUniqueViolation).
func (s *Store) FindOrCreateLiteral(ctx context.Context, label string, valueType string, literal any) (*Vertex, error) {
	raw, err := json.Marshal(literal)
	if err != nil {
		return nil, fmt.Errorf("marshal literal: %w", err)
	}

	existing := new(Vertex)
	err = s.db.NewSelect().Model(existing).
		Where("label = ?", label).
		Where("value_type = ?", valueType).
		Where("literal = ?", string(raw)).
		Scan(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	v := &Vertex{
		ID:        uuid.New(),
		Label:     label,
		ValueType: &valueType,
		Literal:   raw,
	}
	if _, err := s.db.NewInsert().Model(v).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		if pgutils.IsUniqueViolation(err) {
			return s.FindOrCreateLiteral(ctx, label, valueType, literal)
		}
		return nil, err
	}

	// ON CONFLICT DO NOTHING silently no-ops on a concurrent winner; re-select
	// to pick up whichever row actually landed.
	if err := s.db.NewSelect().Model(v).
		Where("label = ?", label).
		Where("value_type = ?", valueType).
		Where("literal = ?", string(raw)).
		Scan(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// AppendEdge inserts a brand-new edge row: used both to open a fresh edge
// and to append a tombstone sibling (spec §3 invariant 2 — delete adds a
// sibling edge with status=deleted rather than mutating the original).
func (s *Store) AppendEdge(ctx context.Context, e *Edge) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = string(StatusActive)
	}
	start := time.Now()
	defer metrics.StoreOpLatency(ctx, "append_edge", start)
	return WithRetry(ctx, func() error {
		_, err := s.db.NewInsert().Model(e).Exec(ctx)
		if err == nil {
			return nil
		}
		if pgutils.IsConnectionFailure(err) {
			return apperror.ErrTransient.WithInternal(err)
		}
		return err
	})
}

// CloseEdge sets valid_to on an open edge (spec §4.5: updating an attribute
// value closes the current HAS_VALUE edge before opening a new one).
func (s *Store) CloseEdge(ctx context.Context, edgeID uuid.UUID, to time.Time) error {
	_, err := s.db.NewUpdate().Model((*Edge)(nil)).
		Set("valid_to = ?", to).
		Where("id = ?", edgeID).
		Where("valid_to IS NULL").
		Exec(ctx)
	return err
}

// FindOpenEdgeOnBranch returns the edge of `label` from `srcID` that is
// currently open (valid_to IS NULL) and owned by branchID specifically —
// not inherited from an ancestor — since only the branch's own open edge
// needs closing when that branch writes a new value (spec §4.5).
func (s *Store) FindOpenEdgeOnBranch(ctx context.Context, label string, srcID, branchID uuid.UUID) (*Edge, error) {
	e := new(Edge)
	err := s.db.NewSelect().Model(e).
		Where("label = ?", label).
		Where("src_id = ?", srcID).
		Where("branch_id = ?", branchID).
		Where("status = ?", string(StatusActive)).
		Where("valid_to IS NULL").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// CandidateEdges returns every edge of `label` out of `srcID` visible on any
// branch in `lineage`, whose [from,to) window contains `at`. The Query Layer
// (internal/query) performs precedence ranking over the result; this method
// only narrows by SQL-cheap predicates.
func (s *Store) CandidateEdges(ctx context.Context, label string, srcID uuid.UUID, lineage []uuid.UUID, at time.Time) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.NewSelect().Model(&edges).
		Where("label = ?", label).
		Where("src_id = ?", srcID).
		Where("branch_id IN (?)", bun.In(lineage)).
		Where("valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to > ?", at).
		Scan(ctx)
	return edges, err
}

// EdgesInWindow returns every edge on branchID whose open or close time
// falls in [winFrom, winTo] — the Diff Engine's raw-change feed (spec §4.6).
func (s *Store) EdgesInWindow(ctx context.Context, branchID uuid.UUID, winFrom, winTo time.Time) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.NewSelect().Model(&edges).
		Where("branch_id = ?", branchID).
		Where("(valid_from BETWEEN ? AND ?) OR (valid_to BETWEEN ? AND ?)", winFrom, winTo, winFrom, winTo).
		Order("valid_from ASC").
		Scan(ctx)
	return edges, err
}

// AllEdges returns the complete history of `label` edges out of srcID
// restricted to branchIDs, regardless of time — the Diff Engine uses this
// to tell "first edge ever" (ADDED) apart from "update after a predecessor
// outside the window" (UPDATED), which CandidateEdges' time-boxing can't do.
func (s *Store) AllEdges(ctx context.Context, label string, srcID uuid.UUID, branchIDs []uuid.UUID) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.NewSelect().Model(&edges).
		Where("label = ?", label).
		Where("src_id = ?", srcID).
		Where("branch_id IN (?)", bun.In(branchIDs)).
		Order("valid_from ASC").
		Scan(ctx)
	return edges, err
}

// AllEdgesByDst returns the complete history of `label` edges into dstID
// restricted to branchIDs, regardless of time — used to find both
// endpoints of a Relationship vertex for diff rendering.
func (s *Store) AllEdgesByDst(ctx context.Context, label string, dstID uuid.UUID, branchIDs []uuid.UUID) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.NewSelect().Model(&edges).
		Where("label = ?", label).
		Where("dst_id = ?", dstID).
		Where("branch_id IN (?)", bun.In(branchIDs)).
		Order("valid_from ASC").
		Scan(ctx)
	return edges, err
}

// OwnerOfAttribute returns the Node vertex ID that created attrID, via the
// single HAS_ATTRIBUTE edge that ever points at it (Attribute vertices are
// created fresh per entity, never shared, so exactly one owner exists).
func (s *Store) OwnerOfAttribute(ctx context.Context, attrID uuid.UUID, branchIDs []uuid.UUID) (uuid.UUID, error) {
	e := new(Edge)
	err := s.db.NewSelect().Model(e).
		Where("label = ?", string(EdgeHasAttribute)).
		Where("dst_id = ?", attrID).
		Where("branch_id IN (?)", bun.In(branchIDs)).
		Order("valid_from ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return e.SrcID, nil
}

// VerticesByKind returns every Node vertex of the given schema kind — the
// scan Node Manager's query() op fans out over before applying filters
// (spec §4.5). There is no secondary index beyond kind/uuid lookup per
// spec §1's Non-goals, so this is a sequential scan by design.
func (s *Store) VerticesByKind(ctx context.Context, kind string) ([]*Vertex, error) {
	var vertices []*Vertex
	err := s.db.NewSelect().Model(&vertices).
		Where("label = ?", string(LabelNode)).
		Where("kind = ?", kind).
		Scan(ctx)
	return vertices, err
}

// EdgesByDst returns every edge pointing at dstID with the given label,
// across the branch lineage, used to walk HAS_ATTRIBUTE/IS_PART_OF edges
// backwards (e.g. "which node owns this attribute").
func (s *Store) EdgesByDst(ctx context.Context, label string, dstID uuid.UUID, lineage []uuid.UUID, at time.Time) ([]*Edge, error) {
	var edges []*Edge
	err := s.db.NewSelect().Model(&edges).
		Where("label = ?", label).
		Where("dst_id = ?", dstID).
		Where("branch_id IN (?)", bun.In(lineage)).
		Where("valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to > ?", at).
		Scan(ctx)
	return edges, err
}
