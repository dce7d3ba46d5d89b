package branchreg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/branchgraph/branchgraph/pkg/apperror"
)

// Store is the bun-backed persistence layer for branches and their lineage,
// grounded on the teacher's domain/branches/store.go bun.IDB wiring.
type Store struct {
	db bun.IDB
}

// NewStore builds a Store over any bun.IDB (a *bun.DB or a transaction).
func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to the given transaction.
func (s *Store) WithTx(tx bun.Tx) *Store {
	return &Store{db: tx}
}

// List returns all branches ordered by creation time, oldest first.
func (s *Store) List(ctx context.Context) ([]*Branch, error) {
	var branches []*Branch
	if err := s.db.NewSelect().Model(&branches).OrderExpr("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return branches, nil
}

// GetByID fetches a branch by id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	b := new(Branch)
	err := s.db.NewSelect().Model(b).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("branch", id.String())
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByName fetches a branch by name.
func (s *Store) GetByName(ctx context.Context, name string) (*Branch, error) {
	b := new(Branch)
	err := s.db.NewSelect().Model(b).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("branch", name)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetDefault fetches the default branch (spec's "default timeline").
func (s *Store) GetDefault(ctx context.Context) (*Branch, error) {
	b := new(Branch)
	err := s.db.NewSelect().Model(b).Where("is_default = true").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("branch", "<default>")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Insert persists a new branch row.
func (s *Store) Insert(ctx context.Context, b *Branch) error {
	_, err := s.db.NewInsert().Model(b).Exec(ctx)
	return err
}

// InsertLineage persists the closure rows for a branch in one batch.
func (s *Store) InsertLineage(ctx context.Context, rows []*BranchLineage) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// Lineage returns the ancestor ids for a branch ordered nearest-first
// (depth ascending), i.e. [branch, parent, grandparent, ..., default].
func (s *Store) Lineage(ctx context.Context, branchID uuid.UUID) ([]uuid.UUID, error) {
	var rows []*BranchLineage
	err := s.db.NewSelect().Model(&rows).
		Where("branch_id = ?", branchID).
		OrderExpr("depth ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.AncestorID
	}
	return ids, nil
}

// UpdateBranchedFrom advances a branch's branched_from, used by Rebase.
func (s *Store) UpdateBranchedFrom(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.NewUpdate().Model((*Branch)(nil)).
		Set("branched_from = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkMerged soft-deletes a branch by stamping merged_at, keeping the record
// for audit per spec §4.7 step 5.
func (s *Store) MarkMerged(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.NewUpdate().Model((*Branch)(nil)).
		Set("merged_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// Delete hard-deletes a branch record and its lineage rows (admin use only;
// Merge uses MarkMerged, never Delete).
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.NewDelete().Model((*BranchLineage)(nil)).Where("branch_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().Model((*Branch)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}
