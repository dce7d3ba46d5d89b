package branchreg

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/branchgraph/branchgraph/internal/timestamp"
	"github.com/branchgraph/branchgraph/pkg/apperror"
)

// ConflictChecker decides whether rebasing `branch` onto the current state
// of `parent` would hit a dirty-merge conflict (spec §4.2's rebase
// precondition). It is implemented by internal/merge and injected rather
// than imported directly, since merge depends on branchreg and not the
// reverse.
type ConflictChecker interface {
	HasConflict(ctx context.Context, branch, parent *Branch) (bool, error)
}

type snapshot struct {
	byName map[string]*Branch
	byID   map[uuid.UUID]*Branch
}

// Registry is the process-wide Branch Registry (spec §4.2): copy-on-write
// snapshot reads, writers serialised through a single mutex.
type Registry struct {
	store    *Store
	snap     atomic.Pointer[snapshot]
	writeMu  sync.Mutex
	checker  ConflictChecker
}

// NewRegistry builds a Registry over the given store. The snapshot is empty
// until the first Refresh (typically run once at startup by internal/app).
func NewRegistry(store *Store) *Registry {
	r := &Registry{store: store}
	r.snap.Store(&snapshot{byName: map[string]*Branch{}, byID: map[uuid.UUID]*Branch{}})
	return r
}

// SetConflictChecker wires the Merge Engine's conflict-detection callback
// used by Rebase. Optional: a nil checker makes Rebase skip the conflict
// check entirely (documented in DESIGN.md).
func (r *Registry) SetConflictChecker(c ConflictChecker) {
	r.checker = c
}

// Refresh reloads the in-memory snapshot from the store and swaps it in
// atomically; readers never observe a half-built snapshot.
func (r *Registry) Refresh(ctx context.Context) error {
	branches, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	next := &snapshot{
		byName: make(map[string]*Branch, len(branches)),
		byID:   make(map[uuid.UUID]*Branch, len(branches)),
	}
	for _, b := range branches {
		next.byName[b.Name] = b
		next.byID[b.ID] = b
	}
	r.snap.Store(next)
	return nil
}

// Get returns a branch by name from the current snapshot, falling back to
// the store when the snapshot has no such name.
func (r *Registry) Get(ctx context.Context, name string) (*Branch, error) {
	if b, ok := r.snap.Load().byName[name]; ok {
		return b, nil
	}
	return r.store.GetByName(ctx, name)
}

// GetByID returns a branch by id from the current snapshot, falling back to
// the store when the snapshot has no such id.
func (r *Registry) GetByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	if b, ok := r.snap.Load().byID[id]; ok {
		return b, nil
	}
	return r.store.GetByID(ctx, id)
}

// List returns every branch in the current snapshot.
func (r *Registry) List(ctx context.Context) ([]*Branch, error) {
	snap := r.snap.Load()
	out := make([]*Branch, 0, len(snap.byName))
	for _, b := range snap.byName {
		out = append(out, b)
	}
	return out, nil
}

// Create forks a new branch from fromBranch (empty = default branch).
// Fails BranchExists if name is taken, InvalidBranchName if the grammar
// rejects it (spec §4.2).
func (r *Registry) Create(ctx context.Context, name, fromBranch string, dataOnly bool) (*Branch, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, err := r.store.GetByName(ctx, name); err == nil {
		return nil, apperror.ErrBranchExists.WithMessage("branch " + name + " already exists")
	}

	var parent *Branch
	var err error
	if fromBranch == "" {
		parent, err = r.store.GetDefault(ctx)
	} else {
		parent, err = r.store.GetByName(ctx, fromBranch)
	}
	if err != nil {
		return nil, err
	}

	now := timestamp.Now()
	b := &Branch{
		ID:           uuid.New(),
		Name:         name,
		ParentID:     &parent.ID,
		BranchLevel:  parent.BranchLevel + 1,
		BranchedFrom: now,
		CreatedAt:    now,
		IsDefault:    false,
		IsDataOnly:   dataOnly,
		SchemaHash:   parent.SchemaHash,
	}
	if err := r.store.Insert(ctx, b); err != nil {
		return nil, err
	}

	ancestorIDs, err := r.store.Lineage(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	lineage := make([]*BranchLineage, 0, len(ancestorIDs)+1)
	lineage = append(lineage, &BranchLineage{BranchID: b.ID, AncestorID: b.ID, Depth: 0})
	for i, ancestorID := range ancestorIDs {
		lineage = append(lineage, &BranchLineage{BranchID: b.ID, AncestorID: ancestorID, Depth: i + 1})
	}
	if err := r.store.InsertLineage(ctx, lineage); err != nil {
		return nil, err
	}

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Rebase advances branch.branched_from to now(), after verifying there is no
// dirty-merge conflict against the parent (spec §4.2). When no
// ConflictChecker is wired, the check is skipped — see SetConflictChecker.
func (r *Registry) Rebase(ctx context.Context, name string) (*Branch, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b, err := r.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if b.ParentID == nil {
		return nil, apperror.ErrBadRequest.WithMessage("default branch has no parent to rebase onto")
	}
	parent, err := r.store.GetByID(ctx, *b.ParentID)
	if err != nil {
		return nil, err
	}

	if r.checker != nil {
		conflict, err := r.checker.HasConflict(ctx, b, parent)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, apperror.ErrMergeConflict.WithMessage("rebase blocked by dirty merge conflict against parent")
		}
	}

	now := timestamp.Now()
	if !now.After(b.BranchedFrom) {
		// The contract (S4) only requires strictly-later; guard the
		// pathological same-tick case by nudging forward a nanosecond.
		now = b.BranchedFrom.Add(1)
	}
	if err := r.store.UpdateBranchedFrom(ctx, b.ID, now); err != nil {
		return nil, err
	}
	b.BranchedFrom = now

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// MarkMerged soft-deletes a branch after a successful merge (spec §4.7 step 5).
func (r *Registry) MarkMerged(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.store.MarkMerged(ctx, id, at); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

// Delete hard-deletes a branch record (administrative use; merges use
// MarkMerged instead).
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b, err := r.store.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if b.IsDefault {
		return apperror.ErrBadRequest.WithMessage("cannot delete the default branch")
	}
	if err := r.store.Delete(ctx, b.ID); err != nil {
		return err
	}
	return r.Refresh(ctx)
}

// Lineage returns the ordered chain of branches from b up through parents to
// the default branch (GLOSSARY: "Lineage"), nearest-first.
func (r *Registry) Lineage(ctx context.Context, b *Branch) ([]*Branch, error) {
	ids, err := r.store.Lineage(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*Branch, 0, len(ids))
	for _, id := range ids {
		ancestor, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ancestor)
	}
	return out, nil
}
