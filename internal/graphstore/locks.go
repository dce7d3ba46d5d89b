package graphstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// AcquireBranchWriteLock takes a transaction-scoped Postgres advisory lock
// keyed by branch name, enforcing the single-writer-per-branch rule (spec
// §4.2, SPEC_FULL.md C.3). The lock is released automatically at commit or
// rollback — grounded on the teacher's advisory-lock usage for per-object
// write serialisation (domain/graph/repository.go AcquireObjectLock),
// generalised here to a per-branch key instead of a per-object key.
func AcquireBranchWriteLock(ctx context.Context, tx bun.IDB, branchName string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext(?))`, branchName)
	if err != nil {
		return fmt.Errorf("acquire branch write lock for %q: %w", branchName, err)
	}
	return nil
}

// TryAcquireBranchWriteLock is the non-blocking variant, used where a caller
// wants to fail fast (e.g. a concurrent merge already holds the branch)
// instead of queueing behind another writer.
func TryAcquireBranchWriteLock(ctx context.Context, tx bun.IDB, branchName string) (bool, error) {
	var ok bool
	err := tx.NewSelect().ColumnExpr("pg_try_advisory_xact_lock(hashtext(?))", branchName).Scan(ctx, &ok)
	if err != nil {
		return false, fmt.Errorf("try-acquire branch write lock for %q: %w", branchName, err)
	}
	return ok, nil
}
