//go:build integration

// Package testutil provides integration-test helpers: an ephemeral Postgres
// instance per test run via testcontainers-go, running the project's own
// goose migrations before handing back a ready bun.DB. Grounded on the
// teacher's internal/testutil TestDB (per-test isolated database, template
// creation), adapted to testcontainers-go's postgres module instead of a
// pre-provisioned server.
//
// Everything here is gated behind the `integration` build tag so `go test
// ./...` never requires Docker.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/branchgraph/branchgraph/migrations"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
	idMu          sync.Mutex
	idCounter     int
)

// TestDB wraps a bun.DB bound to an ephemeral, migrated test database.
type TestDB struct {
	DB      *bun.DB
	cleanup func()
}

// GetDB returns the underlying bun.IDB.
func (t *TestDB) GetDB() bun.IDB { return t.DB }

// Close closes the connection and drops the per-test database; the shared
// container keeps running for the rest of the test binary.
func (t *TestDB) Close() {
	if t.cleanup != nil {
		t.cleanup()
	}
}

// NewTestPool starts (once per test binary) a Postgres testcontainer, then
// creates a fresh database per call, runs the project's goose migrations
// against it, and returns a ready TestDB. Callers should `defer db.Close()`.
func NewTestPool(t *testing.T) *TestDB {
	t.Helper()

	adminDSN := ensureContainer(t)
	dbName := nextDBName()

	adminSQLDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(adminDSN)))
	defer adminSQLDB.Close()

	if _, err := adminSQLDB.Exec(fmt.Sprintf(`CREATE DATABASE %q`, dbName)); err != nil {
		t.Fatalf("create test database %s: %v", dbName, err)
	}

	testSQLDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(withDatabase(adminDSN, dbName))))
	db := bun.NewDB(testSQLDB, pgdialect.New())

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("set goose dialect: %v", err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return &TestDB{
		DB: db,
		cleanup: func() {
			_ = db.Close()
			dropDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(adminDSN)))
			_, _ = dropDB.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS %q WITH (FORCE)`, dbName))
			_ = dropDB.Close()
		},
	}
}

func ensureContainer(t *testing.T) string {
	containerOnce.Do(func() {
		containerDSN, containerErr = startContainer(context.Background())
	})
	if containerErr != nil {
		t.Fatalf("start postgres testcontainer: %v", containerErr)
	}
	return containerDSN
}

func nextDBName() string {
	idMu.Lock()
	defer idMu.Unlock()
	idCounter++
	return fmt.Sprintf("branchgraph_test_%d", idCounter)
}
