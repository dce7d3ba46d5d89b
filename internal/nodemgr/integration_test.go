//go:build integration

package nodemgr_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/nodemgr"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/internal/testutil"
	"github.com/branchgraph/branchgraph/pkg/apperror"
)

const testSchemaYAML = `
kinds:
  - kind: Server
    attributes:
      - name: hostname
        kind: string
      - name: cpu_count
        kind: int
    relationships: []
`

func newManager(t *testing.T) (*nodemgr.Manager, *branchreg.Registry) {
	t.Helper()
	db := testutil.NewTestPool(t)
	t.Cleanup(db.Close)

	schemaPath := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchemaYAML), 0o644))
	cache := schema.NewCache(schemaPath)
	require.NoError(t, cache.Load(context.Background()))

	store := graphstore.NewStore(db.GetDB())
	branchStore := branchreg.NewStore(db.GetDB())
	registry := branchreg.NewRegistry(branchStore)
	require.NoError(t, registry.Refresh(context.Background()))

	return nodemgr.New(db.GetDB(), store, registry, cache), registry
}

func TestManagerSaveAndGetOne(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	id, err := mgr.Init("Server", "main").New([]nodemgr.AttributeInput{
		{Name: "hostname", Type: "string", Value: "db-01", Visible: true},
		{Name: "cpu_count", Type: "int", Value: int64(8), Visible: true},
	}, nil).Save(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entity, err := mgr.GetOne(ctx, id, nodemgr.QueryOptions{Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, "Server", entity.Kind)
	require.Equal(t, "db-01", entity.Attributes["hostname"].Value)
	require.True(t, entity.Attributes["hostname"].Visible)
}

func TestManagerUpdateAttributeClosesOldEdge(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	id, err := mgr.Init("Server", "main").New([]nodemgr.AttributeInput{
		{Name: "hostname", Type: "string", Value: "db-01", Visible: true},
	}, nil).Save(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.UpdateAttribute(ctx, id, "hostname", "db-02", "string", "main"))

	entity, err := mgr.GetOne(ctx, id, nodemgr.QueryOptions{Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, "db-02", entity.Attributes["hostname"].Value)
}

func TestManagerDeleteEntityHidesFromGetOne(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	id, err := mgr.Init("Server", "main").New([]nodemgr.AttributeInput{
		{Name: "hostname", Type: "string", Value: "db-01", Visible: true},
	}, nil).Save(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteEntity(ctx, id, "main"))

	_, err = mgr.GetOne(ctx, id, nodemgr.QueryOptions{Branch: "main"})
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	require.Equal(t, apperror.ErrNotFound.Code, appErr.Code)
}
