//go:build integration

package merge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/merge"
	"github.com/branchgraph/branchgraph/internal/nodemgr"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/internal/testutil"
)

const mergeTestSchemaYAML = `
kinds:
  - kind: Server
    attributes:
      - name: hostname
        kind: string
    relationships: []
`

func setup(t *testing.T) (*nodemgr.Manager, *branchreg.Registry, *merge.Engine) {
	t.Helper()
	db := testutil.NewTestPool(t)
	t.Cleanup(db.Close)

	schemaPath := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(mergeTestSchemaYAML), 0o644))
	cache := schema.NewCache(schemaPath)
	require.NoError(t, cache.Load(context.Background()))

	store := graphstore.NewStore(db.GetDB())
	branchStore := branchreg.NewStore(db.GetDB())
	registry := branchreg.NewRegistry(branchStore)
	require.NoError(t, registry.Refresh(context.Background()))

	mgr := nodemgr.New(db.GetDB(), store, registry, cache)
	engine := merge.New(db.GetDB(), store, registry, cache, nil)
	return mgr, registry, engine
}

func TestMergeReplaysNewNodeOntoParent(t *testing.T) {
	mgr, registry, engine := setup(t)
	ctx := context.Background()

	feature, err := registry.Create(ctx, "feature-y", "", false)
	require.NoError(t, err)

	id, err := mgr.Init("Server", feature.Name).New([]nodemgr.AttributeInput{
		{Name: "hostname", Type: "string", Value: "db-01", Visible: true},
	}, nil).Save(ctx)
	require.NoError(t, err)

	require.NoError(t, engine.Merge(ctx, feature.Name, time.Now().UTC()))

	entity, err := mgr.GetOne(ctx, id, nodemgr.QueryOptions{Branch: "main"})
	require.NoError(t, err)
	require.Equal(t, "db-01", entity.Attributes["hostname"].Value)
}

func TestMergeOfDefaultBranchFails(t *testing.T) {
	_, _, engine := setup(t)
	err := engine.Merge(context.Background(), "main", time.Now().UTC())
	require.Error(t, err)
}
