//go:build integration

package diff_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/diff"
	"github.com/branchgraph/branchgraph/internal/graphstore"
	"github.com/branchgraph/branchgraph/internal/nodemgr"
	"github.com/branchgraph/branchgraph/internal/schema"
	"github.com/branchgraph/branchgraph/internal/testutil"
)

const diffTestSchemaYAML = `
kinds:
  - kind: Server
    attributes:
      - name: hostname
        kind: string
    relationships: []
`

func TestComputeReportsAddedAttribute(t *testing.T) {
	db := testutil.NewTestPool(t)
	t.Cleanup(db.Close)

	schemaPath := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(diffTestSchemaYAML), 0o644))
	cache := schema.NewCache(schemaPath)
	require.NoError(t, cache.Load(context.Background()))

	store := graphstore.NewStore(db.GetDB())
	branchStore := branchreg.NewStore(db.GetDB())
	registry := branchreg.NewRegistry(branchStore)
	require.NoError(t, registry.Refresh(context.Background()))

	mgr := nodemgr.New(db.GetDB(), store, registry, cache)
	engine := diff.New(store, registry, cache)
	ctx := context.Background()

	feature, err := registry.Create(ctx, "feature-x", "", false)
	require.NoError(t, err)

	_, err = mgr.Init("Server", feature.Name).New([]nodemgr.AttributeInput{
		{Name: "hostname", Type: "string", Value: "db-01", Visible: true},
	}, nil).Save(ctx)
	require.NoError(t, err)

	result, err := engine.Compute(ctx, diff.Options{Branch: feature.Name, BranchOnly: true})
	require.NoError(t, err)

	nodes := result[feature.Name]
	require.Len(t, nodes, 1)
	require.Equal(t, diff.ActionAdded, nodes[0].Action)
	require.Len(t, nodes[0].Attributes, 1)
	require.Equal(t, "hostname", nodes[0].Attributes[0].Name)
}
