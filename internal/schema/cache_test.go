package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDescriptor = `
kinds:
  - kind: server
    attributes:
      - name: hostname
        kind: string
        unique: true
    relationships:
      - name: rack
        identifier: rack_of
        peer_kind: rack
        cardinality: one
`

func TestCacheLoadAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDescriptor), 0o644))

	c := NewCache(path)
	require.NoError(t, c.Load(context.Background()))

	k, err := c.Kind("server")
	require.NoError(t, err)
	attr, ok := k.Attribute("hostname")
	require.True(t, ok)
	require.True(t, attr.Unique)

	_, err = c.Kind("missing")
	require.Error(t, err)
}

func TestCacheCompatible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDescriptor), 0o644))

	c := NewCache(path)
	require.NoError(t, c.Load(context.Background()))

	require.True(t, c.Compatible(c.Hash()))
	require.False(t, c.Compatible("not-a-real-hash"))
}

func TestCacheUnloadedKindFails(t *testing.T) {
	c := NewCache("/nonexistent.yaml")
	_, err := c.Kind("server")
	require.Error(t, err)
}
