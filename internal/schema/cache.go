package schema

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/branchgraph/branchgraph/pkg/apperror"
)

// Cache is the process-wide Schema Cache (spec §4.3): a copy-on-write
// snapshot of the parsed descriptor document, swapped atomically on reload.
// The core never parses schema files itself — it only consumes the result
// of the external Schema Loader, here a YAML file on disk.
type Cache struct {
	path string
	doc  atomic.Pointer[Document]
}

// NewCache builds an unpopulated Cache for the descriptor file at path.
// Call Load once (typically from schema.Module's fx.Lifecycle OnStart)
// before serving reads.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load parses the descriptor file and swaps it into the snapshot.
func (c *Cache) Load(_ context.Context) error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read schema descriptor %s: %w", c.path, err)
	}
	doc := &Document{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("parse schema descriptor %s: %w", c.path, err)
	}
	for i := range doc.Kinds {
		doc.Kinds[i].index()
	}
	c.doc.Store(doc)
	return nil
}

// Kind looks up a kind's descriptor in the current snapshot.
func (c *Cache) Kind(kind string) (*KindDescriptor, error) {
	doc := c.doc.Load()
	if doc == nil {
		return nil, apperror.ErrFatal.WithMessage("schema cache not loaded")
	}
	for i := range doc.Kinds {
		if doc.Kinds[i].Kind == kind {
			return &doc.Kinds[i], nil
		}
	}
	return nil, apperror.ErrSchemaMismatch.WithMessage(fmt.Sprintf("kind %q not in branch schema", kind))
}

// Hash returns the current document's schema_hash.
func (c *Cache) Hash() string {
	doc := c.doc.Load()
	if doc == nil {
		return ""
	}
	return doc.Hash()
}

// Compatible reports whether another schema hash is compatible with the
// current one — for now, compatibility is strict equality (spec §4.7's
// branch-compat check); a future loader-driven migration path could relax
// this to "b is a superset of a".
func (c *Cache) Compatible(otherHash string) bool {
	return c.Hash() == otherHash
}
