// Package schema implements the Schema Cache (spec §4.3): an in-memory map
// of kind -> descriptor shared by every branch (descriptors are not kept per
// branch), populated from a YAML descriptor file and
// hot-reloaded via fsnotify, mirroring the teacher's config-reload pattern
// (internal/config watches no files today, but domain/graph's schema
// registry and steveyegge-beads' internal/schema both hot-swap a parsed
// descriptor set behind an atomic pointer on fsnotify events).
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// AttributeKind is the typed-kind of an attribute value (spec §4.3).
type AttributeKind string

const (
	KindString AttributeKind = "string"
	KindInt    AttributeKind = "int"
	KindFloat  AttributeKind = "float"
	KindBool   AttributeKind = "bool"
	KindTime   AttributeKind = "time"
	KindJSON   AttributeKind = "json"
)

// Cardinality is the multiplicity of a relationship (spec §4.3).
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// AttributeDescriptor describes one attribute a Kind may carry.
type AttributeDescriptor struct {
	Name      string        `yaml:"name"`
	Kind      AttributeKind `yaml:"kind"`
	Optional  bool          `yaml:"optional"`
	Default   any           `yaml:"default,omitempty"`
	Unique    bool          `yaml:"unique"`
	MaxLength int           `yaml:"max_length,omitempty"`
}

// RelationshipDescriptor describes one named relationship slot a Kind may
// carry. Identifier is the on-edge name used in diff rendering and in
// query filters (`rel__peer_attr__value`).
type RelationshipDescriptor struct {
	Name        string      `yaml:"name"`
	Identifier  string      `yaml:"identifier"`
	PeerKind    string      `yaml:"peer_kind"`
	Cardinality Cardinality `yaml:"cardinality"`
	Optional    bool        `yaml:"optional"`
}

// KindDescriptor is the full schema for one entity kind.
type KindDescriptor struct {
	Kind          string                    `yaml:"kind"`
	Attributes    []AttributeDescriptor     `yaml:"attributes"`
	Relationships []RelationshipDescriptor  `yaml:"relationships"`

	byAttrName map[string]*AttributeDescriptor
	byRelIdent map[string]*RelationshipDescriptor
}

func (k *KindDescriptor) index() {
	k.byAttrName = make(map[string]*AttributeDescriptor, len(k.Attributes))
	for i := range k.Attributes {
		k.byAttrName[k.Attributes[i].Name] = &k.Attributes[i]
	}
	k.byRelIdent = make(map[string]*RelationshipDescriptor, len(k.Relationships))
	for i := range k.Relationships {
		k.byRelIdent[k.Relationships[i].Identifier] = &k.Relationships[i]
	}
}

// Attribute looks up an attribute descriptor by name.
func (k *KindDescriptor) Attribute(name string) (*AttributeDescriptor, bool) {
	a, ok := k.byAttrName[name]
	return a, ok
}

// RelationshipByIdentifier looks up a relationship descriptor by its on-edge
// identifier — required by the Diff Engine for rendering (spec §4.3).
func (k *KindDescriptor) RelationshipByIdentifier(id string) (*RelationshipDescriptor, bool) {
	r, ok := k.byRelIdent[id]
	return r, ok
}

// Document is the top-level shape of the YAML descriptor file.
type Document struct {
	Kinds []KindDescriptor `yaml:"kinds"`
}

// Hash derives a deterministic schema_hash over the document's kinds,
// attributes and relationships, sorted for stability — used for the
// branch-compat check on merge (spec §4.7).
func (d *Document) Hash() string {
	kinds := make([]KindDescriptor, len(d.Kinds))
	copy(kinds, d.Kinds)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Kind < kinds[j].Kind })

	h := sha256.New()
	for _, k := range kinds {
		h.Write([]byte("kind:" + k.Kind + "\n"))
		attrs := append([]AttributeDescriptor(nil), k.Attributes...)
		sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
		for _, a := range attrs {
			h.Write([]byte("attr:" + a.Name + ":" + string(a.Kind) + "\n"))
		}
		rels := append([]RelationshipDescriptor(nil), k.Relationships...)
		sort.Slice(rels, func(i, j int) bool { return rels[i].Identifier < rels[j].Identifier })
		for _, r := range rels {
			h.Write([]byte("rel:" + r.Identifier + ":" + r.PeerKind + ":" + string(r.Cardinality) + "\n"))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
