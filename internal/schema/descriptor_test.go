package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindDescriptorLookups(t *testing.T) {
	k := &KindDescriptor{
		Kind: "server",
		Attributes: []AttributeDescriptor{
			{Name: "hostname", Kind: KindString},
		},
		Relationships: []RelationshipDescriptor{
			{Name: "rack", Identifier: "rack_of", PeerKind: "rack", Cardinality: CardinalityOne},
		},
	}
	k.index()

	attr, ok := k.Attribute("hostname")
	require.True(t, ok)
	require.Equal(t, KindString, attr.Kind)

	_, ok = k.Attribute("missing")
	require.False(t, ok)

	rel, ok := k.RelationshipByIdentifier("rack_of")
	require.True(t, ok)
	require.Equal(t, "rack", rel.PeerKind)
}

func TestDocumentHashStableUnderReorder(t *testing.T) {
	d1 := &Document{Kinds: []KindDescriptor{
		{Kind: "a", Attributes: []AttributeDescriptor{{Name: "x", Kind: KindString}}},
		{Kind: "b", Attributes: []AttributeDescriptor{{Name: "y", Kind: KindInt}}},
	}}
	d2 := &Document{Kinds: []KindDescriptor{
		{Kind: "b", Attributes: []AttributeDescriptor{{Name: "y", Kind: KindInt}}},
		{Kind: "a", Attributes: []AttributeDescriptor{{Name: "x", Kind: KindString}}},
	}}
	require.Equal(t, d1.Hash(), d2.Hash())
}

func TestDocumentHashChangesOnContentChange(t *testing.T) {
	d1 := &Document{Kinds: []KindDescriptor{{Kind: "a", Attributes: []AttributeDescriptor{{Name: "x", Kind: KindString}}}}}
	d2 := &Document{Kinds: []KindDescriptor{{Kind: "a", Attributes: []AttributeDescriptor{{Name: "x", Kind: KindInt}}}}}
	require.NotEqual(t, d1.Hash(), d2.Hash())
}
