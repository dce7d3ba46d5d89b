package nodemgr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchesValueFilter(t *testing.T) {
	e := &Entity{Attributes: map[string]AttributeValue{
		"hostname": {Value: "web-1"},
	}}
	require.True(t, matches(e, Filter{Path: []string{"hostname", "value"}, Value: "web-1"}))
	require.False(t, matches(e, Filter{Path: []string{"hostname", "value"}, Value: "web-2"}))
}

func TestMatchesVisibilityFilter(t *testing.T) {
	e := &Entity{Attributes: map[string]AttributeValue{
		"hostname": {Value: "web-1", Visible: true, Protected: false},
	}}
	require.True(t, matches(e, Filter{Path: []string{"hostname", "is_visible"}, Value: true}))
	require.False(t, matches(e, Filter{Path: []string{"hostname", "is_protected"}, Value: true}))
}

func TestMatchesMissingAttributeFails(t *testing.T) {
	e := &Entity{Attributes: map[string]AttributeValue{}}
	require.False(t, matches(e, Filter{Path: []string{"missing", "value"}, Value: "x"}))
}

func TestMatchesAllRequiresEveryFilter(t *testing.T) {
	e := &Entity{Attributes: map[string]AttributeValue{
		"a": {Value: "1"},
		"b": {Value: "2"},
	}}
	require.True(t, matchesAll(e, []Filter{
		{Path: []string{"a", "value"}, Value: "1"},
		{Path: []string{"b", "value"}, Value: "2"},
	}))
	require.False(t, matchesAll(e, []Filter{
		{Path: []string{"a", "value"}, Value: "1"},
		{Path: []string{"b", "value"}, Value: "wrong"},
	}))
}

func TestNormalizeIntVsFloat(t *testing.T) {
	require.Equal(t, normalize(3), normalize(float64(3)))
}
