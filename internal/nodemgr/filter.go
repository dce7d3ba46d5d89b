package nodemgr

import (
	"context"
	"reflect"
)

// Query returns every entity of kind on (branch, at) whose resolved
// attribute/relationship values satisfy every filter (spec §4.5's
// `query(kind, filters?, branch, at?)` op). Filter paths are pre-split into
// Filter.Path by the caller/facade; `attr__value`, `attr__is_visible` and
// `attr__is_protected` are evaluated, relationship paths are not (see matches).
func (m *Manager) Query(ctx context.Context, kind string, filters []Filter, opts QueryOptions) ([]*Entity, error) {
	if err := m.validateKind(kind); err != nil {
		return nil, err
	}
	vertices, err := m.store.VerticesByKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	out := make([]*Entity, 0, len(vertices))
	for _, v := range vertices {
		if v.EntityUUID == nil {
			continue
		}
		entity, err := m.GetOne(ctx, *v.EntityUUID, opts)
		if err != nil {
			continue // tombstoned or not visible at (branch, at)
		}
		if matchesAll(entity, filters) {
			out = append(out, entity)
		}
	}
	return out, nil
}

func matchesAll(e *Entity, filters []Filter) bool {
	for _, f := range filters {
		if !matches(e, f) {
			return false
		}
	}
	return true
}

// matches evaluates one filter path against an entity's resolved view.
// `attr__value` -> Attributes["attr"].Value; `attr__is_visible` ->
// Attributes["attr"].Visible. Relationship paths (`rel__peer_attr__value`)
// are not resolved against the peer entity: the first segment is looked up
// among the entity's own attributes only, so such a filter does not match.
func matches(e *Entity, f Filter) bool {
	if len(f.Path) < 2 {
		return false
	}
	name, field := f.Path[0], f.Path[len(f.Path)-1]
	attr, ok := e.Attributes[name]
	if !ok {
		return false
	}
	switch field {
	case "value":
		return reflect.DeepEqual(normalize(attr.Value), normalize(f.Value))
	case "is_visible":
		b, ok := f.Value.(bool)
		return ok && attr.Visible == b
	case "is_protected":
		b, ok := f.Value.(bool)
		return ok && attr.Protected == b
	default:
		return false
	}
}

// normalize smooths the JSON-roundtrip mismatch between a Go literal filter
// value and a jsonb-decoded attribute value (e.g. int vs float64).
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return t
	}
}
