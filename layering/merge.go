// Package layering composes snapshot layers, such as defaults, tenant
// overrides and per-user overrides, into the single snapshot a tree is
// created from.
package layering

import (
	"reflect"
	"sort"
)

// MergeOption configures a Merger.
type MergeOption func(*Merger)

// Merger merges snapshot values. Maps merge key by key, everything else is
// taken from the strongest layer that sets it. A nil value means "not set".
type Merger struct {
	identifierAttr string
}

// WithIdentifierAttribute merges arrays of maps element by element, matching
// elements on attr. Elements only present in the weaker layer are appended
// after the stronger layer's elements, in their original order.
func WithIdentifierAttribute(attr string) MergeOption {
	return func(m *Merger) {
		m.identifierAttr = attr
	}
}

func NewMerger(opts ...MergeOption) *Merger {
	m := &Merger{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Merge combines two layers without modifying either.
func Merge(strong, weak any) any {
	return NewMerger().Merge(strong, weak)
}

// MergeLayers composes layers ordered from strongest to weakest.
func MergeLayers(layers ...any) any {
	return NewMerger().MergeLayers(layers...)
}

// MergeLayers composes layers ordered from strongest to weakest.
func (m *Merger) MergeLayers(layers ...any) any {
	if len(layers) == 0 {
		return nil
	}
	merged := Clone(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		merged = m.Merge(layers[i], merged)
	}
	return merged
}

func (m *Merger) Merge(strong, weak any) any {
	if strong == nil {
		return Clone(weak)
	}
	strongMap, strongIsMap := asMap(strong)
	weakMap, weakIsMap := asMap(weak)
	if strongIsMap {
		if !weakIsMap {
			return Clone(strong)
		}
		out := make(map[string]any, len(strongMap)+len(weakMap))
		for key, value := range weakMap {
			out[key] = Clone(value)
		}
		for key, value := range strongMap {
			out[key] = m.Merge(value, weakMap[key])
		}
		return out
	}
	if m.identifierAttr != "" {
		if strongItems, ok := asSlice(strong); ok {
			if weakItems, ok := asSlice(weak); ok {
				return m.mergeIdentified(strongItems, weakItems)
			}
		}
	}
	return Clone(strong)
}

func (m *Merger) mergeIdentified(strong, weak []any) []any {
	weakByID := make(map[any]int, len(weak))
	for i, item := range weak {
		if id, ok := m.identifierOf(item); ok {
			weakByID[id] = i
		}
	}
	used := make(map[int]bool, len(weak))
	out := make([]any, 0, len(strong)+len(weak))
	for _, item := range strong {
		id, ok := m.identifierOf(item)
		if !ok {
			out = append(out, Clone(item))
			continue
		}
		i, found := weakByID[id]
		if !found || used[i] {
			out = append(out, Clone(item))
			continue
		}
		used[i] = true
		out = append(out, m.Merge(item, weak[i]))
	}
	for i, item := range weak {
		if used[i] {
			continue
		}
		if id, ok := m.identifierOf(item); ok && containsIdentifier(m, out, id) {
			continue
		}
		out = append(out, Clone(item))
	}
	return out
}

func (m *Merger) identifierOf(item any) (any, bool) {
	values, ok := asMap(item)
	if !ok {
		return nil, false
	}
	id, ok := values[m.identifierAttr]
	if !ok || id == nil || !reflect.TypeOf(id).Comparable() {
		return nil, false
	}
	return id, true
}

func containsIdentifier(m *Merger, items []any, id any) bool {
	for _, item := range items {
		if other, ok := m.identifierOf(item); ok && other == id {
			return true
		}
	}
	return false
}

// Clone deep-copies maps and slices of a snapshot value.
func Clone(value any) any {
	if values, ok := asMap(value); ok {
		out := make(map[string]any, len(values))
		for key, item := range values {
			out[key] = Clone(item)
		}
		return out
	}
	if _, isBytes := value.([]byte); !isBytes {
		if items, ok := asSlice(value); ok {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = Clone(item)
			}
			return out
		}
	}
	return value
}

// Keys returns the keys of a map layer in sorted order, or nil.
func Keys(layer any) []string {
	values, ok := asMap(layer)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func asMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(value any) ([]any, bool) {
	if s, ok := value.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
