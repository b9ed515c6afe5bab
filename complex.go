package statetree

import (
	"fmt"
	"reflect"
	"strconv"
)

// reconcileComplex is the reconcile step shared by models, arrays and maps. A
// live node of the same type with a matching identifier is updated in place;
// anything else is instantiated first and only then replaces current.
func reconcileComplex(t Type, c complexType, current Node, value any) (Node, error) {
	if node, ok := value.(*ObjectNode); ok {
		return attachInPlaceOf(current, node)
	}
	obj, ok := current.(*ObjectNode)
	if ok && obj.IsAlive() && obj.ctype == c && matchesIdentifier(c, obj, value) {
		if err := c.applySnapshot(obj, value); err != nil {
			return nil, err
		}
		return obj, nil
	}
	next, err := instantiateLike(t, current, value)
	if err != nil {
		return nil, err
	}
	if current.IsAlive() {
		current.Die()
	}
	return next, nil
}

// attachInPlaceOf moves a detached node into current's slot and kills current.
func attachInPlaceOf(current Node, node *ObjectNode) (Node, error) {
	if node == current {
		return current, nil
	}
	parent, subpath := current.Parent(), current.Subpath()
	if parent == nil {
		if current.IsAlive() {
			current.Die()
		}
		return node, nil
	}
	if node.parent != nil {
		return nil, treeError("attach", node.getEscapedPath(false), ErrAlreadyAttached)
	}
	if parent.isDescendantOf(node) {
		return nil, treeError("attach", parent.getEscapedPath(false), ErrCyclicAttach)
	}
	if current.IsAlive() {
		current.Die()
	}
	if err := node.SetParent(parent, subpath); err != nil {
		return nil, err
	}
	return node, nil
}

// instantiateLike builds a node for value in the slot current occupies. A
// replaced root keeps its tree configuration.
func instantiateLike(t Type, current Node, value any) (Node, error) {
	parent := current.Parent()
	env := current.Environment()
	if parent == nil {
		env = &rootEnvironment{env: env, cfg: current.base().cfg}
	}
	return t.Instantiate(parent, current.Subpath(), env, value)
}

func matchesIdentifier(c complexType, obj *ObjectNode, value any) bool {
	m, ok := c.(*ModelType)
	if !ok || m.identifierAttr == "" {
		return true
	}
	id, ok := snapshotIdentifier(m, value)
	return !ok || id == obj.identifier
}

// identifiedModel returns the model behind t when it declares an identifier.
func identifiedModel(t Type) *ModelType {
	if t == nil {
		return nil
	}
	m, ok := baseType(t).(*ModelType)
	if !ok || m.identifierAttr == "" {
		return nil
	}
	return m
}

// snapshotIdentifier extracts the normalized identifier from a model snapshot
// or a live model node.
func snapshotIdentifier(m *ModelType, value any) (string, bool) {
	if obj, ok := value.(*ObjectNode); ok {
		return obj.identifier, obj.identifier != ""
	}
	values, ok := asMap(value)
	if !ok {
		return "", false
	}
	id, present := values[m.identifierAttr]
	if !present || id == nil {
		return "", false
	}
	return NormalizeIdentifier(id), true
}

// checkUniqueSnapshots rejects collection snapshots holding the same
// identifier twice. path is the collection's path.
func checkUniqueSnapshots(path string, elem Type, items []any) error {
	model := identifiedModel(elem)
	if model == nil {
		return nil
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id, ok := snapshotIdentifier(model, item)
		if !ok {
			continue
		}
		if seen[id] {
			return &DuplicateIdentifierError{Path: path, Type: model.Name(), Identifier: id}
		}
		seen[id] = true
	}
	return nil
}

// checkMapKey requires map entries of identified models to be stored under
// their own identifier. path is the map's path.
func checkMapKey(path string, elem Type, key string, value any) error {
	model := identifiedModel(elem)
	if model == nil {
		return nil
	}
	id, ok := snapshotIdentifier(model, value)
	if !ok || id == key {
		return nil
	}
	return treeError("put", path+PathSeparator+EscapeSegment(key), fmt.Errorf("%w: key %q, identifier %q", ErrIdentifierKeyMismatch, key, id))
}

// checkSnapshotIdentifiers walks a snapshot along t and reports the first
// duplicate identifier or mismatched map key. It runs before reconciliation
// touches the tree.
func checkSnapshotIdentifiers(t Type, path string, value any) error {
	if _, ok := value.(Node); ok {
		return nil
	}
	for {
		if o, ok := t.(*OptionalType); ok {
			value = o.orDefault(value)
		}
		u, ok := t.(unwrapper)
		if !ok {
			break
		}
		t = u.Unwrap()
	}
	switch c := t.(type) {
	case *ModelType:
		values, _ := asMap(value)
		for _, prop := range c.props {
			if err := checkSnapshotIdentifiers(prop.Type, path+PathSeparator+EscapeSegment(prop.Name), values[prop.Name]); err != nil {
				return err
			}
		}
	case *ArrayType:
		items, _ := asSlice(value)
		if err := checkUniqueSnapshots(path, c.elem, items); err != nil {
			return err
		}
		for i, item := range items {
			if err := checkSnapshotIdentifiers(c.elem, path+PathSeparator+strconv.Itoa(i), item); err != nil {
				return err
			}
		}
	case *MapType:
		entries, _ := asMap(value)
		for _, key := range sortedKeys(entries) {
			if err := checkMapKey(path, c.elem, key, entries[key]); err != nil {
				return err
			}
			if err := checkSnapshotIdentifiers(c.elem, path+PathSeparator+EscapeSegment(key), entries[key]); err != nil {
				return err
			}
		}
	}
	return nil
}

// asMap accepts any map keyed by strings.
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

// asSlice accepts any slice or array.
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

func invalidSnapshot(t Type, value any, expected string) error {
	return TypeCheckFailure(RootContext(t), value, "expected "+expected).Err(t, value)
}
