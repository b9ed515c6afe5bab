package statetree

import (
	"sort"
	"strconv"
)

// ArrayType is an ordered list of elements of one type.
type ArrayType struct {
	elem Type
}

// Array declares a list of elem.
func Array(elem Type) *ArrayType {
	return &ArrayType{elem: elem}
}

func (a *ArrayType) Name() string     { return a.elem.Name() + "[]" }
func (a *ArrayType) Describe() string { return a.elem.Describe() + "[]" }
func (a *ArrayType) Flags() TypeFlags { return FlagArray }

// Elem returns the element type.
func (a *ArrayType) Elem() Type { return a.elem }

func (a *ArrayType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	return createNode(a, parent, subpath, env, snapshot)
}

func (a *ArrayType) Reconcile(current Node, value any) (Node, error) {
	return reconcileComplex(a, a, current, value)
}

func (a *ArrayType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	items, ok := asSlice(value)
	if !ok {
		return TypeCheckFailure(ctx, value, "Value is not an array")
	}
	var result ValidationResult
	for i, item := range items {
		result = result.Merge(a.elem.IsValidSnapshot(item, ctx.Child(strconv.Itoa(i), a.elem)))
	}
	return result
}

func (a *ArrayType) Snapshot(node Node) any {
	return node.Snapshot()
}

func (a *ArrayType) kind() NodeKind { return KindArray }

func (a *ArrayType) childType(string) Type { return a.elem }

func (a *ArrayType) initChildren(node *ObjectNode, snapshot any) error {
	items, ok := asSlice(snapshot)
	if !ok && snapshot != nil {
		return invalidSnapshot(a, snapshot, "an array")
	}
	if err := checkUniqueSnapshots(node.getEscapedPath(false), a.elem, items); err != nil {
		return err
	}
	for i, item := range items {
		key := strconv.Itoa(i)
		child, err := a.elem.Instantiate(node, key, node.environment, item)
		if err != nil {
			return err
		}
		node.appendChild(key, child)
	}
	return nil
}

// applySnapshot matches existing children by identifier when the elements
// are identified models and by position otherwise. New children are built
// before anything is removed.
func (a *ArrayType) applySnapshot(node *ObjectNode, snapshot any) error {
	items, _ := asSlice(snapshot)
	if err := checkUniqueSnapshots(node.getEscapedPath(false), a.elem, items); err != nil {
		return err
	}

	old := node.Children()
	next := make([]Node, len(items))
	if model := identifiedModel(a.elem); model != nil {
		byID := make(map[string]Node, len(old))
		for _, child := range old {
			if obj, ok := child.(*ObjectNode); ok && obj.identifier != "" {
				byID[obj.identifier] = child
			}
		}
		for i, item := range items {
			id, ok := snapshotIdentifier(model, item)
			if !ok {
				continue
			}
			if child, found := byID[id]; found {
				next[i] = child
				delete(byID, id)
			}
		}
	} else {
		for i := range items {
			if i < len(old) {
				next[i] = old[i]
			}
		}
	}

	fresh := make(map[Node]bool)
	var created []Node
	for i, item := range items {
		if next[i] != nil {
			continue
		}
		child, err := a.elem.Instantiate(node, strconv.Itoa(i), node.environment, item)
		if err != nil {
			killFresh(node, created)
			return treeError("applySnapshot", node.childPath(strconv.Itoa(i)), err)
		}
		next[i] = child
		fresh[child] = true
		created = append(created, child)
	}

	kept := make(map[Node]bool, len(next))
	for _, child := range next {
		kept[child] = true
	}
	for _, child := range old {
		if !kept[child] {
			child.Die()
		}
	}

	node.setArrayChildren(next)
	for i, item := range items {
		if fresh[next[i]] {
			next[i].FinalizeCreation()
			continue
		}
		if err := node.reconcileChild(strconv.Itoa(i), a.elem, item); err != nil {
			return err
		}
	}
	return nil
}

func (a *ArrayType) snapshotOf(node *ObjectNode) any {
	out := make([]any, 0, len(node.keys))
	for _, key := range node.keys {
		out = append(out, node.children[key].Snapshot())
	}
	return out
}

func (a *ArrayType) fireUserHook(*ObjectNode, Hook) {}

// MapType is a string-keyed collection of elements of one type. Elements that
// are identified models must be stored under their identifier.
type MapType struct {
	elem Type
}

// Map declares a string-keyed map of elem.
func Map(elem Type) *MapType {
	return &MapType{elem: elem}
}

func (m *MapType) Name() string     { return "map<string, " + m.elem.Name() + ">" }
func (m *MapType) Describe() string { return "Map<string, " + m.elem.Describe() + ">" }
func (m *MapType) Flags() TypeFlags { return FlagMap }

// Elem returns the element type.
func (m *MapType) Elem() Type { return m.elem }

func (m *MapType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	return createNode(m, parent, subpath, env, snapshot)
}

func (m *MapType) Reconcile(current Node, value any) (Node, error) {
	return reconcileComplex(m, m, current, value)
}

func (m *MapType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	entries, ok := asMap(value)
	if !ok {
		return TypeCheckFailure(ctx, value, "Value is not a plain object")
	}
	var result ValidationResult
	for _, key := range sortedKeys(entries) {
		result = result.Merge(m.elem.IsValidSnapshot(entries[key], ctx.Child(key, m.elem)))
	}
	return result
}

func (m *MapType) Snapshot(node Node) any {
	return node.Snapshot()
}

func (m *MapType) kind() NodeKind { return KindMap }

func (m *MapType) childType(string) Type { return m.elem }

func (m *MapType) checkKeys(node *ObjectNode, entries map[string]any) error {
	for _, key := range sortedKeys(entries) {
		if err := checkMapKey(node.getEscapedPath(false), m.elem, key, entries[key]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MapType) initChildren(node *ObjectNode, snapshot any) error {
	entries, ok := asMap(snapshot)
	if !ok && snapshot != nil {
		return invalidSnapshot(m, snapshot, "a plain object")
	}
	if err := m.checkKeys(node, entries); err != nil {
		return err
	}
	for _, key := range sortedKeys(entries) {
		child, err := m.elem.Instantiate(node, key, node.environment, entries[key])
		if err != nil {
			return err
		}
		node.appendChild(key, child)
	}
	return nil
}

func (m *MapType) applySnapshot(node *ObjectNode, snapshot any) error {
	entries, _ := asMap(snapshot)
	if err := m.checkKeys(node, entries); err != nil {
		return err
	}

	var created []Node
	for _, key := range sortedKeys(entries) {
		if _, exists := node.children[key]; exists {
			continue
		}
		child, err := m.elem.Instantiate(node, key, node.environment, entries[key])
		if err != nil {
			killFresh(node, created)
			return treeError("applySnapshot", node.childPath(key), err)
		}
		created = append(created, child)
	}

	for _, key := range node.Keys() {
		if _, keep := entries[key]; keep {
			continue
		}
		node.children[key].Die()
		node.removeChild(key)
	}
	for _, key := range node.Keys() {
		if err := node.reconcileChild(key, m.elem, entries[key]); err != nil {
			killFresh(node, created)
			return err
		}
	}
	for _, child := range created {
		node.insertMapKey(child.Subpath(), child)
		child.FinalizeCreation()
	}
	return nil
}

func (m *MapType) snapshotOf(node *ObjectNode) any {
	out := make(map[string]any, len(node.keys))
	for _, key := range node.keys {
		out[key] = node.children[key].Snapshot()
	}
	return out
}

func (m *MapType) fireUserHook(*ObjectNode, Hook) {}

func sortedKeys(entries map[string]any) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
