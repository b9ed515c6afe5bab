package statetree

import (
	"fmt"
	"sort"
	"strconv"
)

// NodeKind distinguishes the composite node shapes.
type NodeKind int

const (
	KindModel NodeKind = iota + 1
	KindArray
	KindMap
)

func (k NodeKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// ObjectNode is a composite node: a model, an array or a map of child nodes.
// Array children are keyed "0", "1", ... in order; map keys are kept sorted.
type ObjectNode struct {
	BaseNode

	ctype             complexType
	keys              []string
	children          map[string]Node
	identifier        string
	snapshotUponDeath any
}

func newObjectNode(c complexType, parent *ObjectNode, subpath string, env any, snapshot any) (*ObjectNode, error) {
	n := &ObjectNode{ctype: c, children: map[string]Node{}}
	n.init(n, c, parent, subpath, env)
	if err := c.initChildren(n, snapshot); err != nil {
		n.abortCreation()
		return nil, err
	}
	n.setState(StateCreated)
	n.fireHook(HookAfterCreate)
	return n, nil
}

// abortCreation tears down a node whose children could not all be built. The
// node never became visible, so no user hooks fire for it.
func (n *ObjectNode) abortCreation() {
	for _, child := range n.Children() {
		if child.IsAlive() {
			child.Die()
		}
	}
	n.keys = nil
	n.children = map[string]Node{}
	n.baseFinalizeDeath()
}

func (n *ObjectNode) Kind() NodeKind {
	return n.ctype.kind()
}

// Get returns the child stored under key.
func (n *ObjectNode) Get(key string) (Node, bool) {
	child, ok := n.children[key]
	return child, ok
}

// Keys returns the child keys in order.
func (n *ObjectNode) Keys() []string {
	return append([]string(nil), n.keys...)
}

func (n *ObjectNode) Len() int {
	return len(n.keys)
}

// Children returns the child nodes in key order.
func (n *ObjectNode) Children() []Node {
	out := make([]Node, 0, len(n.keys))
	for _, key := range n.keys {
		out = append(out, n.children[key])
	}
	return out
}

// Identifier returns the normalized identifier of a model node, or "".
func (n *ObjectNode) Identifier() string {
	return n.identifier
}

// IdentifierAttribute names the identifier property of a model node, or "".
func (n *ObjectNode) IdentifierAttribute() string {
	if m, ok := n.ctype.(*ModelType); ok {
		return m.identifierAttr
	}
	return ""
}

// StoredValue returns the children: map[string]Node for models and maps,
// []Node for arrays.
func (n *ObjectNode) StoredValue() any {
	if n.Kind() == KindArray {
		return n.Children()
	}
	out := make(map[string]Node, len(n.children))
	for key, child := range n.children {
		out[key] = child
	}
	return out
}

// Snapshot returns the serializable form of the subtree. Dead nodes return the
// snapshot captured when they died.
func (n *ObjectNode) Snapshot() any {
	if n.state == StateDead {
		return n.snapshotUponDeath
	}
	return n.ctype.snapshotOf(n)
}

func (n *ObjectNode) SnapshotUponDeath() any {
	return n.snapshotUponDeath
}

// SetParent moves n under parent. A node that already has a parent cannot
// change it; it has to be detached first. A nil parent detaches.
func (n *ObjectNode) SetParent(parent *ObjectNode, subpath string) error {
	if !n.IsAlive() {
		return treeError("setParent", n.pathUponDeath, ErrDeadNode)
	}
	if parent == n.parent && subpath == n.subpath {
		return nil
	}
	if parent == nil {
		return n.Detach()
	}
	if parent != n.parent {
		if n.parent != nil {
			return treeError("setParent", n.getEscapedPath(false), ErrAlreadyAttached)
		}
		if parent.isDescendantOf(n) {
			return treeError("setParent", parent.getEscapedPath(false), ErrCyclicAttach)
		}
		batch(n.cfg.cells, func() {
			n.baseSetParent(parent, subpath)
			n.adopt(parent.cfg, parent.environment)
		})
		n.fireHook(HookAfterAttach)
		return nil
	}
	n.baseSetParent(n.parent, subpath)
	return nil
}

// adopt moves the subtree onto another tree's configuration.
func (n *ObjectNode) adopt(cfg *treeConfig, env any) {
	n.cfg = cfg
	n.environment = env
	for _, child := range n.Children() {
		if obj, ok := child.(*ObjectNode); ok {
			obj.adopt(cfg, env)
			continue
		}
		b := child.base()
		b.cfg = cfg
		b.environment = env
	}
}

func (n *ObjectNode) isDescendantOf(ancestor *ObjectNode) bool {
	for p := n; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// FinalizeCreation finalizes n and then its children, so after-attach runs
// parent first.
func (n *ObjectNode) FinalizeCreation() {
	n.baseFinalizeCreation(func() {
		for _, child := range n.Children() {
			child.FinalizeCreation()
		}
		n.fireInternalHook(HookAfterCreationFinalization)
	})
}

// AboutToDie notifies the children before n itself.
func (n *ObjectNode) AboutToDie() {
	for _, child := range n.Children() {
		if child.IsAlive() {
			child.AboutToDie()
		}
	}
	n.baseAboutToDie()
}

// FinalizeDeath captures the snapshot, finalizes the children while they are
// still attached, then n.
func (n *ObjectNode) FinalizeDeath() {
	if n.state == StateDead {
		invariant(false, "%s at %s is already dead", n.typ.Name(), describePath(n.pathUponDeath))
	}
	n.snapshotUponDeath = n.ctype.snapshotOf(n)
	for _, child := range n.Children() {
		if child.IsAlive() {
			child.FinalizeDeath()
		}
	}
	n.baseFinalizeDeath()
}

// Die tears the subtree down. Observers are notified once, after every node
// is dead.
func (n *ObjectNode) Die() {
	if !n.IsAlive() {
		return
	}
	batch(n.cfg.cells, func() {
		n.AboutToDie()
		n.FinalizeDeath()
	})
}

func (n *ObjectNode) fireHook(hook Hook) {
	n.fireInternalHook(hook)
	n.ctype.fireUserHook(n, hook)
	n.cfg.emitActivity(n, hook)
}

// declaredType is the type n's slot is declared with. It differs from Type()
// when the slot wraps the node's type, e.g. in a refinement.
func (n *ObjectNode) declaredType() Type {
	if n.parent != nil {
		if t := n.parent.ctype.childType(n.subpath); t != nil {
			return t
		}
	}
	return n.typ
}

// validationContext rebuilds the walk from the root down to n.
func (n *ObjectNode) validationContext() ValidationContext {
	var chain []*ObjectNode
	for p := n; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	ctx := RootContext(chain[len(chain)-1].declaredType())
	for i := len(chain) - 2; i >= 0; i-- {
		ctx = ctx.Child(chain[i].subpath, chain[i].declaredType())
	}
	return ctx
}

func (n *ObjectNode) childPath(key string) string {
	return n.getEscapedPath(false) + PathSeparator + EscapeSegment(key)
}

// ApplySnapshot reconciles the subtree with snapshot. The snapshot is fully
// validated and identifier constraints are checked before anything changes.
func (n *ObjectNode) ApplySnapshot(snapshot any) error {
	if !n.IsAlive() {
		return treeError("applySnapshot", n.pathUponDeath, ErrDeadNode)
	}
	declared := n.declaredType()
	if err := declared.IsValidSnapshot(snapshot, n.validationContext()).Err(declared, snapshot); err != nil {
		return err
	}
	if err := checkSnapshotIdentifiers(declared, n.getEscapedPath(false), snapshot); err != nil {
		return err
	}
	var err error
	batch(n.cfg.cells, func() {
		err = n.ctype.applySnapshot(n, snapshot)
	})
	return err
}

// Set replaces the child under key: a model property, an array index or a map
// key. value is a snapshot or a detached *ObjectNode root.
func (n *ObjectNode) Set(key string, value any) error {
	if !n.IsAlive() {
		return treeError("set", n.pathUponDeath, ErrDeadNode)
	}
	switch n.Kind() {
	case KindMap:
		return n.Put(key, value)
	case KindArray:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(n.keys) {
			return treeError("set", n.childPath(key), ErrIndexOutOfRange)
		}
		if err := n.checkUniqueInsert([]any{value}, n.children[key]); err != nil {
			return err
		}
	default:
		if n.ctype.childType(key) == nil {
			return treeError("set", n.getEscapedPath(false), fmt.Errorf("%w %q", ErrUnknownProperty, key))
		}
	}
	declared := n.ctype.childType(key)
	if err := n.checkValue(key, declared, value); err != nil {
		return err
	}
	var err error
	batch(n.cfg.cells, func() {
		err = n.reconcileChild(key, declared, value)
	})
	return err
}

// reconcileChild reconciles the existing child under key with value and
// stores the result.
func (n *ObjectNode) reconcileChild(key string, declared Type, value any) error {
	current := n.children[key]
	next, err := declared.Reconcile(current, value)
	if err != nil {
		return treeError("reconcile", n.childPath(key), err)
	}
	if next == current {
		return nil
	}
	n.children[key] = next
	next.FinalizeCreation()
	return nil
}

// checkValue validates value for the slot key without touching the tree.
func (n *ObjectNode) checkValue(key string, declared Type, value any) error {
	node, ok := value.(Node)
	if !ok {
		ctx := n.validationContext().Child(key, declared)
		if err := declared.IsValidSnapshot(value, ctx).Err(declared, value); err != nil {
			return err
		}
		return checkSnapshotIdentifiers(declared, n.childPath(key), value)
	}
	obj, ok := node.(*ObjectNode)
	switch {
	case !ok:
		return treeError("set", n.childPath(key), ErrScalarReparent)
	case !obj.IsAlive():
		return treeError("set", n.childPath(key), ErrDeadNode)
	case !isAssignableNode(declared, obj):
		return treeError("set", n.childPath(key), fmt.Errorf("%w: %s is not assignable to %s", ErrInvalidSnapshot, obj.Type().Name(), declared.Name()))
	case obj.parent == n && obj.subpath == key:
		return nil
	case obj.parent != nil:
		return treeError("set", obj.getEscapedPath(false), ErrAlreadyAttached)
	case n.isDescendantOf(obj):
		return treeError("set", n.childPath(key), ErrCyclicAttach)
	}
	return nil
}

// instantiateChild builds a fresh child from a snapshot. Node values are
// attached separately, once they are in place.
func (n *ObjectNode) instantiateChild(t Type, key string, value any) (Node, error) {
	if obj, ok := value.(*ObjectNode); ok {
		return obj, nil
	}
	return t.Instantiate(n, key, n.environment, value)
}

// placeChild finishes the insertion of a child built by instantiateChild.
func (n *ObjectNode) placeChild(child Node, key string) error {
	if child.Parent() != n {
		return child.SetParent(n, key)
	}
	child.FinalizeCreation()
	return nil
}

// Push appends values to an array node.
func (n *ObjectNode) Push(values ...any) error {
	return n.Insert(len(n.keys), values...)
}

// Insert adds values to an array node before index.
func (n *ObjectNode) Insert(index int, values ...any) error {
	if !n.IsAlive() {
		return treeError("insert", n.pathUponDeath, ErrDeadNode)
	}
	if n.Kind() != KindArray {
		return treeError("insert", n.getEscapedPath(false), ErrNotCollection)
	}
	if index < 0 || index > len(n.keys) {
		return treeError("insert", n.childPath(strconv.Itoa(index)), ErrIndexOutOfRange)
	}
	declared := n.ctype.childType("")
	for i, value := range values {
		if err := n.checkValue(strconv.Itoa(index+i), declared, value); err != nil {
			return err
		}
	}
	if err := n.checkDistinctNodes(index, values); err != nil {
		return err
	}
	if err := n.checkUniqueInsert(values, nil); err != nil {
		return err
	}

	var err error
	batch(n.cfg.cells, func() {
		created := make([]Node, 0, len(values))
		for i, value := range values {
			child, cerr := n.instantiateChild(declared, strconv.Itoa(index+i), value)
			if cerr != nil {
				killFresh(n, created)
				err = treeError("insert", n.childPath(strconv.Itoa(index+i)), cerr)
				return
			}
			created = append(created, child)
		}
		old := n.Children()
		next := make([]Node, 0, len(old)+len(created))
		next = append(next, old[:index]...)
		next = append(next, created...)
		next = append(next, old[index:]...)
		n.setArrayChildren(next)
		for i, child := range created {
			if perr := n.placeChild(child, strconv.Itoa(index+i)); perr != nil {
				err = perr
				return
			}
		}
	})
	return err
}

// RemoveAt kills the array child at index and shifts its successors down.
func (n *ObjectNode) RemoveAt(index int) error {
	if !n.IsAlive() {
		return treeError("remove", n.pathUponDeath, ErrDeadNode)
	}
	if n.Kind() != KindArray {
		return treeError("remove", n.getEscapedPath(false), ErrNotCollection)
	}
	if index < 0 || index >= len(n.keys) {
		return treeError("remove", n.childPath(strconv.Itoa(index)), ErrIndexOutOfRange)
	}
	batch(n.cfg.cells, func() {
		n.children[n.keys[index]].Die()
		n.removeChild(n.keys[index])
	})
	return nil
}

// Put stores value under key in a map node, reconciling an existing entry.
func (n *ObjectNode) Put(key string, value any) error {
	if !n.IsAlive() {
		return treeError("put", n.pathUponDeath, ErrDeadNode)
	}
	if n.Kind() != KindMap {
		return treeError("put", n.getEscapedPath(false), ErrNotCollection)
	}
	declared := n.ctype.childType(key)
	if err := n.checkValue(key, declared, value); err != nil {
		return err
	}
	if err := checkMapKey(n.getEscapedPath(false), declared, key, value); err != nil {
		return err
	}
	var err error
	batch(n.cfg.cells, func() {
		if _, exists := n.children[key]; exists {
			err = n.reconcileChild(key, declared, value)
			return
		}
		child, cerr := n.instantiateChild(declared, key, value)
		if cerr != nil {
			err = treeError("put", n.childPath(key), cerr)
			return
		}
		n.insertMapKey(key, child)
		if perr := n.placeChild(child, key); perr != nil {
			n.removeChild(key)
			err = perr
		}
	})
	return err
}

// Delete kills the map entry under key.
func (n *ObjectNode) Delete(key string) error {
	if !n.IsAlive() {
		return treeError("delete", n.pathUponDeath, ErrDeadNode)
	}
	if n.Kind() != KindMap {
		return treeError("delete", n.getEscapedPath(false), ErrNotCollection)
	}
	child, ok := n.children[key]
	if !ok {
		return treeError("delete", n.childPath(key), ErrNotFound)
	}
	batch(n.cfg.cells, func() {
		child.Die()
		n.removeChild(key)
	})
	return nil
}

// Detach removes n from its array or map parent and makes it the root of its
// own tree. It stays alive.
func (n *ObjectNode) Detach() error {
	if !n.IsAlive() {
		return treeError("detach", n.pathUponDeath, ErrDeadNode)
	}
	parent := n.parent
	if parent == nil {
		return nil
	}
	if parent.Kind() == KindModel {
		return treeError("detach", n.getEscapedPath(false), ErrNotCollection)
	}
	n.fireHook(HookBeforeDetach)
	batch(n.cfg.cells, func() {
		parent.removeChild(n.subpath)
		n.baseSetParent(nil, "")
	})
	return nil
}

// Destroy kills n and removes it from its array or map parent.
func (n *ObjectNode) Destroy() error {
	if !n.IsAlive() {
		return treeError("destroy", n.pathUponDeath, ErrDeadNode)
	}
	parent := n.parent
	if parent == nil {
		n.Die()
		return nil
	}
	if parent.Kind() == KindModel {
		return treeError("destroy", n.getEscapedPath(false), ErrNotCollection)
	}
	key := n.subpath
	batch(n.cfg.cells, func() {
		n.Die()
		parent.removeChild(key)
	})
	return nil
}

// ResolvePath walks path relative to n. ".." steps to the parent.
func (n *ObjectNode) ResolvePath(path string) (Node, error) {
	var current Node = n
	for _, segment := range SplitPath(path) {
		switch segment {
		case "", ".":
			continue
		case "..":
			parent := current.Parent()
			if parent == nil {
				return nil, treeError("resolve", path, ErrNotFound)
			}
			current = parent
			continue
		}
		obj, ok := current.(*ObjectNode)
		if !ok {
			return nil, treeError("resolve", path, ErrNotFound)
		}
		child, ok := obj.Get(segment)
		if !ok {
			return nil, treeError("resolve", path, ErrNotFound)
		}
		current = child
	}
	return current, nil
}

func (n *ObjectNode) appendChild(key string, child Node) {
	n.keys = append(n.keys, key)
	n.children[key] = child
}

func (n *ObjectNode) insertMapKey(key string, child Node) {
	i := sort.SearchStrings(n.keys, key)
	n.keys = append(n.keys, "")
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = key
	n.children[key] = child
}

// removeChild drops key without killing the child. Array successors are
// renumbered.
func (n *ObjectNode) removeChild(key string) {
	if n.Kind() == KindArray {
		old := n.Children()
		index, _ := strconv.Atoi(key)
		next := make([]Node, 0, len(old)-1)
		next = append(next, old[:index]...)
		next = append(next, old[index+1:]...)
		n.setArrayChildren(next)
		return
	}
	delete(n.children, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i], n.keys[i+1:]...)
			break
		}
	}
}

// setArrayChildren rekeys nodes by position and moves attached children to
// their new index.
func (n *ObjectNode) setArrayChildren(nodes []Node) {
	n.keys = make([]string, len(nodes))
	n.children = make(map[string]Node, len(nodes))
	for i, child := range nodes {
		key := strconv.Itoa(i)
		n.keys[i] = key
		n.children[key] = child
		if child.Parent() == n && child.Subpath() != key {
			child.base().baseSetParent(n, key)
		}
	}
}

// checkDistinctNodes rejects a live node passed more than once; a node holds
// exactly one slot.
func (n *ObjectNode) checkDistinctNodes(index int, values []any) error {
	seen := make(map[Node]bool, len(values))
	for i, value := range values {
		node, ok := value.(Node)
		if !ok {
			continue
		}
		if seen[node] {
			return treeError("insert", n.childPath(strconv.Itoa(index+i)), ErrAlreadyAttached)
		}
		seen[node] = true
	}
	return nil
}

// checkUniqueInsert rejects values whose identifiers collide with each other
// or with the current children, ignoring the child being replaced.
func (n *ObjectNode) checkUniqueInsert(values []any, replacing Node) error {
	model := identifiedModel(n.ctype.childType(""))
	if model == nil {
		return nil
	}
	seen := map[string]bool{}
	for _, child := range n.Children() {
		if child == replacing {
			continue
		}
		if obj, ok := child.(*ObjectNode); ok && obj.identifier != "" {
			seen[obj.identifier] = true
		}
	}
	for _, value := range values {
		id, ok := snapshotIdentifier(model, value)
		if !ok {
			continue
		}
		if seen[id] {
			return &DuplicateIdentifierError{Path: n.getEscapedPath(false), Type: model.Name(), Identifier: id}
		}
		seen[id] = true
	}
	return nil
}

// killFresh disposes of children built for an operation that failed.
func killFresh(parent *ObjectNode, nodes []Node) {
	for _, child := range nodes {
		if child.Parent() == parent && child.IsAlive() {
			child.Die()
		}
	}
}
