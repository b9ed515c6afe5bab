package statetree

// ScalarNode wraps a primitive value. It has no children and fires only
// subscriber hooks.
type ScalarNode struct {
	BaseNode
}

func newScalarNode(t Type, parent *ObjectNode, subpath string, env any, snapshot any) *ScalarNode {
	n := &ScalarNode{}
	n.init(n, t, parent, subpath, env)
	n.storedValue = snapshot
	n.setState(StateCreated)
	return n
}

// Snapshot returns the stored value in the form its type serializes it.
func (n *ScalarNode) Snapshot() any {
	return n.typ.Snapshot(n)
}

// SetParent only accepts a subpath change; scalars never move between parents.
func (n *ScalarNode) SetParent(parent *ObjectNode, subpath string) error {
	if n.parent == parent && n.subpath == subpath {
		return nil
	}
	if n.parent != parent {
		return treeError("setParent", n.getEscapedPath(false), ErrScalarReparent)
	}
	n.baseSetParent(parent, subpath)
	return nil
}

func (n *ScalarNode) FinalizeCreation() {
	n.baseFinalizeCreation(nil)
}

func (n *ScalarNode) AboutToDie() {
	n.baseAboutToDie()
}

func (n *ScalarNode) FinalizeDeath() {
	n.baseFinalizeDeath()
}

func (n *ScalarNode) Die() {
	if !n.IsAlive() {
		return
	}
	n.AboutToDie()
	n.FinalizeDeath()
}

func (n *ScalarNode) fireHook(hook Hook) {
	n.fireInternalHook(hook)
}
