package statetree

// Node is the capability surface shared by every node kind. The set of
// implementations is closed: *ScalarNode and *ObjectNode.
type Node interface {
	Type() Type
	Parent() *ObjectNode
	Subpath() string
	// Path is the escaped path from the root. Reading it registers an
	// observation with the node's path cell and with every ancestor's.
	Path() string
	IsRoot() bool
	Root() Node
	State() LifecycleState
	// IsAlive is a plain read; ObservableIsAlive also registers an observation.
	IsAlive() bool
	ObservableIsAlive() bool
	Environment() any
	StoredValue() any
	Snapshot() any
	SubpathUponDeath() string
	PathUponDeath() string
	Hooks() *HookDispatcher

	SetParent(parent *ObjectNode, subpath string) error
	FinalizeCreation()
	AboutToDie()
	FinalizeDeath()
	Die()

	base() *BaseNode
	fireHook(hook Hook)
}

// BaseNode holds the lifecycle state shared by all node kinds. It is embedded
// by the concrete kinds, which supply hook dispatch and teardown order.
type BaseNode struct {
	self        Node
	typ         Type
	storedValue any
	environment any
	cfg         *treeConfig

	parent         *ObjectNode
	subpath        string
	escapedSubpath string
	escapedValid   bool

	state            LifecycleState
	subpathUponDeath string
	pathUponDeath    string

	hooks     HookDispatcher
	pathCell  Cell
	aliveCell Cell
}

func (n *BaseNode) init(self Node, t Type, parent *ObjectNode, subpath string, env any) {
	n.self = self
	n.typ = t
	n.state = StateInitializing
	switch {
	case parent != nil:
		n.cfg = parent.cfg
	default:
		if root, ok := env.(*rootEnvironment); ok {
			n.cfg = root.cfg
			env = root.env
		}
	}
	if n.cfg == nil {
		n.cfg = defaultTreeConfig()
	}
	n.environment = env
	n.baseSetParent(parent, subpath)
}

func (n *BaseNode) base() *BaseNode {
	return n
}

// Type returns the type the node was built from.
func (n *BaseNode) Type() Type {
	return n.typ
}

// Parent returns the owning composite node, or nil for roots and dead nodes.
func (n *BaseNode) Parent() *ObjectNode {
	return n.parent
}

// Subpath returns the raw key under the parent. It is empty for roots.
func (n *BaseNode) Subpath() string {
	return n.subpath
}

func (n *BaseNode) Environment() any {
	return n.environment
}

func (n *BaseNode) StoredValue() any {
	return n.storedValue
}

func (n *BaseNode) State() LifecycleState {
	return n.state
}

func (n *BaseNode) IsRoot() bool {
	return n.parent == nil
}

// Root walks parent links to the top of the tree.
func (n *BaseNode) Root() Node {
	var current Node = n.self
	for current.Parent() != nil {
		current = current.Parent()
	}
	return current
}

func (n *BaseNode) SubpathUponDeath() string {
	return n.subpathUponDeath
}

func (n *BaseNode) PathUponDeath() string {
	return n.pathUponDeath
}

// Hooks exposes the subscriber registry.
func (n *BaseNode) Hooks() *HookDispatcher {
	return &n.hooks
}

func (n *BaseNode) IsAlive() bool {
	return n.state != StateDead
}

func (n *BaseNode) ObservableIsAlive() bool {
	if n.aliveCell == nil {
		n.aliveCell = n.cfg.cells.NewCell("alive")
	}
	n.aliveCell.ReportObserved()
	return n.IsAlive()
}

func (n *BaseNode) Path() string {
	return n.getEscapedPath(true)
}

func (n *BaseNode) getEscapedPath(reportObserved bool) string {
	if reportObserved {
		if n.pathCell == nil {
			n.pathCell = n.cfg.cells.NewCell("path")
		}
		n.pathCell.ReportObserved()
	}
	if n.parent == nil {
		return ""
	}
	if !n.escapedValid {
		n.escapedSubpath = EscapeSegment(n.subpath)
		n.escapedValid = true
	}
	return n.parent.getEscapedPath(reportObserved) + PathSeparator + n.escapedSubpath
}

func (n *BaseNode) setState(next LifecycleState) {
	if next <= n.state {
		invariant(false, "invalid lifecycle transition %s -> %s for %s at %s", n.state, next, n.typ.Name(), describePath(n.getEscapedPath(false)))
	}
	wasAlive := n.IsAlive()
	previous := n.state
	n.state = next
	if n.aliveCell != nil && wasAlive != n.IsAlive() {
		n.aliveCell.ReportChanged()
	}
	n.cfg.logTransition(n.self, previous, next)
}

// baseSetParent reassigns parent and subpath. The path cell is only
// invalidated when something actually changed.
func (n *BaseNode) baseSetParent(parent *ObjectNode, subpath string) {
	changed := n.parent != parent || n.subpath != subpath
	n.parent = parent
	n.subpath = subpath
	n.escapedValid = false
	if changed && n.pathCell != nil {
		n.pathCell.ReportChanged()
	}
}

func (n *BaseNode) fireInternalHook(hook Hook) {
	n.hooks.Emit(hook, n.self)
	n.cfg.logHook(n.self, hook)
}

// baseFinalizeCreation moves CREATED to FINALIZED. A node under a parent that
// is not finalized yet stays CREATED; the parent retries when it finalizes, so
// after-attach runs parent first.
func (n *BaseNode) baseFinalizeCreation(whenFinalized func()) {
	if n.state != StateCreated {
		return
	}
	if n.parent != nil {
		if n.parent.State() != StateFinalized {
			return
		}
		n.self.fireHook(HookAfterAttach)
	}
	n.setState(StateFinalized)
	if whenFinalized != nil {
		whenFinalized()
	}
}

func (n *BaseNode) baseAboutToDie() {
	n.self.fireHook(HookBeforeDestroy)
}

func (n *BaseNode) baseFinalizeDeath() {
	if n.state == StateDead {
		invariant(false, "%s at %s is already dead", n.typ.Name(), describePath(n.pathUponDeath))
	}
	n.hooks.ClearAll()
	n.subpathUponDeath = n.subpath
	n.pathUponDeath = n.getEscapedPath(false)
	batch(n.cfg.cells, func() {
		n.baseSetParent(nil, "")
		n.setState(StateDead)
	})
}
