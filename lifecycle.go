package statetree

// LifecycleState tracks where a node is in its life. States only move forward.
type LifecycleState int

const (
	// StateInitializing marks a node whose value is not wired yet.
	StateInitializing LifecycleState = iota
	// StateCreated marks a node whose value is wired and whose after-create
	// hooks have fired.
	StateCreated
	// StateFinalized marks a root, or a node attached under a finalized parent.
	StateFinalized
	// StateDead is terminal: the node is detached and its hooks are cleared.
	StateDead
)

func (s LifecycleState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateCreated:
		return "created"
	case StateFinalized:
		return "finalized"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Hook names a lifecycle event dispatched to subscribers.
type Hook string

const (
	HookAfterCreate               Hook = "afterCreate"
	HookAfterAttach               Hook = "afterAttach"
	HookAfterCreationFinalization Hook = "afterCreationFinalization"
	HookBeforeDetach              Hook = "beforeDetach"
	HookBeforeDestroy             Hook = "beforeDestroy"
)

// Hooks lists every lifecycle hook in firing order for a node that is
// created, attached, detached and destroyed.
var Hooks = []Hook{
	HookAfterCreate,
	HookAfterAttach,
	HookAfterCreationFinalization,
	HookBeforeDetach,
	HookBeforeDestroy,
}
