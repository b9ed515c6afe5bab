package statetree

// LifecycleEvent describes a state transition or a hook firing. Hook is empty
// for transitions; From and To are equal for hooks.
type LifecycleEvent struct {
	TypeName   string
	Path       string
	Subpath    string
	Identifier string
	Hook       Hook
	From       LifecycleState
	To         LifecycleState
	Err        error
}

// IsTransition reports whether the event records a state change.
func (e LifecycleEvent) IsTransition() bool {
	return e.Hook == "" && e.From != e.To
}

// LifecycleLogger records lifecycle events.
type LifecycleLogger interface {
	LogLifecycle(LifecycleEvent)
}

// LifecycleLoggerFunc adapts a function to LifecycleLogger.
type LifecycleLoggerFunc func(LifecycleEvent)

// LogLifecycle implements LifecycleLogger.
func (f LifecycleLoggerFunc) LogLifecycle(event LifecycleEvent) {
	if f != nil {
		f(event)
	}
}

type noopLifecycleLogger struct{}

func (noopLifecycleLogger) LogLifecycle(LifecycleEvent) {}

// LifecycleLoggers fans events out to several loggers.
type LifecycleLoggers []LifecycleLogger

// LogLifecycle implements LifecycleLogger.
func (l LifecycleLoggers) LogLifecycle(event LifecycleEvent) {
	for _, logger := range l {
		if logger != nil {
			logger.LogLifecycle(event)
		}
	}
}

func newLifecycleEvent(node Node, hook Hook, from, to LifecycleState) LifecycleEvent {
	b := node.base()
	path := b.pathUponDeath
	subpath := b.subpathUponDeath
	if b.state != StateDead {
		path = b.getEscapedPath(false)
		subpath = b.subpath
	}
	return LifecycleEvent{
		TypeName:   b.typ.Name(),
		Path:       path,
		Subpath:    subpath,
		Identifier: nodeIdentifier(node),
		Hook:       hook,
		From:       from,
		To:         to,
	}
}
