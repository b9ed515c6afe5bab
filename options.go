package statetree

import (
	"context"

	"github.com/goliatone/go-statetree/pkg/activity"
	"github.com/goliatone/go-statetree/pkg/reactive"
)

// Option configures a tree at creation time.
type Option func(*treeConfig)

type treeConfig struct {
	environment any
	cells       CellFactory
	logger      LifecycleLogger
	emitter     *activity.Emitter
}

// defaultTreeConfig gives every tree its own reactive runtime, so trees built
// on different goroutines share no state.
func defaultTreeConfig() *treeConfig {
	return &treeConfig{
		cells:  ReactiveCells(reactive.NewRuntime()),
		logger: noopLifecycleLogger{},
	}
}

func applyOptions(opts []Option) *treeConfig {
	cfg := defaultTreeConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// rootEnvironment carries the tree configuration into root construction. It
// never escapes: nodes unwrap it into their environment and config fields.
type rootEnvironment struct {
	env any
	cfg *treeConfig
}

// WithEnvironment sets the opaque environment threaded to every node.
func WithEnvironment(env any) Option {
	return func(cfg *treeConfig) {
		cfg.environment = env
	}
}

// WithCellFactory replaces the observable cells used for path and aliveness.
// Nil selects cells that never notify.
func WithCellFactory(factory CellFactory) Option {
	return func(cfg *treeConfig) {
		if factory == nil {
			cfg.cells = NoopCells()
			return
		}
		cfg.cells = factory
	}
}

// WithLifecycleLogger attaches a logger that receives every transition and
// hook of the tree.
func WithLifecycleLogger(logger LifecycleLogger) Option {
	return func(cfg *treeConfig) {
		if logger == nil {
			cfg.logger = noopLifecycleLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks mirrors composite node hooks as activity events. Nil
// entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	return WithActivityEmitter(activity.NewEmitter(hooks, activity.Config{Enabled: true}))
}

// WithActivityEmitter uses a preconfigured emitter for activity events.
func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(cfg *treeConfig) {
		cfg.emitter = emitter
	}
}

func (cfg *treeConfig) logTransition(node Node, from, to LifecycleState) {
	cfg.logger.LogLifecycle(newLifecycleEvent(node, "", from, to))
}

func (cfg *treeConfig) logHook(node Node, hook Hook) {
	cfg.logger.LogLifecycle(newLifecycleEvent(node, hook, node.State(), node.State()))
}

// emitActivity forwards a composite node hook to the activity emitter. Sink
// failures are reported to the logger; they never interrupt the lifecycle.
func (cfg *treeConfig) emitActivity(node *ObjectNode, hook Hook) {
	if !cfg.emitter.Enabled() {
		return
	}
	event, ok := activity.BuildNodeEvent(activityVerb(hook), activity.NodeEventInput{
		TypeName:   node.Type().Name(),
		Identifier: nodeIdentifier(node),
		Path:       node.getEscapedPath(false),
		Subpath:    node.Subpath(),
		State:      node.State().String(),
	})
	if !ok {
		return
	}
	if err := cfg.emitter.Emit(context.Background(), event); err != nil {
		failed := newLifecycleEvent(node, hook, node.State(), node.State())
		failed.Err = err
		cfg.logger.LogLifecycle(failed)
	}
}

func activityVerb(hook Hook) string {
	switch hook {
	case HookAfterCreate:
		return activity.VerbNodeCreated
	case HookAfterAttach:
		return activity.VerbNodeAttached
	case HookBeforeDetach:
		return activity.VerbNodeDetached
	case HookBeforeDestroy:
		return activity.VerbNodeDestroyed
	default:
		return ""
	}
}
