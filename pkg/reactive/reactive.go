// Package reactive is a small synchronous observable runtime. Atoms record
// which reactions read them and re-run those reactions when they change.
//
// A Runtime is not safe for concurrent use. All reads and writes happen on the
// calling goroutine and reactions run before ReportChanged (or the outermost
// Batch) returns.
package reactive

import "fmt"

// maxIterations bounds how often pending reactions may be flushed in one
// cycle before the runtime gives up on convergence.
const maxIterations = 100

// Runtime tracks the reaction currently executing and the reactions waiting
// to re-run.
type Runtime struct {
	tracking   []*Reaction
	batchDepth int
	pending    []*Reaction
	flushing   bool
}

// NewRuntime constructs an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{}
}

var defaultRuntime = NewRuntime()

// Default returns the process-wide runtime used by the package helpers.
func Default() *Runtime {
	return defaultRuntime
}

// NewAtom creates an atom on the default runtime.
func NewAtom(name string) *Atom {
	return defaultRuntime.NewAtom(name)
}

// Autorun runs fn on the default runtime and re-runs it whenever an atom it
// observed changes.
func Autorun(fn func()) *Reaction {
	return defaultRuntime.Autorun(fn)
}

// Batch defers reactions on the default runtime until fn returns.
func Batch(fn func()) {
	defaultRuntime.Batch(fn)
}

// Untracked runs fn on the default runtime without recording reads.
func Untracked(fn func()) {
	defaultRuntime.Untracked(fn)
}

// NewAtom creates an atom bound to r.
func (r *Runtime) NewAtom(name string) *Atom {
	return &Atom{name: name, runtime: r}
}

// Autorun runs fn immediately, tracking the atoms it reads.
func (r *Runtime) Autorun(fn func()) *Reaction {
	reaction := &Reaction{runtime: r, fn: fn}
	reaction.run()
	return reaction
}

// Batch runs fn and flushes pending reactions once the outermost batch ends.
func (r *Runtime) Batch(fn func()) {
	r.batchDepth++
	defer func() {
		r.batchDepth--
		if r.batchDepth == 0 {
			r.flush()
		}
	}()
	fn()
}

// Untracked runs fn without a current reaction, so reads are not recorded.
func (r *Runtime) Untracked(fn func()) {
	saved := r.tracking
	r.tracking = nil
	defer func() {
		r.tracking = saved
	}()
	fn()
}

func (r *Runtime) current() *Reaction {
	if len(r.tracking) == 0 {
		return nil
	}
	return r.tracking[len(r.tracking)-1]
}

func (r *Runtime) schedule(reaction *Reaction) {
	if reaction.scheduled || reaction.disposed {
		return
	}
	reaction.scheduled = true
	r.pending = append(r.pending, reaction)
}

func (r *Runtime) flush() {
	if r.flushing || r.batchDepth > 0 || len(r.tracking) > 0 {
		return
	}
	r.flushing = true
	defer func() {
		r.flushing = false
	}()
	for iteration := 0; len(r.pending) > 0; iteration++ {
		if iteration >= maxIterations {
			r.pending = nil
			panic(fmt.Sprintf("reactive: reactions did not converge after %d iterations", maxIterations))
		}
		queue := r.pending
		r.pending = nil
		for _, reaction := range queue {
			reaction.scheduled = false
			if reaction.disposed {
				continue
			}
			reaction.run()
		}
	}
}

// Atom is an observable cell. It satisfies statetree.Cell.
type Atom struct {
	name      string
	runtime   *Runtime
	observers []*Reaction
	listeners []*listener
}

type listener struct {
	fn func()
}

// Name returns the debug name given at construction.
func (a *Atom) Name() string {
	return a.name
}

// Observers returns the number of reactions currently depending on a.
func (a *Atom) Observers() int {
	return len(a.observers)
}

// ReportObserved records a read by the running reaction, if any. It reports
// whether a reaction was tracking.
func (a *Atom) ReportObserved() bool {
	reaction := a.runtime.current()
	if reaction == nil {
		return false
	}
	reaction.track(a)
	return true
}

// ReportChanged schedules every observer and listener of a.
func (a *Atom) ReportChanged() {
	for _, l := range append([]*listener(nil), a.listeners...) {
		l.fn()
	}
	for _, reaction := range append([]*Reaction(nil), a.observers...) {
		a.runtime.schedule(reaction)
	}
	a.runtime.flush()
}

// Subscribe calls fn on every change of a, outside any reaction tracking. The
// returned function removes the subscription.
func (a *Atom) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	l := &listener{fn: fn}
	a.listeners = append(a.listeners, l)
	return func() {
		for i, candidate := range a.listeners {
			if candidate == l {
				a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

func (a *Atom) addObserver(reaction *Reaction) {
	for _, existing := range a.observers {
		if existing == reaction {
			return
		}
	}
	a.observers = append(a.observers, reaction)
}

func (a *Atom) removeObserver(reaction *Reaction) {
	for i, existing := range a.observers {
		if existing == reaction {
			a.observers = append(a.observers[:i:i], a.observers[i+1:]...)
			return
		}
	}
}

// Reaction re-runs a function whenever an atom it read changes.
type Reaction struct {
	runtime   *Runtime
	fn        func()
	deps      []*Atom
	runs      int
	scheduled bool
	disposed  bool
}

// Runs returns how many times the reaction function has executed.
func (x *Reaction) Runs() int {
	return x.runs
}

// Dispose stops the reaction and releases its dependencies.
func (x *Reaction) Dispose() {
	if x.disposed {
		return
	}
	x.disposed = true
	x.clearDeps()
}

func (x *Reaction) track(a *Atom) {
	for _, dep := range x.deps {
		if dep == a {
			return
		}
	}
	x.deps = append(x.deps, a)
	a.addObserver(x)
}

func (x *Reaction) clearDeps() {
	for _, dep := range x.deps {
		dep.removeObserver(x)
	}
	x.deps = nil
}

func (x *Reaction) run() {
	if x.disposed || x.fn == nil {
		return
	}
	x.clearDeps()
	x.runtime.tracking = append(x.runtime.tracking, x)
	defer func() {
		x.runtime.tracking = x.runtime.tracking[:len(x.runtime.tracking)-1]
		x.runtime.flush()
	}()
	x.runs++
	x.fn()
}
