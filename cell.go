package statetree

import "github.com/goliatone/go-statetree/pkg/reactive"

// Cell is the observable primitive nodes use to publish path and aliveness
// changes. ReportObserved registers a read with the running computation;
// ReportChanged invalidates everything that registered.
type Cell interface {
	ReportObserved() bool
	ReportChanged()
}

// CellFactory creates cells. Nodes create their cells lazily, on first
// observed read.
type CellFactory interface {
	NewCell(name string) Cell
}

// Batcher is implemented by cell factories able to defer change
// notifications. Multi-step node transitions run inside Batch so observers
// re-run once, against a consistent node.
type Batcher interface {
	Batch(fn func())
}

// CellFactoryFunc adapts a function to CellFactory.
type CellFactoryFunc func(name string) Cell

// NewCell implements CellFactory.
func (f CellFactoryFunc) NewCell(name string) Cell {
	if f == nil {
		return noopCell{}
	}
	return f(name)
}

type reactiveCells struct {
	runtime *reactive.Runtime
}

// ReactiveCells returns a CellFactory backed by runtime. A nil runtime uses
// reactive.Default().
func ReactiveCells(runtime *reactive.Runtime) CellFactory {
	if runtime == nil {
		runtime = reactive.Default()
	}
	return reactiveCells{runtime: runtime}
}

func (c reactiveCells) NewCell(name string) Cell {
	return c.runtime.NewAtom(name)
}

func (c reactiveCells) Batch(fn func()) {
	c.runtime.Batch(fn)
}

// NoopCells returns a factory whose cells never notify anyone.
func NoopCells() CellFactory {
	return CellFactoryFunc(func(string) Cell { return noopCell{} })
}

type noopCell struct{}

func (noopCell) ReportObserved() bool { return false }

func (noopCell) ReportChanged() {}

func batch(factory CellFactory, fn func()) {
	if b, ok := factory.(Batcher); ok {
		b.Batch(fn)
		return
	}
	fn()
}
