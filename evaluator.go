package statetree

import (
	"errors"
	"time"
)

var ErrNoEvaluator = errors.New("statetree: evaluator not configured")

// PredicateContext carries the inputs of a refinement predicate.
type PredicateContext struct {
	Value    any
	Path     string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx PredicateContext) withDefaultNow() PredicateContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx PredicateContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx PredicateContext) withDefaultMaps() PredicateContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx PredicateContext) withDefaults() PredicateContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx PredicateContext) pathLabel() string {
	if ctx.Path == "" {
		return "<root>"
	}
	return ctx.Path
}

// Evaluator executes predicate expressions against a context.
type Evaluator interface {
	Evaluate(ctx PredicateContext, expr string) (any, error)
	Compile(expr string) (CompiledPredicate, error)
}

// CompiledPredicate is a reusable expression program.
type CompiledPredicate interface {
	Evaluate(ctx PredicateContext) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

func valueAsMap(value any) map[string]any {
	if m, ok := asMap(value); ok {
		return m
	}
	return nil
}
