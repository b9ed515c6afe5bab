package statetree

import (
	"errors"
	"fmt"
	"time"
)

// RefinementOption configures a refinement type.
type RefinementOption func(*refinementConfig)

type refinementConfig struct {
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
	message   string
	errs      []error
}

// RefineWithEvaluator evaluates the predicate with evaluator instead of the
// default expr engine.
func RefineWithEvaluator(evaluator Evaluator) RefinementOption {
	return func(cfg *refinementConfig) {
		cfg.evaluator = evaluator
	}
}

// RefineWithProgramCache gives the default evaluator a program cache.
func RefineWithProgramCache(cache ProgramCache) RefinementOption {
	return func(cfg *refinementConfig) {
		cfg.cache = cache
	}
}

// RefineWithFunctionRegistry exposes registry to the default evaluator.
func RefineWithFunctionRegistry(registry *FunctionRegistry) RefinementOption {
	return func(cfg *refinementConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// RefineWithFunction registers fn for the default evaluator.
func RefineWithFunction(name string, fn Function) RefinementOption {
	return func(cfg *refinementConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.errs = append(cfg.errs, err)
		}
	}
}

// RefineWithLogger records every predicate evaluation.
func RefineWithLogger(logger EvaluatorLogger) RefinementOption {
	return func(cfg *refinementConfig) {
		cfg.logger = logger
	}
}

// RefineWithMessage sets the validation message used when the predicate
// rejects a value.
func RefineWithMessage(message string) RefinementOption {
	return func(cfg *refinementConfig) {
		cfg.message = message
	}
}

// RefinementType narrows another type with a predicate expression. Inside the
// expression the candidate snapshot is bound to value and the validation path
// to path.
type RefinementType struct {
	name       string
	inner      Type
	expression string
	engine     string
	predicate  CompiledPredicate
	logger     EvaluatorLogger
	message    string
}

// Refinement compiles expression and returns the refined type. Identifier
// flags carry over, so a refined identifier still identifies its model.
func Refinement(name string, t Type, expression string, opts ...RefinementOption) (*RefinementType, error) {
	cfg := refinementConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := errors.Join(cfg.errs...); err != nil {
		return nil, fmt.Errorf("%w: refinement %s: %w", ErrInvalidDefinition, name, err)
	}
	evaluator, err := cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	predicate, err := evaluator.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: refinement %s: %w", ErrInvalidDefinition, name, err)
	}
	r := &RefinementType{
		name:       name,
		inner:      t,
		expression: expression,
		engine:     evaluatorEngineName(evaluator),
		predicate:  predicate,
		logger:     cfg.logger,
		message:    cfg.message,
	}
	if r.logger == nil {
		r.logger = noopEvaluatorLogger{}
	}
	if r.message == "" {
		r.message = "Value does not respect the refinement predicate"
	}
	return r, nil
}

func (cfg refinementConfig) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cfg.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.cache))
	}
	if cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return evaluator, nil
}

// namedEngine is implemented by the built-in evaluators.
type namedEngine interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}

func (r *RefinementType) Name() string     { return r.name }
func (r *RefinementType) Describe() string { return r.name }
func (r *RefinementType) Flags() TypeFlags { return r.inner.Flags() | FlagRefinement }
func (r *RefinementType) Unwrap() Type     { return r.inner }

// Expression returns the predicate source.
func (r *RefinementType) Expression() string { return r.expression }

func (r *RefinementType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	return r.inner.Instantiate(parent, subpath, env, snapshot)
}

func (r *RefinementType) Reconcile(current Node, value any) (Node, error) {
	return r.inner.Reconcile(current, value)
}

// IsValidSnapshot checks the wrapped type first; the predicate only sees
// values the wrapped type accepts.
func (r *RefinementType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	if result := r.inner.IsValidSnapshot(value, ctx); !result.Valid() {
		return result
	}
	candidate := value
	if node, ok := value.(Node); ok {
		candidate = node.Snapshot()
	}
	path := ctx.Path()
	start := time.Now()
	out, err := r.predicate.Evaluate(PredicateContext{Value: candidate, Path: path})
	passed, _ := out.(bool)
	r.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   r.engine,
		Expr:     r.expression,
		Path:     path,
		Duration: time.Since(start),
		Rejected: err == nil && !passed,
		Err:      err,
	})
	if err != nil {
		return TypeCheckFailure(ctx, value, err.Error())
	}
	if !passed {
		return TypeCheckFailure(ctx, value, r.message)
	}
	return TypeCheckSuccess()
}

func (r *RefinementType) Snapshot(node Node) any {
	return r.inner.Snapshot(node)
}
