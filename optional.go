package statetree

import "fmt"

// OptionalType wraps a type so missing (nil) snapshots take a default.
type OptionalType struct {
	inner        Type
	defaultValue any
}

// Optional wraps t with defaultSnapshot. It panics when the default is not a
// valid snapshot of t.
func Optional(t Type, defaultSnapshot any) *OptionalType {
	if err := Validate(t, defaultSnapshot); err != nil {
		panic(fmt.Errorf("%w: default of optional %s: %v", ErrInvalidDefinition, t.Name(), err))
	}
	return &OptionalType{inner: t, defaultValue: defaultSnapshot}
}

func (o *OptionalType) Name() string     { return o.inner.Name() }
func (o *OptionalType) Describe() string { return o.inner.Describe() + "?" }
func (o *OptionalType) Flags() TypeFlags { return o.inner.Flags() | FlagOptional }
func (o *OptionalType) Unwrap() Type     { return o.inner }

// Default returns the default snapshot.
func (o *OptionalType) Default() any { return o.defaultValue }

func (o *OptionalType) orDefault(value any) any {
	if value == nil {
		return o.defaultValue
	}
	return value
}

func (o *OptionalType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	return o.inner.Instantiate(parent, subpath, env, o.orDefault(snapshot))
}

func (o *OptionalType) Reconcile(current Node, value any) (Node, error) {
	return o.inner.Reconcile(current, o.orDefault(value))
}

func (o *OptionalType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	if value == nil {
		return TypeCheckSuccess()
	}
	return o.inner.IsValidSnapshot(value, ctx)
}

func (o *OptionalType) Snapshot(node Node) any {
	return o.inner.Snapshot(node)
}
