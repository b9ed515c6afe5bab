package statetree

import (
	"fmt"
	"strings"
)

// Property is a named, typed model field.
type Property struct {
	Name string
	Type Type
}

// Prop declares a model property.
func Prop(name string, t Type) Property {
	return Property{Name: name, Type: t}
}

// LifecycleHooks are the callbacks a model type runs for its nodes.
type LifecycleHooks struct {
	AfterCreate   func(node *ObjectNode)
	AfterAttach   func(node *ObjectNode)
	BeforeDetach  func(node *ObjectNode)
	BeforeDestroy func(node *ObjectNode)
}

// ModelType is a structured type with a fixed set of properties, at most one
// of which is an identifier.
type ModelType struct {
	name           string
	props          []Property
	index          map[string]int
	identifierAttr string
	hooks          LifecycleHooks
}

// NewModel declares a model type. Property names must be unique and at most
// one property may be an identifier.
func NewModel(name string, props ...Property) (*ModelType, error) {
	m := &ModelType{
		name:  name,
		props: make([]Property, 0, len(props)),
		index: make(map[string]int, len(props)),
	}
	for _, prop := range props {
		if prop.Name == "" || prop.Type == nil {
			return nil, fmt.Errorf("%w: model %s has a property without name or type", ErrInvalidDefinition, name)
		}
		if _, exists := m.index[prop.Name]; exists {
			return nil, fmt.Errorf("%w: model %s declares %q twice", ErrInvalidDefinition, name, prop.Name)
		}
		if IsIdentifierType(prop.Type) {
			if m.identifierAttr != "" {
				return nil, fmt.Errorf("%w: model %s has multiple identifiers (%q and %q)", ErrInvalidDefinition, name, m.identifierAttr, prop.Name)
			}
			m.identifierAttr = prop.Name
		}
		m.index[prop.Name] = len(m.props)
		m.props = append(m.props, prop)
	}
	return m, nil
}

// Model is NewModel for package-level declarations; it panics on an invalid
// definition.
func Model(name string, props ...Property) *ModelType {
	m, err := NewModel(name, props...)
	if err != nil {
		panic(err)
	}
	return m
}

// WithHooks returns a copy of m running hooks for its nodes.
func (m *ModelType) WithHooks(hooks LifecycleHooks) *ModelType {
	clone := *m
	clone.hooks = hooks
	return &clone
}

func (m *ModelType) Name() string { return m.name }

func (m *ModelType) Describe() string {
	parts := make([]string, 0, len(m.props))
	for _, prop := range m.props {
		parts = append(parts, prop.Name+": "+prop.Type.Describe())
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func (m *ModelType) Flags() TypeFlags { return FlagObject }

// Properties returns the declared properties in order.
func (m *ModelType) Properties() []Property {
	return append([]Property(nil), m.props...)
}

// IdentifierAttribute names the identifier property, or "".
func (m *ModelType) IdentifierAttribute() string {
	return m.identifierAttr
}

func (m *ModelType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	return createNode(m, parent, subpath, env, snapshot)
}

func (m *ModelType) Reconcile(current Node, value any) (Node, error) {
	return reconcileComplex(m, m, current, value)
}

func (m *ModelType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	values, ok := asMap(value)
	if !ok {
		return TypeCheckFailure(ctx, value, "Value is not a plain object")
	}
	var result ValidationResult
	for _, prop := range m.props {
		result = result.Merge(prop.Type.IsValidSnapshot(values[prop.Name], ctx.Child(prop.Name, prop.Type)))
	}
	return result
}

func (m *ModelType) Snapshot(node Node) any {
	return node.Snapshot()
}

func (m *ModelType) kind() NodeKind { return KindModel }

func (m *ModelType) childType(key string) Type {
	i, ok := m.index[key]
	if !ok {
		return nil
	}
	return m.props[i].Type
}

func (m *ModelType) initChildren(node *ObjectNode, snapshot any) error {
	values, ok := asMap(snapshot)
	if !ok && snapshot != nil {
		return invalidSnapshot(m, snapshot, "a plain object")
	}
	for _, prop := range m.props {
		child, err := prop.Type.Instantiate(node, prop.Name, node.environment, values[prop.Name])
		if err != nil {
			return err
		}
		node.appendChild(prop.Name, child)
	}
	if m.identifierAttr != "" {
		node.identifier = NormalizeIdentifier(node.children[m.identifierAttr].StoredValue())
	}
	return nil
}

// applySnapshot reconciles the identifier first, so a changed identifier
// fails before any other property is touched.
func (m *ModelType) applySnapshot(node *ObjectNode, snapshot any) error {
	values, _ := asMap(snapshot)
	if m.identifierAttr != "" {
		if err := node.reconcileChild(m.identifierAttr, m.childType(m.identifierAttr), values[m.identifierAttr]); err != nil {
			return err
		}
	}
	for _, prop := range m.props {
		if prop.Name == m.identifierAttr {
			continue
		}
		if err := node.reconcileChild(prop.Name, prop.Type, values[prop.Name]); err != nil {
			return err
		}
	}
	return nil
}

func (m *ModelType) snapshotOf(node *ObjectNode) any {
	out := make(map[string]any, len(node.keys))
	for _, key := range node.keys {
		out[key] = node.children[key].Snapshot()
	}
	return out
}

func (m *ModelType) fireUserHook(node *ObjectNode, hook Hook) {
	var fn func(*ObjectNode)
	switch hook {
	case HookAfterCreate:
		fn = m.hooks.AfterCreate
	case HookAfterAttach:
		fn = m.hooks.AfterAttach
	case HookBeforeDetach:
		fn = m.hooks.BeforeDetach
	case HookBeforeDestroy:
		fn = m.hooks.BeforeDestroy
	}
	if fn != nil {
		fn(node)
	}
}
