package statetree

// TypeFlags classifies a type. Wrapping types (refinements, optionals) carry
// the flags of the type they wrap.
type TypeFlags uint32

const (
	FlagString TypeFlags = 1 << iota
	FlagNumber
	FlagInteger
	FlagBoolean
	FlagIdentifier
	FlagObject
	FlagArray
	FlagMap
	FlagRefinement
	FlagOptional
)

// Has reports whether every bit of mask is set.
func (f TypeFlags) Has(mask TypeFlags) bool {
	return f&mask == mask
}

// Type describes the values a node may hold and how nodes of that shape are
// built, reconciled and serialized.
type Type interface {
	// Name is the declared name, used in error messages.
	Name() string
	// Describe is a structural description, used in validation messages.
	Describe() string
	Flags() TypeFlags
	// Instantiate builds a node for snapshot under parent at subpath. Parent is
	// nil for roots.
	Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error)
	// Reconcile applies value over current and returns the node that should
	// occupy current's slot: current itself, or a replacement.
	Reconcile(current Node, value any) (Node, error)
	// IsValidSnapshot never panics; failures are returned as data.
	IsValidSnapshot(value any, ctx ValidationContext) ValidationResult
	// Snapshot returns the serializable form of node.
	Snapshot(node Node) any
}

// complexType is implemented by the types whose nodes are *ObjectNode.
type complexType interface {
	Type
	kind() NodeKind
	initChildren(node *ObjectNode, snapshot any) error
	applySnapshot(node *ObjectNode, snapshot any) error
	snapshotOf(node *ObjectNode) any
	childType(key string) Type
	fireUserHook(node *ObjectNode, hook Hook)
}

// unwrapper is implemented by wrapping types.
type unwrapper interface {
	Unwrap() Type
}

// baseType returns the innermost wrapped type.
func baseType(t Type) Type {
	for {
		u, ok := t.(unwrapper)
		if !ok {
			return t
		}
		t = u.Unwrap()
	}
}

func asComplex(t Type) (complexType, bool) {
	c, ok := baseType(t).(complexType)
	return c, ok
}

// isAssignableNode reports whether a live node can occupy a slot typed t.
func isAssignableNode(t Type, node Node) bool {
	if node == nil {
		return false
	}
	return baseType(t) == baseType(node.Type())
}

// Validate runs t.IsValidSnapshot from the root and returns the failures as an
// error, or nil.
func Validate(t Type, snapshot any) error {
	return t.IsValidSnapshot(snapshot, RootContext(t)).Err(t, snapshot)
}

// createNode is the generic node constructor: complex types yield an
// *ObjectNode, everything else a *ScalarNode.
func createNode(t Type, parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	if c, ok := t.(complexType); ok {
		return newObjectNode(c, parent, subpath, env, snapshot)
	}
	return newScalarNode(t, parent, subpath, env, snapshot), nil
}

// replaceScalar is the reconcile step shared by value types: equal values keep
// the node, anything else builds a replacement and kills current.
func replaceScalar(t Type, current Node, value any, equal func(a, b any) bool) (Node, error) {
	if current.IsAlive() && baseType(current.Type()) == baseType(t) && equal(current.StoredValue(), value) {
		return current, nil
	}
	next, err := t.Instantiate(current.Parent(), current.Subpath(), current.Environment(), value)
	if err != nil {
		return nil, err
	}
	if current.IsAlive() {
		current.Die()
	}
	return next, nil
}
