package statetree

import "reflect"

// ScalarType is a primitive value type.
type ScalarType struct {
	name    string
	flags   TypeFlags
	accepts func(any) bool
	equal   func(a, b any) bool
	message string
}

var (
	String = &ScalarType{
		name:    "string",
		flags:   FlagString,
		accepts: func(v any) bool { return reflect.ValueOf(v).Kind() == reflect.String },
		equal:   scalarEqual,
		message: "Value is not a string",
	}
	Number = &ScalarType{
		name:    "number",
		flags:   FlagNumber,
		accepts: isNumber,
		equal:   numbersEqual,
		message: "Value is not a number",
	}
	Integer = &ScalarType{
		name:    "integer",
		flags:   FlagNumber | FlagInteger,
		accepts: isInteger,
		equal:   numbersEqual,
		message: "Value is not an integer",
	}
	Boolean = &ScalarType{
		name:    "boolean",
		flags:   FlagBoolean,
		accepts: func(v any) bool { _, ok := v.(bool); return ok },
		equal:   scalarEqual,
		message: "Value is not a boolean",
	}
)

func (t *ScalarType) Name() string     { return t.name }
func (t *ScalarType) Describe() string { return t.name }
func (t *ScalarType) Flags() TypeFlags { return t.flags }

func (t *ScalarType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	return createNode(t, parent, subpath, env, snapshot)
}

func (t *ScalarType) Reconcile(current Node, value any) (Node, error) {
	return replaceScalar(t, current, value, t.equal)
}

func (t *ScalarType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	if value != nil && t.accepts(value) {
		return TypeCheckSuccess()
	}
	return TypeCheckFailure(ctx, value, t.message)
}

func (t *ScalarType) Snapshot(node Node) any {
	return node.StoredValue()
}

func scalarEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
