package statetree

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// IdentifierType is the type of a model's identifying property. Identifier
// nodes live directly under a model node and their value never changes.
type IdentifierType struct {
	numeric bool
}

var (
	// Identifier accepts string identifiers.
	Identifier = &IdentifierType{}
	// IdentifierNumber accepts numeric identifiers and snapshots them as the
	// stored number.
	IdentifierNumber = &IdentifierType{numeric: true}
)

func (t *IdentifierType) Name() string {
	if t.numeric {
		return "identifierNumber"
	}
	return "identifier"
}

func (t *IdentifierType) Describe() string {
	return t.Name()
}

func (t *IdentifierType) Flags() TypeFlags {
	if t.numeric {
		return FlagIdentifier | FlagNumber
	}
	return FlagIdentifier | FlagString
}

// Instantiate fails with *InvalidParentKindError unless parent is a model
// node. Nothing is allocated on failure.
func (t *IdentifierType) Instantiate(parent *ObjectNode, subpath string, env any, snapshot any) (Node, error) {
	if parent == nil || parent.Kind() != KindModel {
		parentName := ""
		if parent != nil {
			parentName = parent.Type().Name()
		}
		return nil, &InvalidParentKindError{Type: t.Name(), Subpath: subpath, Parent: parentName}
	}
	return createNode(t, parent, subpath, env, snapshot)
}

// Reconcile returns current when value has the same normalized form and an
// *ImmutableIdentifierChangeError otherwise.
func (t *IdentifierType) Reconcile(current Node, value any) (Node, error) {
	stored := current.StoredValue()
	if NormalizeIdentifier(stored) != NormalizeIdentifier(value) {
		return nil, &ImmutableIdentifierChangeError{
			Path: current.base().getEscapedPath(false),
			From: stored,
			To:   value,
		}
	}
	return current, nil
}

func (t *IdentifierType) IsValidSnapshot(value any, ctx ValidationContext) ValidationResult {
	if t.numeric {
		if isFiniteNumber(value) {
			return TypeCheckSuccess()
		}
		return TypeCheckFailure(ctx, value, "Value is not a valid identifierNumber, expected a finite number")
	}
	if _, ok := value.(string); ok {
		return TypeCheckSuccess()
	}
	return TypeCheckFailure(ctx, value, "Value is not a valid identifier, expected a string")
}

// Snapshot returns the stored value unchanged, so numeric identifiers keep
// their runtime number type.
func (t *IdentifierType) Snapshot(node Node) any {
	return node.StoredValue()
}

// NormalizeIdentifier returns the canonical string form used to compare
// identifiers. Numbers format without exponent or trailing zeros, so 1, 1.0,
// json.Number("1") and "1" are all "1". Non-finite numbers become "NaN",
// "Infinity" and "-Infinity".
func NormalizeIdentifier(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := v.Float64(); err == nil {
			return formatIdentifierFloat(f, 64)
		}
		return v.String()
	case float32:
		return formatIdentifierFloat(float64(v), 32)
	case float64:
		return formatIdentifierFloat(v, 64)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64, uintptr:
		return fmt.Sprintf("%d", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatIdentifierFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// IsIdentifierType reports whether t, or the type it wraps, is an identifier.
func IsIdentifierType(t Type) bool {
	return t != nil && t.Flags().Has(FlagIdentifier)
}

// nodeIdentifier is the identifier reported for node in logs and events.
func nodeIdentifier(node Node) string {
	switch n := node.(type) {
	case *ObjectNode:
		return n.identifier
	case *ScalarNode:
		if IsIdentifierType(n.typ) && n.storedValue != nil {
			return NormalizeIdentifier(n.storedValue)
		}
	}
	return ""
}
