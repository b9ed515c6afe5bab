package statetree

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParentKind         = errors.New("statetree: invalid parent kind")
	ErrImmutableIdentifierChange = errors.New("statetree: identifier is immutable")
	ErrDuplicateIdentifier       = errors.New("statetree: duplicate identifier")
	ErrIdentifierKeyMismatch     = errors.New("statetree: map key does not match identifier")
	ErrInvalidSnapshot           = errors.New("statetree: invalid snapshot")
	ErrDeadNode                  = errors.New("statetree: node is dead")
	ErrAlreadyAttached           = errors.New("statetree: node is already part of a tree")
	ErrCyclicAttach              = errors.New("statetree: node cannot become a child of its own descendant")
	ErrNotCollection             = errors.New("statetree: node is not a collection")
	ErrUnknownProperty           = errors.New("statetree: unknown property")
	ErrIndexOutOfRange           = errors.New("statetree: index out of range")
	ErrNotFound                  = errors.New("statetree: path not found")
	ErrInvalidDefinition         = errors.New("statetree: invalid type definition")
	ErrScalarReparent            = errors.New("statetree: scalar nodes cannot change their parent")
	ErrInvalidPatch              = errors.New("statetree: invalid patch")
)

// InvalidParentKindError reports an identifier instantiated outside a model.
type InvalidParentKindError struct {
	Type    string
	Subpath string
	Parent  string
}

func (e *InvalidParentKindError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parent := e.Parent
	if parent == "" {
		parent = "<none>"
	}
	return fmt.Sprintf("statetree: %s types can only be instantiated as direct child of a model type (subpath=%q parent=%s)", e.Type, e.Subpath, parent)
}

func (e *InvalidParentKindError) Unwrap() error {
	return ErrInvalidParentKind
}

// ImmutableIdentifierChangeError reports an attempt to change an identifier.
type ImmutableIdentifierChangeError struct {
	Path string
	From any
	To   any
}

func (e *ImmutableIdentifierChangeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("statetree: tried to change identifier at %s from '%v' to '%v'. Changing identifiers is not allowed", describePath(e.Path), e.From, e.To)
}

func (e *ImmutableIdentifierChangeError) Unwrap() error {
	return ErrImmutableIdentifierChange
}

// DuplicateIdentifierError reports two siblings carrying the same identifier.
type DuplicateIdentifierError struct {
	Path       string
	Type       string
	Identifier string
}

func (e *DuplicateIdentifierError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("statetree: identifier '%s' of type %s occurs more than once at %s", e.Identifier, e.Type, describePath(e.Path))
}

func (e *DuplicateIdentifierError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// TreeError annotates a structural operation failure with the node path.
type TreeError struct {
	Op   string
	Path string
	Err  error
}

func (e *TreeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("statetree: %s at %s: %v", e.Op, describePath(e.Path), e.Err)
}

func (e *TreeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func treeError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &TreeError{Op: op, Path: path, Err: err}
}

func describePath(path string) string {
	if path == "" {
		return "<root>"
	}
	return fmt.Sprintf("%q", path)
}

// invariant panics when cond does not hold. Lifecycle misuse is a programming
// error, not a recoverable condition.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("statetree: "+format, args...))
	}
}
