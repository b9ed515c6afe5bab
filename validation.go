package statetree

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContextEntry is one step of a validation walk: the raw subpath and the type
// expected there.
type ContextEntry struct {
	Path string
	Type Type
}

// ValidationContext is the path walked so far, root first.
type ValidationContext []ContextEntry

// RootContext starts a validation walk for t.
func RootContext(t Type) ValidationContext {
	return ValidationContext{{Path: "", Type: t}}
}

// Child extends ctx with subpath, copying so sibling walks do not share storage.
func (ctx ValidationContext) Child(subpath string, t Type) ValidationContext {
	next := make(ValidationContext, len(ctx), len(ctx)+1)
	copy(next, ctx)
	return append(next, ContextEntry{Path: subpath, Type: t})
}

// Path renders the escaped path of the context. The first entry is the root
// and contributes no segment; later entries always do, even when empty.
func (ctx ValidationContext) Path() string {
	if len(ctx) <= 1 {
		return ""
	}
	segments := make([]string, 0, len(ctx)-1)
	for _, entry := range ctx[1:] {
		segments = append(segments, entry.Path)
	}
	return JoinPath(segments...)
}

// ValidationError is a single failed check.
type ValidationError struct {
	Context ValidationContext
	Value   any
	Message string
}

func (e ValidationError) String() string {
	typeName := "<unknown>"
	if len(e.Context) > 0 && e.Context[len(e.Context)-1].Type != nil {
		typeName = e.Context[len(e.Context)-1].Type.Describe()
	}
	path := e.Context.Path()
	msg := fmt.Sprintf("value `%s` is not assignable to type: `%s`", prettyValue(e.Value), typeName)
	if path != "" {
		msg = fmt.Sprintf("at path %q %s", path, msg)
	}
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	return msg
}

// ValidationResult collects failures. An empty result means the value is
// valid.
type ValidationResult []ValidationError

// TypeCheckSuccess returns the empty result.
func TypeCheckSuccess() ValidationResult {
	return nil
}

// TypeCheckFailure returns a result holding one failure.
func TypeCheckFailure(ctx ValidationContext, value any, message string) ValidationResult {
	return ValidationResult{{Context: ctx, Value: value, Message: message}}
}

// Valid reports whether no failures were collected.
func (r ValidationResult) Valid() bool {
	return len(r) == 0
}

// Merge appends the failures of others to r.
func (r ValidationResult) Merge(others ...ValidationResult) ValidationResult {
	for _, other := range others {
		r = append(r, other...)
	}
	return r
}

// Err converts the result into an error, or nil when valid.
func (r ValidationResult) Err(t Type, value any) error {
	if r.Valid() {
		return nil
	}
	return &ValidationErrors{Type: t, Value: value, Failures: r}
}

// ValidationErrors is the error form of a non-empty ValidationResult.
type ValidationErrors struct {
	Type     Type
	Value    any
	Failures ValidationResult
}

func (e *ValidationErrors) Error() string {
	if e == nil {
		return "<nil>"
	}
	lines := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		lines = append(lines, failure.String())
	}
	name := "<unknown>"
	if e.Type != nil {
		name = e.Type.Name()
	}
	return fmt.Sprintf("statetree: error while converting `%s` to `%s`:\n\n    %s", prettyValue(e.Value), name, strings.Join(lines, "\n    "))
}

func (e *ValidationErrors) Unwrap() error {
	return ErrInvalidSnapshot
}

func prettyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "undefined"
	case string:
		return fmt.Sprintf("%q", v)
	case Node:
		return fmt.Sprintf("<%s@%s>", v.Type().Name(), describePath(v.base().getEscapedPath(false)))
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	if len(raw) > 200 {
		return string(raw[:197]) + "..."
	}
	return string(raw)
}
