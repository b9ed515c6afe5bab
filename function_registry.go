package statetree

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("statetree: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("statetree: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("statetree: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("statetree: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("statetree: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[strings.ToLower(name)]
	return ok
}

// Unregister removes name. It reports whether a function was removed.
func (r *FunctionRegistry) Unregister(name string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := r.functions[key]; !ok {
		return false
	}
	delete(r.functions, key)
	return true
}

// PredicateFunctions returns a registry preloaded with identifier helpers:
//
//	identifier(v)        the normalized identifier form of v
//	distinct(list)       true when no two elements normalize to the same identifier
//	distinct(list, attr) the same, comparing attr of each map element
func PredicateFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("identifier", identifierFunction)
	_ = registry.Register("distinct", distinctFunction)
	return registry
}

func identifierFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("statetree: identifier expects 1 argument, got %d", len(args))
	}
	return NormalizeIdentifier(args[0]), nil
}

func distinctFunction(args ...any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("statetree: distinct expects 1 or 2 arguments, got %d", len(args))
	}
	items, ok := asSlice(args[0])
	if !ok {
		return nil, fmt.Errorf("statetree: distinct expects a list, got %T", args[0])
	}
	attr := ""
	if len(args) == 2 {
		attr, ok = args[1].(string)
		if !ok {
			return nil, fmt.Errorf("statetree: distinct attribute must be a string, got %T", args[1])
		}
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if attr != "" {
			values, ok := asMap(item)
			if !ok {
				continue
			}
			item = values[attr]
		}
		if item == nil {
			continue
		}
		id := NormalizeIdentifier(item)
		if seen[id] {
			return false, nil
		}
		seen[id] = true
	}
	return true, nil
}
