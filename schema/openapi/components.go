package openapi

import (
	"fmt"
	"regexp"

	"github.com/goliatone/go-statetree"
)

// componentRegistry publishes one schema component per model type. Names
// come from the model name and are made unique with a numeric suffix.
type componentRegistry struct {
	models    map[*statetree.ModelType]string
	schemas   map[string]map[string]any
	usedNames map[string]struct{}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		models:    map[*statetree.ModelType]string{},
		schemas:   map[string]map[string]any{},
		usedNames: map[string]struct{}{},
	}
}

func (r *componentRegistry) lookup(m *statetree.ModelType) (string, bool) {
	name, ok := r.models[m]
	if !ok {
		return "", false
	}
	return componentRef(name), true
}

func (r *componentRegistry) register(m *statetree.ModelType, node *schemaNode) string {
	if name, ok := r.models[m]; ok {
		return componentRef(name)
	}
	name := r.uniqueName(m.Name())
	r.models[m] = name
	r.schemas[name] = node.openAPI()
	return componentRef(name)
}

// publish stores an arbitrary schema under name, used for non-model roots.
func (r *componentRegistry) publish(name string, node *schemaNode) string {
	unique := r.uniqueName(name)
	r.schemas[unique] = node.openAPI()
	return componentRef(unique)
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Schema"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	suffix := 1
	for {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		suffix++
	}
}

func (r *componentRegistry) componentsMap() map[string]any {
	if len(r.schemas) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.schemas))
	for name, schema := range r.schemas {
		out[name] = schema
	}
	return out
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
