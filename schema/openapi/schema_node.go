package openapi

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-statetree"
)

type schemaNode struct {
	Type                 string
	Format               string
	Ref                  string
	Properties           map[string]*schemaNode
	Required             []string
	Items                *schemaNode
	AdditionalProperties *schemaNode
	Default              any
	extensions           map[string]any
}

func (n *schemaNode) setExtension(key string, value any) {
	if n.extensions == nil {
		n.extensions = map[string]any{}
	}
	n.extensions[key] = value
}

// clone copies the top level so wrappers can decorate a shared node.
func (n *schemaNode) clone() *schemaNode {
	out := *n
	if n.extensions != nil {
		out.extensions = make(map[string]any, len(n.extensions))
		for key, value := range n.extensions {
			out.extensions[key] = value
		}
	}
	return &out
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	keys := make([]string, 0, len(n.extensions))
	for key := range n.extensions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		result[key] = n.extensions[key]
	}
	return result
}

// openAPI renders the node. A reference that carries its own default or
// extensions is wrapped in allOf, since siblings of $ref are ignored.
func (n *schemaNode) openAPI() map[string]any {
	if n.Ref != "" {
		ref := map[string]any{"$ref": n.Ref}
		extra := n.baseMap()
		if len(extra) == 0 {
			return ref
		}
		extra["allOf"] = []any{ref}
		return extra
	}

	result := n.baseMap()
	if len(n.Properties) > 0 || n.Type == "object" && n.AdditionalProperties == nil {
		names := make([]string, 0, len(n.Properties))
		for name := range n.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		props := make(map[string]any, len(names))
		for _, name := range names {
			props[name] = n.Properties[name].openAPI()
		}
		result["properties"] = props
	}
	if len(n.Required) > 0 {
		required := append([]string{}, n.Required...)
		sort.Strings(required)
		result["required"] = required
	}
	if n.Items != nil {
		result["items"] = n.Items.openAPI()
	}
	if n.AdditionalProperties != nil {
		result["additionalProperties"] = n.AdditionalProperties.openAPI()
	}
	return result
}

type schemaBuilder struct {
	registry     *componentRegistry
	inlineModels bool
}

func newSchemaBuilder(registry *componentRegistry, inlineModels bool) *schemaBuilder {
	return &schemaBuilder{registry: registry, inlineModels: inlineModels}
}

func (b *schemaBuilder) build(t statetree.Type) (*schemaNode, error) {
	switch typed := t.(type) {
	case nil:
		return nil, fmt.Errorf("openapi: nil type")
	case *statetree.OptionalType:
		inner, err := b.build(typed.Unwrap())
		if err != nil {
			return nil, err
		}
		node := inner.clone()
		node.Default = typed.Default()
		return node, nil
	case *statetree.RefinementType:
		inner, err := b.build(typed.Unwrap())
		if err != nil {
			return nil, err
		}
		node := inner.clone()
		node.setExtension("x-refinement", map[string]any{
			"name":       typed.Name(),
			"expression": typed.Expression(),
		})
		return node, nil
	case *statetree.ModelType:
		return b.buildModel(typed)
	case *statetree.ArrayType:
		items, err := b.build(typed.Elem())
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil
	case *statetree.MapType:
		values, err := b.build(typed.Elem())
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "object", AdditionalProperties: values}, nil
	}
	return buildScalar(t)
}

func (b *schemaBuilder) buildModel(m *statetree.ModelType) (*schemaNode, error) {
	if !b.inlineModels {
		if ref, ok := b.registry.lookup(m); ok {
			return &schemaNode{Ref: ref}, nil
		}
	}
	node := &schemaNode{Type: "object", Properties: map[string]*schemaNode{}}
	for _, prop := range m.Properties() {
		child, err := b.build(prop.Type)
		if err != nil {
			return nil, fmt.Errorf("openapi: model %s property %q: %w", m.Name(), prop.Name, err)
		}
		node.Properties[prop.Name] = child
		if !prop.Type.Flags().Has(statetree.FlagOptional) {
			node.Required = append(node.Required, prop.Name)
		}
	}
	if attr := m.IdentifierAttribute(); attr != "" {
		node.setExtension("x-identifier-attribute", attr)
	}
	if b.inlineModels {
		return node, nil
	}
	return &schemaNode{Ref: b.registry.register(m, node)}, nil
}

func buildScalar(t statetree.Type) (*schemaNode, error) {
	flags := t.Flags()
	var node *schemaNode
	switch {
	case flags.Has(statetree.FlagInteger):
		node = &schemaNode{Type: "integer"}
	case flags.Has(statetree.FlagNumber):
		node = &schemaNode{Type: "number"}
	case flags.Has(statetree.FlagBoolean):
		node = &schemaNode{Type: "boolean"}
	case flags.Has(statetree.FlagString):
		node = &schemaNode{Type: "string"}
	default:
		return nil, fmt.Errorf("openapi: unsupported type %s", t.Name())
	}
	if flags.Has(statetree.FlagIdentifier) {
		node.setExtension("x-identifier", true)
	}
	return node, nil
}
