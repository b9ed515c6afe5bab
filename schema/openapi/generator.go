// Package openapi describes the snapshots a statetree type accepts as an
// OpenAPI 3 document. Each model type becomes a schema component;
// identifiers carry x-identifier and refinements carry x-refinement.
package openapi

import (
	"github.com/goliatone/go-statetree"
)

// Generator builds OpenAPI documents from types. It holds no mutable state
// and is safe for concurrent use.
type Generator struct {
	config generatorConfig
}

var _ statetree.SchemaGenerator = (*Generator)(nil)

// NewGenerator constructs an OpenAPI schema generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Generator{config: cfg}
}

// Generate implements statetree.SchemaGenerator.
func (g *Generator) Generate(t statetree.Type) (statetree.SchemaDocument, error) {
	document, err := g.Document(t)
	if err != nil {
		return statetree.SchemaDocument{}, err
	}
	return statetree.SchemaDocument{
		Format:   statetree.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

// Document returns the raw OpenAPI document for t. A nil type yields a
// document whose request body is an empty object.
func (g *Generator) Document(t statetree.Type) (map[string]any, error) {
	registry := newComponentRegistry()
	var root *schemaNode
	if t != nil {
		var err error
		root, err = newSchemaBuilder(registry, g.config.inlineModels).build(t)
		if err != nil {
			return nil, err
		}
	}
	return newOpenAPIDocumentBuilder(g.config, registry, root).build()
}

// Generate is shorthand for NewGenerator(opts...).Document(t).
func Generate(t statetree.Type, opts ...GeneratorOption) (map[string]any, error) {
	return NewGenerator(opts...).Document(t)
}
