package statetree

import (
	"fmt"

	"github.com/goliatone/go-statetree/layering"
)

// Create validates snapshot against t and builds a finalized tree from it.
// The options configure the whole tree; nodes created later under it inherit
// the same configuration.
func Create(t Type, snapshot any, opts ...Option) (Node, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidDefinition)
	}
	if err := Validate(t, snapshot); err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)
	var (
		root Node
		err  error
	)
	batch(cfg.cells, func() {
		root, err = t.Instantiate(nil, "", &rootEnvironment{env: cfg.environment, cfg: cfg}, snapshot)
		if err != nil {
			return
		}
		root.FinalizeCreation()
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// CreateObject is Create for models, arrays and maps.
func CreateObject(t Type, snapshot any, opts ...Option) (*ObjectNode, error) {
	if _, ok := asComplex(t); !ok {
		return nil, fmt.Errorf("%w: %s is not a model, array or map type", ErrInvalidDefinition, t.Name())
	}
	root, err := Create(t, snapshot, opts...)
	if err != nil {
		return nil, err
	}
	return root.(*ObjectNode), nil
}

// CreateLayered merges layers, ordered strongest first, and creates a tree
// from the result. Maps merge key by key; any other value comes from the
// strongest layer that sets it.
func CreateLayered(t Type, layers []any, opts ...Option) (Node, error) {
	return Create(t, layerMerger(t).MergeLayers(layers...), opts...)
}

// CreateFromStack is CreateLayered for a layering.Stack. The stack decides
// the precedence.
func CreateFromStack(t Type, stack layering.Stack, opts ...Option) (Node, error) {
	return Create(t, stack.Merge(layerMerger(t)), opts...)
}

// layerMerger merges arrays of identified models element by element.
func layerMerger(t Type) *layering.Merger {
	var mergeOpts []layering.MergeOption
	if model := identifiedModel(elementType(t)); model != nil {
		mergeOpts = append(mergeOpts, layering.WithIdentifierAttribute(model.identifierAttr))
	}
	return layering.NewMerger(mergeOpts...)
}

// elementType returns the element type of an array type, or nil.
func elementType(t Type) Type {
	if a, ok := baseType(t).(*ArrayType); ok {
		return a.elem
	}
	return nil
}
