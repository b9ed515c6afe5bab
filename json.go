package statetree

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-statetree/internal/hydrate"
)

// SnapshotJSON encodes the snapshot of node. Dead nodes encode the snapshot
// captured when they died.
func SnapshotJSON(node Node) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrNotFound)
	}
	raw, err := json.Marshal(node.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("statetree: encode snapshot of %s: %w", node.Type().Name(), err)
	}
	return raw, nil
}

// ApplySnapshotJSON decodes data and reconciles node with it.
func ApplySnapshotJSON(node *ObjectNode, data []byte) error {
	snapshot, err := hydrate.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return node.ApplySnapshot(snapshot)
}

// CreateFromJSON creates a tree from a JSON snapshot. Integral numbers decode
// as int64, so numeric identifiers keep their integer form.
func CreateFromJSON(t Type, data []byte, opts ...Option) (Node, error) {
	snapshot, err := hydrate.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return Create(t, snapshot, opts...)
}

// CreateFromYAML creates a tree from a YAML snapshot.
func CreateFromYAML(t Type, data []byte, opts ...Option) (Node, error) {
	snapshot, err := hydrate.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return Create(t, snapshot, opts...)
}
