package statetree

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/goliatone/go-statetree/internal/hydrate"
)

// ApplyPatch applies an RFC 6902 JSON patch to the snapshot of node and
// reconciles node with the result. The patched snapshot goes through
// ApplySnapshot, so a patch that changes an identifier is rejected and leaves
// the tree untouched.
func ApplyPatch(node *ObjectNode, patch []byte) error {
	if !node.IsAlive() {
		return treeError("patch", node.pathUponDeath, ErrDeadNode)
	}
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	doc, err := SnapshotJSON(node)
	if err != nil {
		return err
	}
	patched, err := ops.Apply(doc)
	if err != nil {
		return treeError("patch", node.getEscapedPath(false), fmt.Errorf("%w: %w", ErrInvalidPatch, err))
	}
	snapshot, err := hydrate.DecodeJSON(patched)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return node.ApplySnapshot(snapshot)
}
