package statetree

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

var (
	todoModel = Model("Todo",
		Prop("id", Identifier),
		Prop("title", String),
		Prop("done", Optional(Boolean, false)),
	)
	userModel = Model("User",
		Prop("id", IdentifierNumber),
		Prop("name", String),
	)
	storeModel = Model("Store",
		Prop("todos", Array(todoModel)),
		Prop("users", Map(userModel)),
		Prop("tags", Array(String)),
	)
)

func newStore(t *testing.T, opts ...Option) *ObjectNode {
	t.Helper()
	store, err := CreateObject(storeModel, map[string]any{
		"todos": []any{
			map[string]any{"id": "t1", "title": "write docs"},
			map[string]any{"id": "t2", "title": "ship", "done": true},
		},
		"users": map[string]any{
			"1": map[string]any{"id": 1, "name": "ada"},
		},
		"tags": []any{"home"},
	}, opts...)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func child(t *testing.T, node *ObjectNode, path string) Node {
	t.Helper()
	found, err := node.ResolvePath(path)
	if err != nil {
		t.Fatalf("resolve %q: %v", path, err)
	}
	return found
}

func object(t *testing.T, node *ObjectNode, path string) *ObjectNode {
	t.Helper()
	obj, ok := child(t, node, path).(*ObjectNode)
	if !ok {
		t.Fatalf("expected composite node at %q", path)
	}
	return obj
}

// hookRecorder subscribes to every hook of a node and records the order.
type hookRecorder struct {
	fired []string
}

func (r *hookRecorder) watch(node Node) {
	for _, hook := range Hooks {
		node.Hooks().Register(hook, func(n Node, h Hook) {
			r.fired = append(r.fired, string(h)+"@"+n.base().getEscapedPath(false))
		})
	}
}

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %q: %v", path, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal fixture %q: %v", path, err)
	}
	return out
}
