package statetree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ids(t *testing.T, array *ObjectNode) []string {
	t.Helper()
	out := make([]string, 0, array.Len())
	for _, c := range array.Children() {
		out = append(out, c.(*ObjectNode).Identifier())
	}
	return out
}

func TestPushAndInsertRenumber(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	first := object(t, store, "/todos/0")

	if err := todos.Push(map[string]any{"id": "t3", "title": "plan"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	pushed := object(t, store, "/todos/2")
	if pushed.State() != StateFinalized {
		t.Fatalf("expected pushed node to be finalized, got %s", pushed.State())
	}
	if got := child(t, pushed, "done").Snapshot(); got != false {
		t.Fatalf("expected optional default, got %v", got)
	}

	if err := todos.Insert(0, map[string]any{"id": "t0", "title": "wake up"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if diff := cmp.Diff([]string{"t0", "t1", "t2", "t3"}, ids(t, todos)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if first.Path() != "/todos/1" || first.Subpath() != "1" {
		t.Fatalf("expected existing node to shift, got %q", first.Path())
	}

	if err := todos.Insert(9, map[string]any{"id": "t9", "title": "x"}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveAtShiftsSuccessors(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	if err := todos.Push(map[string]any{"id": "t3", "title": "plan"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	last := object(t, store, "/todos/2")

	if err := todos.RemoveAt(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]string{"t1", "t3"}, ids(t, todos)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if last.Path() != "/todos/1" {
		t.Fatalf("expected last node to shift down, got %q", last.Path())
	}
	if err := todos.RemoveAt(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := object(t, store, "/users").RemoveAt(0); !errors.Is(err, ErrNotCollection) {
		t.Fatalf("expected ErrNotCollection on a map, got %v", err)
	}
}

func TestArrayRejectsDuplicateIdentifiers(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")

	err := todos.Push(map[string]any{"id": "t1", "title": "again"})
	var dupErr *DuplicateIdentifierError
	if !errors.As(err, &dupErr) || dupErr.Identifier != "t1" || dupErr.Path != "/todos" {
		t.Fatalf("expected DuplicateIdentifierError for t1, got %v", err)
	}
	err = todos.Push(
		map[string]any{"id": "t5", "title": "a"},
		map[string]any{"id": "t5", "title": "b"},
	)
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected duplicate within one push to fail, got %v", err)
	}
	if todos.Len() != 2 {
		t.Fatalf("expected failed pushes to leave the array untouched, got %d", todos.Len())
	}

	err = todos.Set("1", map[string]any{"id": "t1", "title": "clash"})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected Set to detect the clash with a sibling, got %v", err)
	}
	if err := todos.Set("0", map[string]any{"id": "t1", "title": "same slot"}); err != nil {
		t.Fatalf("expected replacing a node with its own identifier to succeed: %v", err)
	}

	_, err = Create(storeModel, map[string]any{
		"todos": []any{
			map[string]any{"id": "x", "title": "a"},
			map[string]any{"id": "x", "title": "b"},
		},
		"users": map[string]any{},
		"tags":  []any{},
	})
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected create to reject duplicate identifiers, got %v", err)
	}
}

func TestSetReplacesOrUpdates(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	todo := object(t, store, "/todos/0")

	if err := todo.Set("title", "rewrite docs"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if got := child(t, todo, "title").Snapshot(); got != "rewrite docs" {
		t.Fatalf("unexpected title %v", got)
	}

	if err := todos.Set("0", map[string]any{"id": "t1", "title": "kept"}); err != nil {
		t.Fatalf("set same identifier: %v", err)
	}
	if object(t, store, "/todos/0") != todo {
		t.Fatalf("expected node with the same identifier to be updated in place")
	}

	if err := todos.Set("0", map[string]any{"id": "n1", "title": "new"}); err != nil {
		t.Fatalf("set new identifier: %v", err)
	}
	if object(t, store, "/todos/0") == todo || todo.IsAlive() {
		t.Fatalf("expected a different identifier to replace and kill the node")
	}

	if err := todo.Set("title", "late"); !errors.Is(err, ErrDeadNode) {
		t.Fatalf("expected ErrDeadNode, got %v", err)
	}
	if err := store.Set("missing", 1); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
	if err := todos.Set("7", map[string]any{"id": "z", "title": "z"}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := object(t, store, "/todos/0").Set("title", 3); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected invalid value to be rejected, got %v", err)
	}
}

func TestMapPutAndDelete(t *testing.T) {
	store := newStore(t)
	users := object(t, store, "/users")
	ada := object(t, store, "/users/1")

	if err := users.Put("2", map[string]any{"id": 2, "name": "grace"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2"}, users.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if err := users.Put("1", map[string]any{"id": 1, "name": "ada lovelace"}); err != nil {
		t.Fatalf("put existing: %v", err)
	}
	if object(t, store, "/users/1") != ada {
		t.Fatalf("expected existing entry to be reconciled in place")
	}

	err := users.Put("3", map[string]any{"id": 4, "name": "bob"})
	if !errors.Is(err, ErrIdentifierKeyMismatch) {
		t.Fatalf("expected ErrIdentifierKeyMismatch, got %v", err)
	}
	if _, ok := users.Get("3"); ok {
		t.Fatalf("expected mismatched entry not to be stored")
	}

	if err := users.Delete("1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ada.IsAlive() || ada.PathUponDeath() != "/users/1" {
		t.Fatalf("expected deleted entry to die at /users/1, got %q", ada.PathUponDeath())
	}
	if err := users.Delete("1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := object(t, store, "/todos").Put("x", nil); !errors.Is(err, ErrNotCollection) {
		t.Fatalf("expected ErrNotCollection on an array, got %v", err)
	}
}

func TestDetachAndReattach(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	todo := object(t, store, "/todos/0")
	recorder := &hookRecorder{}
	recorder.watch(todo)

	if err := todo.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if !todo.IsAlive() || !todo.IsRoot() || todo.Path() != "" {
		t.Fatalf("expected a live root after detach, path=%q", todo.Path())
	}
	if diff := cmp.Diff([]string{"t2"}, ids(t, todos)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if got := child(t, todo, "title").Path(); got != "/title" {
		t.Fatalf("expected descendants to follow the detached root, got %q", got)
	}

	if err := todos.Push(todo); err != nil {
		t.Fatalf("push detached node: %v", err)
	}
	if todo.Path() != "/todos/1" || todo.Parent() != todos {
		t.Fatalf("expected node to be reattached at /todos/1, got %q", todo.Path())
	}

	want := []string{"beforeDetach@/todos/0", "afterAttach@/todos/1"}
	if diff := cmp.Diff(want, recorder.fired); diff != "" {
		t.Fatalf("hook mismatch (-want +got):\n%s", diff)
	}

	if err := todos.Detach(); !errors.Is(err, ErrNotCollection) {
		t.Fatalf("expected detach from a model parent to fail, got %v", err)
	}
}

func TestAttachRejectsLiveAndCyclicNodes(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	other := newStore(t)

	attached := object(t, other, "/todos/0")
	if err := todos.Push(attached); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
	if err := todos.Push(newStore(t)); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected a node of the wrong type to be rejected, got %v", err)
	}
	if err := store.SetParent(todos, "2"); !errors.Is(err, ErrCyclicAttach) {
		t.Fatalf("expected ErrCyclicAttach, got %v", err)
	}

	dead := object(t, other, "/todos/1")
	if err := dead.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := todos.Push(dead); !errors.Is(err, ErrDeadNode) {
		t.Fatalf("expected dead node to be rejected, got %v", err)
	}
}

func TestInsertRejectsTheSameNodeTwice(t *testing.T) {
	item := Model("Item", Prop("title", String))
	list, err := CreateObject(Array(item), []any{map[string]any{"title": "first"}})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	node, err := CreateObject(item, map[string]any{"title": "moved"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := list.Push(node, node); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
	if err := list.Insert(0, node, map[string]any{"title": "x"}, node); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached for a split duplicate, got %v", err)
	}
	if list.Len() != 1 || !node.IsRoot() || node.Path() != "" {
		t.Fatalf("expected the tree untouched, len=%d path=%q", list.Len(), node.Path())
	}

	if err := list.Push(node); err != nil {
		t.Fatalf("push once: %v", err)
	}
	if node.Path() != "/1" || node.Subpath() != "1" {
		t.Fatalf("expected node at /1, got %q", node.Path())
	}
	if err := list.RemoveAt(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got, _ := list.Get("0"); got != Node(node) || node.Path() != "/0" {
		t.Fatalf("expected node to shift to /0, got %q", node.Path())
	}
}

func TestDestroyRemovesFromCollection(t *testing.T) {
	store := newStore(t)
	user := object(t, store, "/users/1")

	if err := user.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if user.IsAlive() || object(t, store, "/users").Len() != 0 {
		t.Fatalf("expected user to be dead and removed")
	}
	if err := user.Destroy(); !errors.Is(err, ErrDeadNode) {
		t.Fatalf("expected second destroy to fail with ErrDeadNode, got %v", err)
	}
	if err := object(t, store, "/todos").Destroy(); !errors.Is(err, ErrNotCollection) {
		t.Fatalf("expected destroy under a model to fail, got %v", err)
	}
}

func TestApplySnapshotKeepsIdentifiedInstances(t *testing.T) {
	store := newStore(t)
	first := object(t, store, "/todos/0")
	second := object(t, store, "/todos/1")
	ada := object(t, store, "/users/1")

	err := store.ApplySnapshot(map[string]any{
		"todos": []any{
			map[string]any{"id": "t2", "title": "ship", "done": true},
			map[string]any{"id": "t3", "title": "celebrate"},
		},
		"users": map[string]any{
			"1": map[string]any{"id": 1, "name": "ada"},
			"2": map[string]any{"id": 2, "name": "grace"},
		},
		"tags": []any{"home", "work"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if object(t, store, "/todos/0") != second || second.Path() != "/todos/0" {
		t.Fatalf("expected t2 to be kept and moved to index 0")
	}
	if first.IsAlive() {
		t.Fatalf("expected t1 to die")
	}
	if object(t, store, "/users/1") != ada {
		t.Fatalf("expected map entry to be kept")
	}

	want := map[string]any{
		"todos": []any{
			map[string]any{"id": "t2", "title": "ship", "done": true},
			map[string]any{"id": "t3", "title": "celebrate", "done": false},
		},
		"users": map[string]any{
			"1": map[string]any{"id": 1, "name": "ada"},
			"2": map[string]any{"id": 2, "name": "grace"},
		},
		"tags": []any{"home", "work"},
	}
	if diff := cmp.Diff(want, store.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestApplySnapshotIsAtomicOnValidationFailure(t *testing.T) {
	store := newStore(t)
	before := store.Snapshot()

	err := store.ApplySnapshot(map[string]any{
		"todos": []any{map[string]any{"id": "t1", "title": 42}},
		"users": map[string]any{},
		"tags":  []any{},
	})
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("expected tree untouched (-want +got):\n%s", diff)
	}

	err = store.ApplySnapshot(map[string]any{
		"todos": []any{},
		"users": map[string]any{"9": map[string]any{"id": 1, "name": "ada"}},
		"tags":  []any{},
	})
	if !errors.Is(err, ErrIdentifierKeyMismatch) {
		t.Fatalf("expected ErrIdentifierKeyMismatch, got %v", err)
	}
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("expected tree untouched after key mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePath(t *testing.T) {
	store := newStore(t)
	todo := object(t, store, "/todos/1")

	if got := child(t, store, "/todos/1/title").Snapshot(); got != "ship" {
		t.Fatalf("unexpected value %v", got)
	}
	if got := child(t, todo, "../../users/1/name").Snapshot(); got != "ada" {
		t.Fatalf("unexpected value %v", got)
	}
	if got := child(t, todo, ""); got != Node(todo) {
		t.Fatalf("expected empty path to resolve to the node itself")
	}
	for _, path := range []string{"/todos/5", "/todos/0/title/x", "/../x"} {
		if _, err := store.ResolvePath(path); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for %q, got %v", path, err)
		}
	}
}

func TestDeadNodeRejectsOperations(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	if err := store.ApplySnapshot(map[string]any{"todos": nil, "users": nil, "tags": nil}); err == nil {
		t.Fatalf("expected nil collections to be rejected")
	}

	store.Die()
	checks := map[string]error{
		"push":   todos.Push(map[string]any{"id": "x", "title": "x"}),
		"insert": todos.Insert(0, map[string]any{"id": "x", "title": "x"}),
		"remove": todos.RemoveAt(0),
		"apply":  todos.ApplySnapshot([]any{}),
		"detach": todos.Detach(),
		"set":    store.Set("tags", []any{}),
	}
	for op, err := range checks {
		if !errors.Is(err, ErrDeadNode) {
			t.Fatalf("%s: expected ErrDeadNode, got %v", op, err)
		}
	}
}
