package statetree

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-statetree/pkg/reactive"
)

func TestCreateFinalizesEveryNode(t *testing.T) {
	store := newStore(t)

	var walk func(node Node)
	walk = func(node Node) {
		if node.State() != StateFinalized {
			t.Fatalf("expected %q to be finalized, got %s", node.Path(), node.State())
		}
		if obj, ok := node.(*ObjectNode); ok {
			for _, c := range obj.Children() {
				walk(c)
			}
		}
	}
	walk(store)
}

func TestModelHooksRunParentFirstOnAttach(t *testing.T) {
	var log []string
	record := func(event string) func(*ObjectNode) {
		return func(n *ObjectNode) {
			log = append(log, event+" "+n.base().getEscapedPath(false))
		}
	}
	hooks := LifecycleHooks{AfterCreate: record("create"), AfterAttach: record("attach")}
	leaf := Model("Leaf", Prop("name", String)).WithHooks(hooks)
	branch := Model("Branch", Prop("leaves", Array(leaf))).WithHooks(hooks)
	root := Model("Root", Prop("branch", branch)).WithHooks(hooks)

	_, err := Create(root, map[string]any{
		"branch": map[string]any{"leaves": []any{
			map[string]any{"name": "l1"},
			map[string]any{"name": "l2"},
		}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	want := []string{
		"create /branch/leaves/0",
		"create /branch/leaves/1",
		"create /branch",
		"create ",
		"attach /branch",
		"attach /branch/leaves/0",
		"attach /branch/leaves/1",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalizeCreationWaitsForParent(t *testing.T) {
	root, err := todoModel.Instantiate(nil, "", nil, map[string]any{"id": "t1", "title": "x"})
	if err != nil {
		t.Fatalf("instantiate root: %v", err)
	}
	parent := root.(*ObjectNode)
	if parent.State() != StateCreated {
		t.Fatalf("expected unfinalized root to be created, got %s", parent.State())
	}

	standalone, err := Identifier.Instantiate(parent, "extra", nil, "x")
	if err != nil {
		t.Fatalf("instantiate identifier: %v", err)
	}
	attached := 0
	standalone.Hooks().Register(HookAfterAttach, func(Node, Hook) { attached++ })

	standalone.FinalizeCreation()
	if standalone.State() != StateCreated || attached != 0 {
		t.Fatalf("expected finalization to be deferred, state=%s attached=%d", standalone.State(), attached)
	}

	parent.FinalizeCreation()
	if parent.State() != StateFinalized {
		t.Fatalf("expected root to finalize, got %s", parent.State())
	}

	standalone.FinalizeCreation()
	if standalone.State() != StateFinalized || attached != 1 {
		t.Fatalf("expected finalization after the parent, state=%s attached=%d", standalone.State(), attached)
	}
	standalone.FinalizeCreation()
	if attached != 1 {
		t.Fatalf("expected a second FinalizeCreation to be a no-op, attached=%d", attached)
	}
}

func TestDeadNodeIsDetached(t *testing.T) {
	store := newStore(t)
	title := child(t, store, "/todos/1/title")

	if err := object(t, store, "/todos").RemoveAt(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if title.IsAlive() {
		t.Fatalf("expected descendant of a removed node to be dead")
	}
	if title.Path() != "" || title.Parent() != nil || !title.IsRoot() {
		t.Fatalf("expected dead node to be detached, path=%q", title.Path())
	}
	if title.PathUponDeath() != "/todos/1/title" || title.SubpathUponDeath() != "title" {
		t.Fatalf("unexpected death record %q %q", title.PathUponDeath(), title.SubpathUponDeath())
	}
}

func TestCompositeDeathOrder(t *testing.T) {
	store := newStore(t)
	todos := object(t, store, "/todos")
	todo := object(t, store, "/todos/0")
	sibling := object(t, store, "/todos/1")
	before := todo.Snapshot()

	recorder := &hookRecorder{}
	recorder.watch(todo)
	for _, c := range todo.Children() {
		recorder.watch(c)
	}

	if err := todos.RemoveAt(0); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := []string{
		"beforeDestroy@/todos/0/id",
		"beforeDestroy@/todos/0/title",
		"beforeDestroy@/todos/0/done",
		"beforeDestroy@/todos/0",
	}
	if diff := cmp.Diff(want, recorder.fired); diff != "" {
		t.Fatalf("death hook order mismatch (-want +got):\n%s", diff)
	}

	if todo.State() != StateDead || todo.IsAlive() {
		t.Fatalf("expected todo to be dead, got %s", todo.State())
	}
	if todo.PathUponDeath() != "/todos/0" || todo.SubpathUponDeath() != "0" {
		t.Fatalf("unexpected death record %q %q", todo.PathUponDeath(), todo.SubpathUponDeath())
	}
	for _, c := range todo.Children() {
		if c.IsAlive() {
			t.Fatalf("expected child %q to be dead", c.Subpath())
		}
		if !strings.HasPrefix(c.PathUponDeath(), "/todos/0/") {
			t.Fatalf("expected child to record its attached path, got %q", c.PathUponDeath())
		}
		if c.Hooks().Len() != 0 {
			t.Fatalf("expected hooks of dead child to be cleared")
		}
	}
	if todo.Hooks().Len() != 0 {
		t.Fatalf("expected hooks of dead node to be cleared")
	}
	if diff := cmp.Diff(before, todo.Snapshot()); diff != "" {
		t.Fatalf("expected dead node to keep its last snapshot (-want +got):\n%s", diff)
	}
	if sibling.Path() != "/todos/0" {
		t.Fatalf("expected sibling to move to index 0, got %q", sibling.Path())
	}
}

func TestFinalizeDeathTwicePanics(t *testing.T) {
	store := newStore(t)
	title := child(t, store, "/todos/0/title")
	if err := object(t, store, "/todos").RemoveAt(0); err != nil {
		t.Fatalf("remove: %v", err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected FinalizeDeath on a dead node to panic")
		}
		if msg, _ := r.(string); !strings.HasPrefix(msg, "statetree:") {
			t.Fatalf("expected a statetree panic, got %v", r)
		}
	}()
	title.FinalizeDeath()
}

func TestDieIsIdempotent(t *testing.T) {
	store := newStore(t)
	todo := object(t, store, "/todos/0")
	destroyed := 0
	todo.Hooks().Register(HookBeforeDestroy, func(Node, Hook) { destroyed++ })

	todo.Die()
	todo.Die()
	if destroyed != 1 {
		t.Fatalf("expected before-destroy once, got %d", destroyed)
	}
}

func TestPathObserversRunOncePerChange(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newStore(t, WithCellFactory(ReactiveCells(rt)))
	todos := object(t, store, "/todos")
	second := object(t, store, "/todos/1")

	var seen []string
	reaction := rt.Autorun(func() {
		seen = append(seen, second.Path())
	})
	defer reaction.Dispose()

	if err := second.SetParent(todos, "1"); err != nil {
		t.Fatalf("no-op SetParent: %v", err)
	}
	if reaction.Runs() != 1 {
		t.Fatalf("expected an unchanged parent not to invalidate the path, runs=%d", reaction.Runs())
	}

	if err := todos.RemoveAt(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]string{"/todos/1", "/todos/0"}, seen); diff != "" {
		t.Fatalf("path observations mismatch (-want +got):\n%s", diff)
	}
}

func TestObservableIsAlive(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newStore(t, WithCellFactory(ReactiveCells(rt)))
	todo := object(t, store, "/todos/0")

	var states []bool
	reaction := rt.Autorun(func() {
		states = append(states, todo.ObservableIsAlive())
	})
	defer reaction.Dispose()

	if err := todo.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false}, states); diff != "" {
		t.Fatalf("aliveness observations mismatch (-want +got):\n%s", diff)
	}
}

func TestScalarCannotChangeParent(t *testing.T) {
	store := newStore(t)
	title := child(t, store, "/todos/0/title")
	other := object(t, store, "/todos/1")

	if err := title.SetParent(other, "title"); !errors.Is(err, ErrScalarReparent) {
		t.Fatalf("expected ErrScalarReparent, got %v", err)
	}
	if title.Parent() != object(t, store, "/todos/0") {
		t.Fatalf("expected title to stay under its parent")
	}
}

func TestLifecycleLoggerSeesTransitions(t *testing.T) {
	var transitions []string
	logger := LifecycleLoggerFunc(func(event LifecycleEvent) {
		if event.IsTransition() && event.TypeName == "Todo" {
			transitions = append(transitions, event.From.String()+">"+event.To.String())
		}
	})

	node, err := Create(todoModel, map[string]any{"id": "t1", "title": "x"}, WithLifecycleLogger(logger))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	node.Die()

	want := []string{"initializing>created", "created>finalized", "finalized>dead"}
	if diff := cmp.Diff(want, transitions); diff != "" {
		t.Fatalf("transition mismatch (-want +got):\n%s", diff)
	}
}
