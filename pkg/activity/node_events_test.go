package activity

import "testing"

func TestBuildNodeEventPrefersIdentifier(t *testing.T) {
	event, ok := BuildNodeEvent(VerbNodeAttached, NodeEventInput{
		TypeName:   "Todo",
		Identifier: "t1",
		Path:       "/todos/0",
		Subpath:    "0",
		State:      "created",
	})
	if !ok {
		t.Fatalf("expected event to be built")
	}
	if event.Verb != VerbNodeAttached || event.ObjectType != "Todo" || event.ObjectID != "t1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Metadata["path"] != "/todos/0" || event.Metadata["subpath"] != "0" || event.Metadata["state"] != "created" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
}

func TestBuildNodeEventFallsBackToPath(t *testing.T) {
	event, ok := BuildNodeEvent(VerbNodeDestroyed, NodeEventInput{TypeName: "Store", Path: "/a~1b"})
	if !ok {
		t.Fatalf("expected event to be built")
	}
	if event.ObjectID != "/a~1b" {
		t.Fatalf("expected path as object id, got %q", event.ObjectID)
	}

	root, _ := BuildNodeEvent(VerbNodeCreated, NodeEventInput{})
	if root.ObjectID != "/" || root.ObjectType != "node" {
		t.Fatalf("expected root fallbacks, got %+v", root)
	}
	if _, present := root.Metadata["subpath"]; present {
		t.Fatalf("expected empty subpath omitted: %+v", root.Metadata)
	}
}

func TestBuildNodeEventRejectsEmptyVerb(t *testing.T) {
	if _, ok := BuildNodeEvent("  ", NodeEventInput{TypeName: "Todo"}); ok {
		t.Fatalf("expected empty verb to be rejected")
	}
}

func TestBuildNodeEventClonesMetadata(t *testing.T) {
	meta := map[string]any{"source": "test"}
	event, _ := BuildNodeEvent(VerbNodeCreated, NodeEventInput{TypeName: "Todo", Metadata: meta})
	if event.Metadata["source"] != "test" {
		t.Fatalf("expected caller metadata kept: %+v", event.Metadata)
	}
	if _, leaked := meta["path"]; leaked {
		t.Fatalf("expected caller metadata untouched: %+v", meta)
	}
}
