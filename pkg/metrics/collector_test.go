package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-statetree"
)

var todoType = statetree.Model("Todo",
	statetree.Prop("id", statetree.Identifier),
	statetree.Prop("title", statetree.String),
)

func TestCollectorCountsTreeLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	list, err := statetree.CreateObject(statetree.Array(todoType), []any{
		map[string]any{"id": "a", "title": "first"},
		map[string]any{"id": "b", "title": "second"},
	}, statetree.WithLifecycleLogger(collector))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := testutil.ToFloat64(collector.alive.WithLabelValues("Todo")); got != 2 {
		t.Fatalf("expected 2 live todos, got %v", got)
	}
	if got := testutil.ToFloat64(collector.alive.WithLabelValues("string")); got != 2 {
		t.Fatalf("expected 2 live title nodes, got %v", got)
	}
	// Two todos plus their id and title nodes.
	if got := testutil.ToFloat64(collector.hooks.WithLabelValues(string(statetree.HookAfterAttach))); got != 6 {
		t.Fatalf("expected after-attach for every non-root node, got %v", got)
	}

	if err := list.RemoveAt(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := testutil.ToFloat64(collector.alive.WithLabelValues("Todo")); got != 1 {
		t.Fatalf("expected 1 live todo after removal, got %v", got)
	}
	if got := testutil.ToFloat64(collector.transitions.WithLabelValues("Todo", "dead")); got != 1 {
		t.Fatalf("expected one dead transition, got %v", got)
	}
	if got := testutil.ToFloat64(collector.hooks.WithLabelValues(string(statetree.HookBeforeDestroy))); got < 1 {
		t.Fatalf("expected before-destroy to be counted, got %v", got)
	}
}

func TestCollectorIgnoresAbortedConstruction(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.LogLifecycle(statetree.LifecycleEvent{TypeName: "Todo", From: statetree.StateInitializing, To: statetree.StateDead})
	if got := testutil.ToFloat64(collector.alive.WithLabelValues("Todo")); got != 0 {
		t.Fatalf("expected aborted node not to change the gauge, got %v", got)
	}
}

func TestCollectorCountsActivityFailures(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.LogLifecycle(statetree.LifecycleEvent{TypeName: "Todo", Hook: statetree.HookAfterCreate, Err: errors.New("sink down")})
	if got := testutil.ToFloat64(collector.activityFailures); got != 1 {
		t.Fatalf("expected one activity failure, got %v", got)
	}
	if got := testutil.ToFloat64(collector.hooks.WithLabelValues(string(statetree.HookAfterCreate))); got != 0 {
		t.Fatalf("expected failed delivery not to count as a hook, got %v", got)
	}
}

func TestCollectorObservesPredicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	collector.LogEvaluation(statetree.EvaluatorLogEvent{Engine: "expr", Duration: time.Millisecond})
	collector.LogEvaluation(statetree.EvaluatorLogEvent{Engine: "expr", Duration: time.Millisecond, Err: errors.New("boom")})

	if got := testutil.ToFloat64(collector.predicateErrors.WithLabelValues("expr")); got != 1 {
		t.Fatalf("expected one predicate error, got %v", got)
	}
	if got := testutil.CollectAndCount(collector.predicateDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestCollectorWithRefinement(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())
	short, err := statetree.Refinement("ShortTitle", statetree.String, "len(value) <= 5", statetree.RefineWithLogger(collector))
	if err != nil {
		t.Fatalf("refinement: %v", err)
	}
	if err := statetree.Validate(short, "toolong"); err == nil {
		t.Fatalf("expected refinement to reject long titles")
	}
	if got := testutil.CollectAndCount(collector.predicateDuration); got != 1 {
		t.Fatalf("expected predicate evaluation to be observed, got %d series", got)
	}
	if got := testutil.ToFloat64(collector.rejections.WithLabelValues("expr")); got != 1 {
		t.Fatalf("expected one rejection, got %v", got)
	}
	if err := statetree.Validate(short, "ok"); err != nil {
		t.Fatalf("expected short title to pass: %v", err)
	}
	if got := testutil.ToFloat64(collector.rejections.WithLabelValues("expr")); got != 1 {
		t.Fatalf("expected a passing value not to count as rejected, got %v", got)
	}
}
