// Package metrics exports tree lifecycle activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-statetree"
)

// Collector counts lifecycle transitions, hook firings and predicate
// evaluations. It implements statetree.LifecycleLogger and
// statetree.EvaluatorLogger, so one collector can observe trees and
// refinements alike.
type Collector struct {
	transitions       *prometheus.CounterVec
	alive             *prometheus.GaugeVec
	hooks             *prometheus.CounterVec
	predicateDuration *prometheus.HistogramVec
	predicateErrors   *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	activityFailures  prometheus.Counter
}

var (
	_ statetree.LifecycleLogger = (*Collector)(nil)
	_ statetree.EvaluatorLogger = (*Collector)(nil)
)

// NewCollector registers the statetree metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statetree_node_transitions_total",
			Help: "Node lifecycle transitions by type and target state",
		}, []string{"type", "state"}),
		alive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statetree_nodes_alive",
			Help: "Nodes created and not yet dead, by type",
		}, []string{"type"}),
		hooks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statetree_hook_fired_total",
			Help: "Lifecycle hooks fired by hook name",
		}, []string{"hook"}),
		predicateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statetree_predicate_duration_seconds",
			Help:    "Refinement predicate evaluation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8), // 10µs to ~160ms
		}, []string{"engine"}),
		predicateErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statetree_predicate_errors_total",
			Help: "Refinement predicate evaluations that failed to run",
		}, []string{"engine"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statetree_predicate_rejections_total",
			Help: "Values a refinement predicate rejected",
		}, []string{"engine"}),
		activityFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "statetree_activity_failures_total",
			Help: "Activity events a sink failed to accept",
		}),
	}
}

// LogLifecycle implements statetree.LifecycleLogger.
func (c *Collector) LogLifecycle(event statetree.LifecycleEvent) {
	if event.Err != nil {
		c.activityFailures.Inc()
		return
	}
	if event.Hook != "" {
		c.hooks.WithLabelValues(string(event.Hook)).Inc()
		return
	}
	if !event.IsTransition() {
		return
	}
	c.transitions.WithLabelValues(event.TypeName, event.To.String()).Inc()
	switch {
	case event.From == statetree.StateInitializing && event.To == statetree.StateCreated:
		c.alive.WithLabelValues(event.TypeName).Inc()
	case event.To == statetree.StateDead && event.From != statetree.StateInitializing:
		// Nodes that fail during construction never counted as alive.
		c.alive.WithLabelValues(event.TypeName).Dec()
	}
}

// LogEvaluation implements statetree.EvaluatorLogger.
func (c *Collector) LogEvaluation(event statetree.EvaluatorLogEvent) {
	c.predicateDuration.WithLabelValues(event.Engine).Observe(event.Duration.Seconds())
	switch {
	case event.Err != nil:
		c.predicateErrors.WithLabelValues(event.Engine).Inc()
	case event.Rejected:
		c.rejections.WithLabelValues(event.Engine).Inc()
	}
}
