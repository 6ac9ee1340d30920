// Package metrics exposes processor activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "tickstory"

// Collector records turns and actions. It owns its registry so several
// engines can run in one process.
type Collector struct {
	registry *prometheus.Registry

	turns      *prometheus.CounterVec
	turnTime   *prometheus.HistogramVec
	rounds     prometheus.Histogram
	actions    *prometheus.CounterVec
	candidates prometheus.Histogram
}

// NewCollector creates and registers the metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "turns_total",
				Help:      "Processed user actions by outcome.",
			},
			[]string{"outcome"},
		),
		turnTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of a processing call.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"outcome"},
		),
		rounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "turn_rounds",
			Help:      "Processing rounds per call.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "actions_executed_total",
				Help:      "Executed actions.",
			},
			[]string{"action", "silent"},
		),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "planner_candidates",
			Help:      "Eligible actions found by the planner per round.",
			Buckets:   prometheus.LinearBuckets(1, 1, 6),
		}),
	}
	c.registry.MustRegister(c.turns, c.turnTime, c.rounds, c.actions, c.candidates)
	return c
}

// Registry returns the registry holding the metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnActionExecuted: c.observeAction,
		OnTurnCompleted:  c.observeTurn,
	}
}

func (c *Collector) observeAction(_ context.Context, e *domain.ActionEvent) {
	silent := "false"
	if e.Silent {
		silent = "true"
	}
	c.actions.WithLabelValues(e.Action, silent).Inc()
	c.candidates.Observe(float64(len(e.Candidates)))
}

func (c *Collector) observeTurn(_ context.Context, e *domain.TurnEvent) {
	outcome := string(e.Outcome)
	c.turns.WithLabelValues(outcome).Inc()
	c.turnTime.WithLabelValues(outcome).Observe(e.Duration.Seconds())
	c.rounds.Observe(float64(e.Rounds))
}

// Combine chains hooks so each callback runs in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var actions []func(context.Context, *domain.ActionEvent)
	var turns []func(context.Context, *domain.TurnEvent)
	for _, h := range hooks {
		if h.OnActionExecuted != nil {
			actions = append(actions, h.OnActionExecuted)
		}
		if h.OnTurnCompleted != nil {
			turns = append(turns, h.OnTurnCompleted)
		}
	}

	var out domain.LifecycleHooks
	if len(actions) > 0 {
		out.OnActionExecuted = func(ctx context.Context, e *domain.ActionEvent) {
			for _, fn := range actions {
				fn(ctx, e)
			}
		}
	}
	if len(turns) > 0 {
		out.OnTurnCompleted = func(ctx context.Context, e *domain.TurnEvent) {
			for _, fn := range turns {
				fn(ctx, e)
			}
		}
	}
	return out
}
