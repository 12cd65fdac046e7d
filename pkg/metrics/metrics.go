// Package metrics exposes depview counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/albertocavalcante/depview/pkg/usage"
)

const namespace = "depview"

// Collector records usage interning and target fingerprint activity. It
// implements usage.InternObserver and fingerprint.Observer.
//
// Each Collector owns its registry, so several can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	interned *prometheus.CounterVec
	checks   *prometheus.CounterVec
	saves    *prometheus.CounterVec
	runs     prometheus.Counter
}

// New creates a collector with its own registry. Go runtime and process
// collectors are included when runtime is true.
func New(runtime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		interned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "intern_total",
			Help:      "Usage intern requests by kind and result.",
		}, []string{"kind", "result"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "target",
			Name:      "checks_total",
			Help:      "Target configuration checks by target type and state.",
		}, []string{"type", "state"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "target",
			Name:      "saves_total",
			Help:      "Target configuration saves by target type and result.",
		}, []string{"type", "result"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Completed evaluations of the target set.",
		}),
	}

	c.registry.MustRegister(c.interned, c.checks, c.saves, c.runs)
	if runtime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// UsageInterned implements usage.InternObserver.
func (c *Collector) UsageInterned(kind usage.Kind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.interned.WithLabelValues(kind.String(), result).Inc()
}

// ConfigurationChecked implements fingerprint.Observer.
func (c *Collector) ConfigurationChecked(typeID string, dirty bool) {
	state := "clean"
	if dirty {
		state = "dirty"
	}
	c.checks.WithLabelValues(typeID, state).Inc()
}

// ConfigurationSaved implements fingerprint.Observer.
func (c *Collector) ConfigurationSaved(typeID string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.saves.WithLabelValues(typeID, result).Inc()
}

// EvaluationDone counts one full pass over the target set.
func (c *Collector) EvaluationDone() {
	c.runs.Inc()
}

// InternTotals sums the intern counter over all kinds.
func (c *Collector) InternTotals() (hits, misses int, err error) {
	families, err := c.registry.Gather()
	if err != nil {
		return 0, 0, err
	}
	for _, mf := range families {
		if mf.GetName() != namespace+"_usage_intern_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			n := int(m.GetCounter().GetValue())
			for _, l := range m.GetLabel() {
				switch {
				case l.GetName() != "result":
				case l.GetValue() == "hit":
					hits += n
				default:
					misses += n
				}
			}
		}
	}
	return hits, misses, nil
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the /metrics scrape endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
