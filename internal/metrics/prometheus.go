// Package metrics exposes simulation activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/serbanrobu/keepaway/internal/sim"
)

// Collector implements sim.Observer backed by Prometheus.
//
// Inspections and throws are counted as they happen; queue lengths are
// sampled at the end of each round. Run-level values (score, modulus) are set
// by ObserveResult once the run finishes.
type Collector struct {
	registry *prometheus.Registry

	rounds      prometheus.Counter
	inspections *prometheus.CounterVec
	throws      *prometheus.CounterVec
	selfThrows  prometheus.Counter
	queueLength *prometheus.GaugeVec
	score       prometheus.Gauge
	modulus     prometheus.Gauge
}

var _ sim.Observer = (*Collector)(nil)

// NewCollector creates a collector registered on a fresh registry.
//
// Parameters:
//   - namespace: Prometheus metrics namespace (defaults to "keepaway" if empty)
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "keepaway"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total completed simulation rounds.",
		}),
		inspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspections_total",
			Help:      "Total items inspected, by worker.",
		}, []string{"worker"}),
		throws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throws_total",
			Help:      "Total items thrown, by source and destination worker.",
		}, []string{"from", "to"}),
		selfThrows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_throws_total",
			Help:      "Items a worker threw back to itself.",
		}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Items queued per worker at the end of the last round.",
		}, []string{"worker"}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "activity_score",
			Help:      "Product of the two largest inspection counts of the last run.",
		}),
		modulus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "common_modulus",
			Help:      "Product of all worker divisors of the last run.",
		}),
	}

	c.registry.MustRegister(
		c.rounds,
		c.inspections,
		c.throws,
		c.selfThrows,
		c.queueLength,
		c.score,
		c.modulus,
	)
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ItemThrown(_, from, to int, _, _ sim.Item) {
	f := strconv.Itoa(from)
	c.inspections.WithLabelValues(f).Inc()
	c.throws.WithLabelValues(f, strconv.Itoa(to)).Inc()
	if from == to {
		c.selfThrows.Inc()
	}
}

func (c *Collector) RoundCompleted(_ int, reg *sim.Registry) {
	c.rounds.Inc()
	for _, w := range reg.Workers {
		c.queueLength.WithLabelValues(strconv.Itoa(w.ID)).Set(float64(len(w.Items)))
	}
}

// ObserveResult records run-level values.
func (c *Collector) ObserveResult(res *sim.Result) {
	c.score.Set(float64(res.Score))
	c.modulus.Set(float64(res.Modulus))
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
