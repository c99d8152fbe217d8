// Package metrics records per-run Prometheus metrics and exports them to a
// node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Item outcomes.
const (
	OutcomeOK   = "ok"
	OutcomeFail = "fail"
)

// Metrics holds the collectors of one run. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	items        *prometheus.CounterVec
	changes      *prometheus.CounterVec
	itemDuration prometheus.Histogram
	runDuration  prometheus.Gauge
	lastRun      prometheus.Gauge
	decisions    *prometheus.GaugeVec
}

// New creates the run collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalogsync",
				Name:      "items_total",
				Help:      "Items attempted in apply mode, by outcome.",
			},
			[]string{"outcome"},
		),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalogsync",
				Name:      "changes_total",
				Help:      "Writes performed on the panel, by kind.",
			},
			[]string{"kind"},
		),
		itemDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "catalogsync",
				Name:      "item_duration_seconds",
				Help:      "Time spent converging one item.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "catalogsync",
				Name:      "run_duration_seconds",
				Help:      "Duration of the last run.",
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "catalogsync",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished.",
			},
		),
		decisions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "catalogsync",
				Name:      "decisions",
				Help:      "Decisions of the last run, by target availability.",
			},
			[]string{"available"},
		),
	}
	reg.MustRegister(m.items, m.changes, m.itemDuration, m.runDuration, m.lastRun, m.decisions)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveItem records one attempted item.
func (m *Metrics) ObserveItem(ok, availabilityChanged, quantityChanged bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFail
	}
	m.items.WithLabelValues(outcome).Inc()
	if availabilityChanged {
		m.changes.WithLabelValues("availability").Inc()
	}
	if quantityChanged {
		m.changes.WithLabelValues("quantity").Inc()
	}
	m.itemDuration.Observe(d.Seconds())
}

// SetDecisions records how many items were decided available and unavailable.
func (m *Metrics) SetDecisions(available, unavailable int) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues("true").Set(float64(available))
	m.decisions.WithLabelValues("false").Set(float64(unavailable))
}

// FinishRun records the run duration and completion time.
func (m *Metrics) FinishRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Set(d.Seconds())
	m.lastRun.SetToCurrentTime()
}

// WriteTextfile writes every metric to path in text exposition format. An
// empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
