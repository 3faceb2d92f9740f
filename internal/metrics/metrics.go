// Package metrics exposes snapshot and bridge counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "networth"

// Recorder is what the services report to. Nop satisfies it when metrics
// are disabled.
type Recorder interface {
	RecordMonth(success bool, duration time.Duration)
	RecordChunk(success bool, size int)
	RecordBridge(success bool, duration time.Duration)
	RecordChainCheck(ok bool)
}

// Collector implements Recorder on Prometheus vectors.
type Collector struct {
	namespace string

	monthsGenerated *prometheus.CounterVec
	chunksCommitted *prometheus.CounterVec
	snapshotsSaved  prometheus.Counter
	bridges         *prometheus.CounterVec
	chainChecks     *prometheus.CounterVec

	monthLatency  prometheus.Histogram
	bridgeLatency prometheus.Histogram
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates the collector. Call Register before serving.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Collector{
		namespace: namespace,
		monthsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_months_total",
				Help:      "Snapshot months computed, by outcome",
			},
			[]string{"result"},
		),
		chunksCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_chunks_total",
				Help:      "Snapshot persistence chunks, by outcome",
			},
			[]string{"result"},
		),
		snapshotsSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_saved_total",
				Help:      "Snapshots written by committed chunks",
			},
		),
		bridges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bridge_computations_total",
				Help:      "Cash-flow bridge computations, by outcome",
			},
			[]string{"result"},
		),
		chainChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_chain_checks_total",
				Help:      "Snapshot chain verifications, by outcome",
			},
			[]string{"result"},
		),
		monthLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_month_duration_seconds",
				Help:      "Time spent computing one snapshot month",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
		bridgeLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bridge_duration_seconds",
				Help:      "Time spent computing one bridge",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (c *Collector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.monthsGenerated,
		c.chunksCommitted,
		c.snapshotsSaved,
		c.bridges,
		c.chainChecks,
		c.monthLatency,
		c.bridgeLatency,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) RecordMonth(success bool, duration time.Duration) {
	c.monthsGenerated.WithLabelValues(result(success)).Inc()
	if success {
		c.monthLatency.Observe(duration.Seconds())
	}
}

// RecordChunk counts one persistence chunk; size only counts when it committed.
func (c *Collector) RecordChunk(success bool, size int) {
	c.chunksCommitted.WithLabelValues(result(success)).Inc()
	if success {
		c.snapshotsSaved.Add(float64(size))
	}
}

func (c *Collector) RecordBridge(success bool, duration time.Duration) {
	c.bridges.WithLabelValues(result(success)).Inc()
	if success {
		c.bridgeLatency.Observe(duration.Seconds())
	}
}

func (c *Collector) RecordChainCheck(ok bool) {
	c.chainChecks.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordMonth(bool, time.Duration)  {}
func (Nop) RecordChunk(bool, int)            {}
func (Nop) RecordBridge(bool, time.Duration) {}
func (Nop) RecordChainCheck(bool)            {}
