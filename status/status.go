// Package status provides a periodic tally of swarm state, grounded on
// the teacher's PrometheusMetrics: gauges tracking worker counts per
// state and a textual display suitable for a terminal dashboard, the
// same "expose counters plus a human-readable summary" split the teacher
// uses for graph execution.
package status

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/master"
)

// Metrics exposes Prometheus gauges/counters tracking swarm-wide state,
// updated each time Sample is called against a master.Manager's Stats.
// All metrics are namespaced "swarm_" (spec §4.4a: worker-count
// reporting, not a core requirement, but the natural complement to one).
type Metrics struct {
	workersTotal  prometheus.Gauge
	workersActive prometheus.Gauge
	workersFailed prometheus.Gauge
	byState       *prometheus.GaugeVec
	samples       prometheus.Counter
}

// NewMetrics registers swarm gauges/counters with registry. Pass nil to
// use prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		workersTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarm",
			Name:      "workers_total",
			Help:      "Number of workers currently registered with the manager",
		}),
		workersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarm",
			Name:      "workers_active",
			Help:      "Number of workers with an outstanding request/response in flight",
		}),
		workersFailed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarm",
			Name:      "workers_failed",
			Help:      "Number of workers currently in the failed state",
		}),
		byState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "swarm",
			Name:      "workers_by_state",
			Help:      "Number of workers currently in each named state",
		}, []string{"state"}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "swarm",
			Name:      "status_samples_total",
			Help:      "Number of times Sample has recorded a snapshot",
		}),
	}
}

// Sample records one snapshot of mgr's current state into the gauges.
// graph resolves state ids to names for the byState vector's labels.
func (m *Metrics) Sample(mgr *master.Manager, graph *swarm.Graph) {
	stats := mgr.Stats()
	m.workersTotal.Set(float64(stats.Total))
	m.workersActive.Set(float64(stats.Active))
	m.workersFailed.Set(float64(stats.Failed))
	for state, count := range stats.ByState {
		m.byState.WithLabelValues(graph.Name(state)).Set(float64(count))
	}
	m.samples.Inc()
}

// Display writes one human-readable tally of mgr's current state to w,
// formatted with go-humanize for byte/duration readability: worker
// totals, one line per occupied state, then this process's goroutine
// count and heap allocation. It does not print the target state, the
// per-state active/idle split, or user/system CPU time, and it does not
// reschedule itself; a caller wanting a periodic display schedules it.
func Display(w io.Writer, mgr *master.Manager, graph *swarm.Graph, uptime time.Duration) {
	stats := mgr.Stats()
	fmt.Fprintf(w, "workers: %s total, %s active, %s failed (uptime %s)\n",
		humanize.Comma(int64(stats.Total)),
		humanize.Comma(int64(stats.Active)),
		humanize.Comma(int64(stats.Failed)),
		humanize.RelTime(time.Now().Add(-uptime), time.Now(), "", ""),
	)
	for _, s := range graph.States() {
		count := stats.ByState[s]
		if count == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-12s %s\n", graph.Name(s), humanize.Comma(int64(count)))
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(w, "goroutines: %s, heap: %s\n",
		humanize.Comma(int64(runtime.NumGoroutine())),
		humanize.Bytes(mem.HeapAlloc),
	)
}
