// Package observe collects the pluggable observer backends this module
// offers out of the box: structured logging (this file), OpenTelemetry
// tracing (observe/otelobserver), and an append-only audit trail
// (observe/audit). None of these are required — worker.Driver and
// master.Manager both work perfectly well with no observer registered —
// they exist because a production deployment of a dispatch swarm always
// wants visibility into it, the same way the teacher's Emitter interface
// exists alongside a graph engine that works fine without one.
//
// Observers enable pluggable visibility backends:
//   - Logging: stdout, files, structured JSON for aggregation.
//   - Distributed tracing: OpenTelemetry, Jaeger, Zipkin.
//   - Metrics: Prometheus (see swarm/status).
//   - Audit trails: an append-only record of every transition.
//
// Implementations should be non-blocking and resilient: an observer
// backend being slow or unavailable must never stall worker dispatch.
package observe

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/master"
)

// Format selects LogObserver's output encoding.
type Format int

const (
	// Text produces one human-readable line per event.
	Text Format = iota
	// JSON produces one JSON object per line (for log aggregation).
	JSON
)

// LogObserver implements both worker.Observer and master.Observer by
// writing one line per event to an io.Writer. It is safe for concurrent
// use even though the event loop itself is single-threaded, since a
// LogObserver may be shared across several independent Loops (one per
// worker process) in a single binary.
type LogObserver struct {
	w      io.Writer
	format Format
	graph  *swarm.Graph

	mu sync.Mutex
}

// NewLogObserver returns a LogObserver writing to w in the given format.
func NewLogObserver(w io.Writer, format Format) *LogObserver {
	return &LogObserver{w: w, format: format}
}

// WithGraph attaches graph so transitions are logged with state names
// instead of raw ids. Returns l for chaining.
func (l *LogObserver) WithGraph(g *swarm.Graph) *LogObserver {
	l.graph = g
	return l
}

type logEvent struct {
	Time   string `json:"time"`
	Kind   string `json:"kind"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Worker string `json:"worker,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (l *LogObserver) write(ev logEvent) {
	ev.Time = time.Now().UTC().Format(time.RFC3339Nano)
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.format {
	case JSON:
		enc := json.NewEncoder(l.w)
		_ = enc.Encode(ev)
	default:
		fmt.Fprintf(l.w, "%s %s from=%s to=%s worker=%s %s\n",
			ev.Time, ev.Kind, ev.From, ev.To, ev.Worker, ev.Detail)
	}
}

// OnStateTransition implements worker.Observer and master.Observer.
func (l *LogObserver) OnStateTransition(from, to swarm.State) {
	l.write(logEvent{Kind: "transition", From: l.stateLabel(from), To: l.stateLabel(to)})
}

// OnIdle implements master.Observer.
func (l *LogObserver) OnIdle(id master.WorkerID, state swarm.State) {
	l.write(logEvent{Kind: "idle", Worker: fmt.Sprintf("%d", id), To: l.stateLabel(state)})
}

// OnWorkerFailed implements master.Observer.
func (l *LogObserver) OnWorkerFailed(id master.WorkerID, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	l.write(logEvent{Kind: "worker_failed", Worker: fmt.Sprintf("%d", id), Detail: detail})
}

// OnTargetChanged implements master.Observer.
func (l *LogObserver) OnTargetChanged(target swarm.State) {
	l.write(logEvent{Kind: "target_changed", To: l.stateLabel(target)})
}

// OnRestrictionsChanged implements master.Observer.
func (l *LogObserver) OnRestrictionsChanged(active []swarm.RestrictionSet) {
	l.write(logEvent{Kind: "restrictions_changed", Detail: fmt.Sprintf("%d active", len(active))})
}

func (l *LogObserver) stateLabel(s swarm.State) string {
	if l.graph != nil {
		if name := l.graph.Name(s); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%d", uint32(s))
}
