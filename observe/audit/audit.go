// Package audit provides an append-only record of every worker state
// transition, grounded on the teacher's graph/store package but
// deliberately simplified: a swarm has no checkpoint/replay concept
// (spec Non-goals — "no persistence/replay across restarts"), so Log is
// write-only. It exists purely so a deployment can answer "what did
// worker N do" after the fact; restarting from a Log is out of scope.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/master"
)

// Entry is one recorded transition. ID is a random UUID rather than an
// auto-increment counter so entries from independent masters (or
// independent Log backends) never collide when merged centrally.
type Entry struct {
	ID        string
	WorkerID  uint64
	From      string
	To        string
	Timestamp time.Time
}

// Log persists Entries. Observer wraps a Log and calls Append inline on
// the event loop, so dispatch waits for every Append to return. The
// SQLiteLog and MySQLLog backends in this package write synchronously
// inside Append; they do not buffer.
type Log interface {
	Append(ctx context.Context, e Entry) error
}

// Observer adapts a Log to worker.Observer and master.Observer, so it
// can be registered with worker.Driver.SetObserver or
// master.Manager.RegisterObserver exactly like LogObserver or
// otelobserver.Observer.
type Observer struct {
	log   Log
	graph *swarm.Graph
	ctx   context.Context
}

// New returns an Observer appending every transition to log. ctx bounds
// each Append call (a context.Background with its own timeout is a
// reasonable default for most backends).
func New(ctx context.Context, log Log) *Observer {
	return &Observer{log: log, ctx: ctx}
}

// WithGraph attaches graph so entries carry state names. Returns o for
// chaining.
func (o *Observer) WithGraph(g *swarm.Graph) *Observer {
	o.graph = g
	return o
}

func (o *Observer) label(s swarm.State) string {
	if o.graph != nil {
		if name := o.graph.Name(s); name != "" {
			return name
		}
	}
	return ""
}

// OnStateTransition implements worker.Observer and master.Observer. The
// recorded WorkerID is always 0: OnStateTransition carries no worker id
// on either the driver or the master side.
func (o *Observer) OnStateTransition(from, to swarm.State) {
	_ = o.log.Append(o.ctx, Entry{ID: uuid.NewString(), From: o.label(from), To: o.label(to), Timestamp: timeNow()})
}

// OnIdle implements master.Observer; idling is not a transition, so it
// is not recorded by this Observer (see OnWorkerFailed).
func (o *Observer) OnIdle(master.WorkerID, swarm.State) {}

// OnWorkerFailed implements master.Observer; failures are not themselves
// transitions, so they are not recorded by this Observer. Use LogObserver
// or another master.Observer to capture failures too.
func (o *Observer) OnWorkerFailed(master.WorkerID, error) {}

// OnTargetChanged implements master.Observer; not recorded (see
// OnWorkerFailed).
func (o *Observer) OnTargetChanged(swarm.State) {}

// OnRestrictionsChanged implements master.Observer; not recorded (see
// OnWorkerFailed).
func (o *Observer) OnRestrictionsChanged([]swarm.RestrictionSet) {}

// timeNow exists only so tests can't accidentally depend on wall-clock
// ordering within a single tick; production code always wants the real
// clock.
func timeNow() time.Time { return time.Now().UTC() }
