// Package master implements the swarm manager: the master-side scheduler
// that dispatches work to connected workers by walking each worker's
// current state toward a shared target state (spec §4.4), using
// swarm.NextHop and whatever restriction sets are currently active.
package master

import (
	"fmt"
	"sync/atomic"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/transport"
	"github.com/coreswarm/swarm/wire"
)

// WorkerID identifies one connected worker for the lifetime of its
// connection. IDs are never reused.
type WorkerID uint64

// MessageGenerator produces the outbound message for one hop: given the
// worker id and the edge being taken (from -> to, typed msgType), it
// returns the message body to send, or ok=false to skip dispatching this
// worker this round (e.g. "no work available right now").
type MessageGenerator func(id WorkerID, from, to swarm.State, msgType wire.Code) (payload wire.Codec, ok bool)

// ResultCallback receives a worker's decoded result message after each
// hop, alongside its requested state (spec §3, §6).
type ResultCallback func(id WorkerID, requested wire.RequestedState, result wire.Codec)

type workerRecord struct {
	id        WorkerID
	channel   transport.Channel
	state     swarm.State
	lastState swarm.State
	active    bool // true while a request is outstanding (spec §5)
	failed    bool
	wantsStop bool
}

// Manager is the swarm manager. It is not safe for concurrent use from
// multiple goroutines; every method (aside from AddWorker's channel
// plumbing) is expected to run on a single eventloop.Loop, matching the
// concurrency model the worker driver also assumes (spec §5).
type Manager struct {
	graph  *swarm.Graph
	reg    *wire.Registry
	target swarm.State
	active []swarm.RestrictionSet

	nextID  uint64
	workers map[WorkerID]*workerRecord

	genMessage    MessageGenerator
	onResult      ResultCallback
	observers     []Observer

	failedCount int64
}

// New returns a Manager bound to graph, with an initial target state of
// swarm.StateStop (spec §4.4: "workers idle toward stop until given a
// different target"). reg decodes the optional result payload nested in
// each WorkerResponse.
func New(graph *swarm.Graph, reg *wire.Registry) *Manager {
	return &Manager{
		graph:   graph,
		reg:     reg,
		target:  swarm.StateStop,
		workers: make(map[WorkerID]*workerRecord),
	}
}

// ConnectMessageGenerator installs the function used to build each hop's
// outbound message.
func (m *Manager) ConnectMessageGenerator(gen MessageGenerator) {
	m.genMessage = gen
}

// SetResultCallback installs the function notified of each worker's
// decoded result.
func (m *Manager) SetResultCallback(cb ResultCallback) {
	m.onResult = cb
}

// SetTargetState changes the state every worker is driven toward. Spec
// §9 leaves open whether a target change and a restriction-set change
// made in the same tick should re-dispatch once combined or twice in
// sequence; this Manager takes the conservative two-pass reading (each
// setter immediately re-evaluates every idle worker), documented in
// DESIGN.md.
func (m *Manager) SetTargetState(target swarm.State) {
	m.target = target
	for _, obs := range m.observers {
		obs.OnTargetChanged(target)
	}
	m.redispatchIdle()
}

// ActivateRestrictionSet adds set to the currently active set and
// re-evaluates every idle worker against the new restrictions.
func (m *Manager) ActivateRestrictionSet(set swarm.RestrictionSet) {
	for _, s := range m.active {
		if s == set {
			return
		}
	}
	m.active = append(m.active, set)
	for _, obs := range m.observers {
		obs.OnRestrictionsChanged(m.active)
	}
	m.redispatchIdle()
}

// DeactivateRestrictionSet removes set from the currently active set and
// re-evaluates every idle worker.
func (m *Manager) DeactivateRestrictionSet(set swarm.RestrictionSet) {
	out := m.active[:0]
	for _, s := range m.active {
		if s != set {
			out = append(out, s)
		}
	}
	m.active = out
	for _, obs := range m.observers {
		obs.OnRestrictionsChanged(m.active)
	}
	m.redispatchIdle()
}

// RegisterObserver adds obs to the set notified of swarm-wide events
// (spec §4.4a, §9).
func (m *Manager) RegisterObserver(obs Observer) {
	m.observers = append(m.observers, obs)
}

// AddWorker registers a new worker connection at swarm.StateStart and
// immediately attempts to give it work toward the current target.
func (m *Manager) AddWorker(ch transport.Channel) WorkerID {
	id := WorkerID(atomic.AddUint64(&m.nextID, 1))
	rec := &workerRecord{
		id:        id,
		channel:   ch,
		state:     swarm.StateStart,
		lastState: swarm.StateStart,
	}
	m.workers[id] = rec
	m.giveWorkTo(rec)
	return id
}

// CheckConnections verifies a MessageGenerator and ResultCallback have
// been installed before any worker is dispatched (spec §4.4, the
// master-side half of wiring validation paired with worker.Driver's
// CheckConnections).
func (m *Manager) CheckConnections() error {
	if m.genMessage == nil {
		return fmt.Errorf("master: no MessageGenerator connected")
	}
	if m.onResult == nil {
		return fmt.Errorf("master: no ResultCallback connected")
	}
	return nil
}

// WorkerCount returns the number of currently registered workers,
// including failed ones still tracked for reporting (spec §4.4a).
func (m *Manager) WorkerCount() int {
	return len(m.workers)
}

// FailedCount returns the number of workers currently in StateFailed.
func (m *Manager) FailedCount() int {
	return int(atomic.LoadInt64(&m.failedCount))
}

// Abort unconditionally closes every worker's channel and marks it
// failed, regardless of whether it has an outstanding request (spec §9:
// "a conservative implementation treats abort as unconditional"). Use
// Abort to tear the whole swarm down immediately; for an orderly wind-
// down, call SetTargetState(StateStop) instead and let workers drain.
func (m *Manager) Abort() {
	for _, rec := range m.workers {
		if rec.failed {
			continue
		}
		rec.channel.Close()
		m.setFailed(rec, fmt.Errorf("master: aborted"))
	}
}

// redispatchIdle walks every non-failed, non-active worker and attempts
// to give it its next hop. Active (mid-request) workers are left alone:
// their reply handler will call giveWorkTo again once the reply lands.
func (m *Manager) redispatchIdle() {
	for _, rec := range m.workers {
		if !rec.active && !rec.failed && !rec.state.Terminal() {
			m.giveWorkTo(rec)
		}
	}
}

// giveWorkTo implements the dispatch algorithm (spec §4.4): find the
// next hop toward the target avoiding active restrictions, ask the
// MessageGenerator for a payload, and send it. The target for this
// worker is stop, not the swarm's shared target, once the worker has
// itself requested to stop (spec §4.4 step 2); a worker that has
// reached its target or has no path to it is left idle and observers
// are told so.
func (m *Manager) giveWorkTo(rec *workerRecord) {
	tgt := m.target
	if rec.wantsStop {
		tgt = swarm.StateStop
	}
	if rec.state == tgt {
		m.notifyIdle(rec)
		return
	}
	to, ok := swarm.NextHop(m.graph, rec.state, tgt, m.active)
	if !ok {
		m.notifyIdle(rec)
		return
	}
	msgType, err := m.graph.TransitionMessageType(rec.state, to)
	if err != nil {
		m.setFailed(rec, err)
		return
	}
	payload, ok := m.genMessage(rec.id, rec.state, to, msgType)
	if !ok {
		return
	}

	buf := wire.NewBuffer(64)
	if err := wire.EncodeMessageAs(buf, msgType, payload); err != nil {
		m.setFailed(rec, err)
		return
	}

	rec.active = true
	m.notifyTransition(rec.state, to)
	rec.channel.Write(buf.Bytes(), func(err error) {
		if err != nil {
			m.setFailed(rec, err)
			return
		}
		rec.channel.Read(func(payload []byte, err error) {
			m.onReply(rec, to, payload, err)
		})
	})
}

// onReply implements the receive path (spec §4.4): decode the
// WorkerResponse, commit the worker's new state, forward the result, and
// immediately try to give it more work.
func (m *Manager) onReply(rec *workerRecord, newState swarm.State, payload []byte, err error) {
	rec.active = false
	if err != nil {
		m.setFailed(rec, err)
		return
	}

	buf := wire.NewBufferFromBytes(payload)
	requested, result, decodeErr := wire.DecodeResponse(buf, m.reg)
	if decodeErr != nil {
		m.setFailed(rec, decodeErr)
		return
	}

	rec.lastState = rec.state
	rec.state = newState
	rec.wantsStop = requested == wire.RequestStop

	if m.onResult != nil {
		m.onResult(rec.id, requested, result)
	}

	if rec.state.Terminal() {
		rec.channel.Close()
		return
	}
	m.giveWorkTo(rec)
}

// setFailed drives a worker to StateFailed and notifies observers (spec
// §4.4: set_failed). It is called from both the send and receive sides
// of giveWorkTo/onReply wherever a transport or decode error occurs.
func (m *Manager) setFailed(rec *workerRecord, err error) {
	if rec.failed {
		return
	}
	rec.failed = true
	rec.active = false
	from := rec.state
	rec.lastState = rec.state
	rec.state = swarm.StateFailed
	atomic.AddInt64(&m.failedCount, 1)
	m.notifyTransition(from, swarm.StateFailed)
	for _, obs := range m.observers {
		obs.OnWorkerFailed(rec.id, err)
	}
}

func (m *Manager) notifyTransition(from, to swarm.State) {
	for _, obs := range m.observers {
		obs.OnStateTransition(from, to)
	}
}

func (m *Manager) notifyIdle(rec *workerRecord) {
	for _, obs := range m.observers {
		obs.OnIdle(rec.id, rec.state)
	}
}

// Stats is a point-in-time tally of worker states, used by swarm/status
// and available to any caller wanting a snapshot without its own
// bookkeeping (spec §4.4a).
type Stats struct {
	Total   int
	Active  int
	Failed  int
	ByState map[swarm.State]int
}

// Stats returns a snapshot of every worker's current state.
func (m *Manager) Stats() Stats {
	s := Stats{ByState: make(map[swarm.State]int)}
	for _, rec := range m.workers {
		s.Total++
		if rec.active {
			s.Active++
		}
		if rec.failed {
			s.Failed++
		}
		s.ByState[rec.state]++
	}
	return s
}
