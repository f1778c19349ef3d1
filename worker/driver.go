// Package worker implements the worker-side driver state machine: the
// READY -> LOOKUP -> CALLBACK -> reply cycle spec §4.3 describes, plus
// error handling (spec §7) and the graceful-close special case a worker
// hits when the master hangs up right after telling it to stop.
package worker

import (
	"errors"
	"fmt"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/transport"
	"github.com/coreswarm/swarm/wire"
)

// ErrorKind classifies a driver-level failure for SetErrorHandler (spec
// §7): io covers every transport-level failure, messagetype covers an
// inbound message whose type code is unknown or has no registered
// handler for the current state, and aborted covers a user callback that
// returns an error (spec §4.3: "callback throws -> handle_error(aborted)").
// An I/O error after Stop or after a requested stop is not reported at all.
type ErrorKind int

const (
	ErrorIO ErrorKind = iota
	ErrorMessageType
	ErrorAborted
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorIO:
		return "io"
	case ErrorMessageType:
		return "messagetype"
	case ErrorAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Callback is the user logic bound to one (from-state, message-type)
// transition via Connect. It receives the decoded inbound message and
// returns an optional reply payload to carry back in the WorkerResponse
// (nil is valid: "no result message this hop").
type Callback func(msg wire.Codec) (reply wire.Codec, err error)

type handlerKey struct {
	from State
	code wire.Code
}

// State is an alias so worker package consumers don't need to import
// swarm directly just to name a state.
type State = swarm.State

// Driver runs the per-worker state machine: it owns the current state,
// the callback table, and (once Start is called) the Channel it reads
// work from and writes replies to. A Driver is not safe for concurrent
// use; every method is expected to run on the owning eventloop.Loop.
type Driver struct {
	graph *swarm.Graph
	reg   *wire.Registry

	handlers map[handlerKey]driverHandler

	state          State
	requested      wire.RequestedState
	channel        transport.Channel
	stopRequested  bool
	closedGraceful bool

	errorHandler func(kind ErrorKind, err error)
	observer     Observer
}

type driverHandler struct {
	cb Callback
}

// New returns a Driver bound to graph, starting in swarm.StateStart. reg
// is the Registry used to decode inbound work messages; Connect registers
// each message type's factory into it as handlers are added.
func New(graph *swarm.Graph, reg *wire.Registry) *Driver {
	return &Driver{
		graph:     graph,
		reg:       reg,
		handlers:  make(map[handlerKey]driverHandler),
		state:     swarm.StateStart,
		requested: wire.RequestWork,
	}
}

// SetErrorHandler installs the callback invoked whenever the driver hits
// an io, messagetype, or aborted error (spec §7). It is optional; with no
// handler installed, errors are simply swallowed after driving the
// driver to StateFailed (non-graceful) or closing quietly (graceful).
func (d *Driver) SetErrorHandler(handler func(kind ErrorKind, err error)) {
	d.errorHandler = handler
}

// SetObserver installs an optional Observer notified of state
// transitions (spec §4.3a).
func (d *Driver) SetObserver(obs Observer) {
	d.observer = obs
}

// Connect binds cb to the transition out of from typed msgTag. tag is
// registered into the Driver's Registry via factory if not already
// present (multiple Connect calls may share one factory registration
// across different `from` states, since the registry is keyed by code,
// not by from-state). Connect fails if (from, msgTag) does not name an
// existing edge in the graph.
func (d *Driver) Connect(from State, msgTag string, factory wire.Factory, cb Callback) error {
	code, ok := d.reg.CodeOf(msgTag)
	if !ok {
		var err error
		code, err = d.reg.Register(msgTag, factory)
		if err != nil {
			return err
		}
	}
	if _, err := d.graph.NextState(from, code); err != nil {
		return err
	}
	d.handlers[handlerKey{from: from, code: code}] = driverHandler{cb: cb}
	return nil
}

// CheckConnections verifies every edge in the graph, other than edges
// into StateFailed, has a bound Connect handler (spec §4.1a). It is the
// worker-side half of graph validation; the master side is
// swarm/master.Manager.CheckConnections.
func (d *Driver) CheckConnections() error {
	for _, t := range d.graph.Transitions() {
		if t.To == swarm.StateFailed {
			continue
		}
		if _, ok := d.handlers[handlerKey{from: t.From, code: t.MsgType}]; !ok {
			return fmt.Errorf("worker: no handler connected for %s -[%#x]-> %s",
				d.graph.Name(t.From), uint64(t.MsgType), d.graph.Name(t.To))
		}
	}
	return nil
}

// State returns the driver's current state.
func (d *Driver) State() State {
	return d.state
}

// Start arms the first read on ch and begins the READY -> LOOKUP ->
// CALLBACK cycle. Start must be called at most once per Driver.
func (d *Driver) Start(ch transport.Channel) {
	d.channel = ch
	d.armRead()
}

func (d *Driver) armRead() {
	if d.state.Terminal() {
		return
	}
	d.channel.Read(d.onFrame)
}

// onFrame is the LOOKUP step: decode the inbound message, find its
// handler for the current state, and invoke CALLBACK.
func (d *Driver) onFrame(payload []byte, err error) {
	if err != nil {
		d.onReadError(err)
		return
	}

	buf := wire.NewBufferFromBytes(payload)
	code, decodeErr := peekCode(buf)
	if decodeErr != nil {
		d.fail(ErrorMessageType, decodeErr)
		return
	}

	h, ok := d.handlers[handlerKey{from: d.state, code: code}]
	if !ok {
		d.fail(ErrorMessageType, fmt.Errorf("worker: state %s has no handler for message type %#x", d.graph.Name(d.state), uint64(code)))
		return
	}

	msg, decodeErr := wire.DecodeMessage(wire.NewBufferFromBytes(payload), d.reg)
	if decodeErr != nil {
		d.fail(ErrorMessageType, decodeErr)
		return
	}

	to, _ := d.graph.NextState(d.state, code) // known to exist: Connect validated it

	reply, cbErr := h.cb(msg)
	if cbErr != nil {
		d.fail(ErrorAborted, cbErr)
		return
	}

	d.transition(to)
	d.sendReply(reply)
}

// transition moves the driver to `to`, notifying the observer.
func (d *Driver) transition(to State) {
	from := d.state
	d.state = to
	if d.observer != nil {
		d.observer.OnStateTransition(from, to)
	}
}

func (d *Driver) sendReply(payload wire.Codec) {
	buf := wire.NewBuffer(64)
	if err := wire.EncodeResponse(buf, d.requested, payload); err != nil {
		d.fail(ErrorIO, err)
		return
	}
	d.channel.Write(buf.Bytes(), func(err error) {
		if err != nil {
			d.onWriteError(err)
			return
		}
		if d.state.Terminal() {
			d.channel.Close()
			return
		}
		d.armRead()
	})
}

// RequestStop marks the driver's next reply as requesting to stop (spec
// §3: the worker's advisory request_state signal). The master decides
// when, or whether, to actually honor it.
func (d *Driver) RequestStop() {
	d.requested = wire.RequestStop
	d.stopRequested = true
}

// Stop forcibly closes the channel from the worker side, treating
// whatever I/O error results (typically ECONNRESET, since the master may
// already have hung up) as the graceful close spec §7 carves out rather
// than a reportable io error.
func (d *Driver) Stop() {
	d.closedGraceful = true
	if d.channel != nil {
		d.channel.Close()
	}
	d.transition(swarm.StateStop)
}

func (d *Driver) onReadError(err error) {
	if d.closedGraceful || (d.stopRequested && errors.Is(err, transport.ErrClosed)) {
		// The master closed the connection right after we told it we
		// wanted to stop: this is the expected shutdown race, not a
		// reportable failure (spec §7).
		d.transition(swarm.StateStop)
		return
	}
	d.fail(ErrorIO, err)
}

func (d *Driver) onWriteError(err error) {
	if d.closedGraceful {
		d.transition(swarm.StateStop)
		return
	}
	d.fail(ErrorIO, err)
}

func (d *Driver) fail(kind ErrorKind, err error) {
	d.transition(swarm.StateFailed)
	if d.channel != nil {
		d.channel.Close()
	}
	if d.errorHandler != nil {
		d.errorHandler(kind, err)
	}
}

// peekCode reads the 8-byte type code from buf, advancing buf's cursor
// past it. Buffer has no native peek, so onFrame hands peekCode a
// throwaway Buffer over the payload and decodes the code twice (once here
// to find the handler, once for real via DecodeMessage on a fresh Buffer)
// rather than add a peek to the wire package just for this.
func peekCode(buf *wire.Buffer) (wire.Code, error) {
	raw, err := buf.ReadUint64()
	if err != nil {
		return 0, err
	}
	return wire.Code(raw), nil
}
