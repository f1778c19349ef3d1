package swarm

import "github.com/coreswarm/swarm/wire"

// RestrictionSet identifies a named set of forbidden (from, to) pairs
// (spec §3). A RestrictionSet need not be active to exist; the master's
// Manager.ActivateRestrictionSet and Manager.DeactivateRestrictionSet
// (see swarm/master) toggle which sets currently apply.
type RestrictionSet uint32

type transitionEntry struct {
	to   State
	code wire.Code
}

type edgeKey struct{ from, to State }

// Graph is an immutable-after-construction description of states, typed
// transitions, and named restriction sets (spec §3, §4.1). A Graph is
// built once and shared read-only between the master and every worker
// driver; nothing about it may change once CheckConnections succeeds and
// workers start exchanging messages.
type Graph struct {
	names  map[State]string
	byName map[string]State
	nextID State

	// outEdges preserves insertion order per from-state; path search and
	// NextStates both rely on this order for deterministic tie-breaking
	// (spec §4.2).
	outEdges   map[State][]transitionEntry
	outByTo    map[State]map[State]wire.Code
	outByCode  map[State]map[wire.Code]State

	restrictionNames map[string]RestrictionSet
	restrictions     map[RestrictionSet]map[edgeKey]struct{}
	nextRestriction  RestrictionSet
}

// NewGraph returns a Graph pre-populated with the three predefined states
// every graph has: StateStart, StateStop, StateFailed (spec §3).
func NewGraph() *Graph {
	g := &Graph{
		names:            make(map[State]string),
		byName:           make(map[string]State),
		outEdges:         make(map[State][]transitionEntry),
		outByTo:          make(map[State]map[State]wire.Code),
		outByCode:        make(map[State]map[wire.Code]State),
		restrictionNames: make(map[string]RestrictionSet),
		restrictions:     make(map[RestrictionSet]map[edgeKey]struct{}),
	}
	g.names[StateStart] = "start"
	g.names[StateStop] = "stop"
	g.names[StateFailed] = "failed"
	g.byName["start"] = StateStart
	g.byName["stop"] = StateStop
	g.byName["failed"] = StateFailed
	g.nextID = firstUserState
	return g
}

// AddState registers a new, uniquely-named state and returns its id.
// Duplicate names are a caller error (spec §4.1).
func (g *Graph) AddState(name string) (State, error) {
	if _, exists := g.byName[name]; exists {
		return 0, configErrorf("AddState", "duplicate state name %q", name)
	}
	id := g.nextID
	g.nextID++
	g.names[id] = name
	g.byName[name] = id
	return id, nil
}

// State looks up a previously added state by name.
func (g *Graph) State(name string) (State, bool) {
	s, ok := g.byName[name]
	return s, ok
}

// Name returns the registered name for s, or "" if s is unknown.
func (g *Graph) Name(s State) string {
	return g.names[s]
}

func (g *Graph) knows(s State) bool {
	_, ok := g.names[s]
	return ok
}

// AddTransition adds a directed, typed edge (from, to, msgType). It fails
// if either state is unknown, if from already has an outgoing edge to
// `to`, or if from already has an outgoing edge typed msgType — the two
// invariants from spec §3 that together give a bijection between `to`
// and `msgType` within each `from`.
func (g *Graph) AddTransition(from, to State, msgType wire.Code) error {
	if !g.knows(from) {
		return configErrorf("AddTransition", "unknown from-state %d", from)
	}
	if !g.knows(to) {
		return configErrorf("AddTransition", "unknown to-state %d", to)
	}
	if existing, ok := g.outByTo[from][to]; ok {
		return configErrorf("AddTransition", "state %q already has an outgoing edge to %q (type %#x)", g.names[from], g.names[to], uint64(existing))
	}
	if existing, ok := g.outByCode[from][msgType]; ok {
		return configErrorf("AddTransition", "state %q already has an outgoing edge typed %#x (to %q)", g.names[from], uint64(msgType), g.names[existing])
	}

	g.outEdges[from] = append(g.outEdges[from], transitionEntry{to: to, code: msgType})
	if g.outByTo[from] == nil {
		g.outByTo[from] = make(map[State]wire.Code)
	}
	g.outByTo[from][to] = msgType
	if g.outByCode[from] == nil {
		g.outByCode[from] = make(map[wire.Code]State)
	}
	g.outByCode[from][msgType] = to
	return nil
}

// NextStates returns the outgoing neighborhood of from, in the order the
// transitions were added.
func (g *Graph) NextStates(from State) []State {
	entries := g.outEdges[from]
	out := make([]State, len(entries))
	for i, e := range entries {
		out[i] = e.to
	}
	return out
}

// NextState returns the unique neighbor reached from `from` by a message
// of type msgType. It fails if no such edge exists.
func (g *Graph) NextState(from State, msgType wire.Code) (State, error) {
	to, ok := g.outByCode[from][msgType]
	if !ok {
		return 0, configErrorf("NextState", "state %q has no transition typed %#x", g.names[from], uint64(msgType))
	}
	return to, nil
}

// TransitionMessageType returns the unique message type for the edge
// (from, to). It fails if no such edge exists.
func (g *Graph) TransitionMessageType(from, to State) (wire.Code, error) {
	code, ok := g.outByTo[from][to]
	if !ok {
		return 0, configErrorf("TransitionMessageType", "no transition from %q to %q", g.names[from], g.names[to])
	}
	return code, nil
}

// Transition is one typed edge of a Graph, as returned by Transitions.
type Transition struct {
	From    State
	To      State
	MsgType wire.Code
}

// Transitions enumerates every edge in the graph. States are visited in
// ascending id order (which includes the three predefined states even
// when they have no outgoing edges), and each state's own edges are
// listed in insertion order. worker.Driver.CheckConnections walks this
// list to confirm every edge has a registered handler (spec §4.1a).
func (g *Graph) Transitions() []Transition {
	var out []Transition
	for id := State(0); id < g.nextID; id++ {
		if !g.knows(id) {
			continue
		}
		for _, e := range g.outEdges[id] {
			out = append(out, Transition{From: id, To: e.to, MsgType: e.code})
		}
	}
	return out
}

// States returns every registered state id in ascending order.
func (g *Graph) States() []State {
	out := make([]State, 0, len(g.names))
	for id := State(0); id < g.nextID; id++ {
		if g.knows(id) {
			out = append(out, id)
		}
	}
	return out
}
