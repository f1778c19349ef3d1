package swarm

import (
	"testing"

	"github.com/coreswarm/swarm/wire"
)

func tag(t *testing.T, s string) wire.Code {
	t.Helper()
	c, err := wire.EncodeTag(s)
	if err != nil {
		t.Fatalf("EncodeTag(%q): %v", s, err)
	}
	return c
}

func TestGraph_PredefinedStates(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"start", "stop", "failed"} {
		if _, ok := g.State(name); !ok {
			t.Errorf("predefined state %q missing", name)
		}
	}
	if g.Name(StateStart) != "start" || g.Name(StateStop) != "stop" || g.Name(StateFailed) != "failed" {
		t.Errorf("predefined state names wrong: %q %q %q", g.Name(StateStart), g.Name(StateStop), g.Name(StateFailed))
	}
}

func TestGraph_AddState_DuplicateName(t *testing.T) {
	g := NewGraph()
	if _, err := g.AddState("work"); err != nil {
		t.Fatalf("AddState: %v", err)
	}
	if _, err := g.AddState("work"); err == nil {
		t.Fatal("duplicate AddState should fail")
	}
}

func TestGraph_AddTransition_ConflictingTo(t *testing.T) {
	g := NewGraph()
	work, _ := g.AddState("work")
	if err := g.AddTransition(StateStart, work, tag(t, "A")); err != nil {
		t.Fatalf("first AddTransition: %v", err)
	}
	// Same from, same to, different message type: still a conflict (the
	// `to` bijection is violated).
	if err := g.AddTransition(StateStart, work, tag(t, "B")); err == nil {
		t.Fatal("second edge to the same `to` from the same `from` should fail")
	}
}

func TestGraph_AddTransition_ConflictingMessageType(t *testing.T) {
	g := NewGraph()
	work, _ := g.AddState("work")
	if err := g.AddTransition(StateStart, work, tag(t, "A")); err != nil {
		t.Fatalf("first AddTransition: %v", err)
	}
	if err := g.AddTransition(StateStart, StateStop, tag(t, "A")); err == nil {
		t.Fatal("second edge with the same message type from the same `from` should fail")
	}
}

func TestGraph_AddTransition_UnknownState(t *testing.T) {
	g := NewGraph()
	if err := g.AddTransition(State(999), StateStop, tag(t, "A")); err == nil {
		t.Fatal("AddTransition from an unknown state should fail")
	}
}

func TestGraph_NextState(t *testing.T) {
	g := NewGraph()
	work, _ := g.AddState("work")
	msgA := tag(t, "A")
	if err := g.AddTransition(StateStart, work, msgA); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}

	got, err := g.NextState(StateStart, msgA)
	if err != nil {
		t.Fatalf("NextState: %v", err)
	}
	if got != work {
		t.Errorf("NextState = %v, want %v", got, work)
	}

	if _, err := g.NextState(StateStart, tag(t, "B")); err == nil {
		t.Fatal("NextState with an unregistered message type should fail")
	}
}

func TestGraph_TransitionMessageType(t *testing.T) {
	g := NewGraph()
	work, _ := g.AddState("work")
	msgA := tag(t, "A")
	if err := g.AddTransition(StateStart, work, msgA); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}

	got, err := g.TransitionMessageType(StateStart, work)
	if err != nil {
		t.Fatalf("TransitionMessageType: %v", err)
	}
	if got != msgA {
		t.Errorf("TransitionMessageType = %#x, want %#x", uint64(got), uint64(msgA))
	}

	if _, err := g.TransitionMessageType(work, StateStart); err == nil {
		t.Fatal("TransitionMessageType for a nonexistent edge should fail")
	}
}

func TestGraph_Restrictions(t *testing.T) {
	g := NewGraph()
	work, _ := g.AddState("work")

	set, err := g.AddRestrictionSet("nowork")
	if err != nil {
		t.Fatalf("AddRestrictionSet: %v", err)
	}
	if err := g.AddRestriction(set, StateStart, work); err != nil {
		t.Fatalf("AddRestriction: %v", err)
	}

	if !g.IsRestricted(set, StateStart, work) {
		t.Error("expected (start, work) to be restricted")
	}
	if g.IsRestricted(set, work, StateStart) {
		t.Error("did not expect (work, start) to be restricted")
	}

	pairs := g.Restrictions(set)
	if len(pairs) != 1 || pairs[0] != ([2]State{StateStart, work}) {
		t.Errorf("Restrictions = %v, want [[start work]]", pairs)
	}
}

func TestGraph_AddRestrictionSet_Duplicate(t *testing.T) {
	g := NewGraph()
	if _, err := g.AddRestrictionSet("nowork"); err != nil {
		t.Fatalf("AddRestrictionSet: %v", err)
	}
	if _, err := g.AddRestrictionSet("nowork"); err == nil {
		t.Fatal("duplicate restriction set name should fail")
	}
}

// buildSampleGraph constructs the graph used throughout spec §8:
// start -[A]-> work -[A]-> work (self-loop), start -[B]-> stop, work -[B]-> stop.
func buildSampleGraph(t *testing.T) (*Graph, State) {
	t.Helper()
	g := NewGraph()
	work, err := g.AddState("work")
	if err != nil {
		t.Fatalf("AddState: %v", err)
	}
	if err := g.AddTransition(StateStart, work, tag(t, "A")); err != nil {
		t.Fatalf("AddTransition start->work: %v", err)
	}
	if err := g.AddTransition(work, work, tag(t, "A")); err != nil {
		t.Fatalf("AddTransition work->work: %v", err)
	}
	if err := g.AddTransition(StateStart, StateStop, tag(t, "B")); err != nil {
		t.Fatalf("AddTransition start->stop: %v", err)
	}
	if err := g.AddTransition(work, StateStop, tag(t, "B")); err != nil {
		t.Fatalf("AddTransition work->stop: %v", err)
	}
	return g, work
}
