package swarm

import "testing"

func TestNextHop_StartToStop_NoRestrictions(t *testing.T) {
	g, work := buildSampleGraph(t)

	got, ok := NextHop(g, StateStart, StateStop, nil)
	if !ok {
		t.Fatal("expected a reachable hop")
	}
	if got != work && got != StateStop {
		t.Errorf("next hop = %v, want one of {work, stop}", got)
	}
}

func TestNextHop_WorkToStop_NoRestrictions(t *testing.T) {
	g, work := buildSampleGraph(t)

	got, ok := NextHop(g, work, StateStop, nil)
	if !ok {
		t.Fatal("expected a reachable hop")
	}
	if got != StateStop {
		t.Errorf("next hop = %v, want stop", got)
	}
}

func TestNextHop_Restricted_NoPath(t *testing.T) {
	g, work := buildSampleGraph(t)

	set, err := g.AddRestrictionSet("nowork")
	if err != nil {
		t.Fatalf("AddRestrictionSet: %v", err)
	}
	if err := g.AddRestriction(set, StateStart, work); err != nil {
		t.Fatalf("AddRestriction: %v", err)
	}
	if err := g.AddRestriction(set, work, work); err != nil {
		t.Fatalf("AddRestriction: %v", err)
	}

	_, ok := NextHop(g, StateStart, work, []RestrictionSet{set})
	if ok {
		t.Fatal("expected no path once start->work and work->work are restricted")
	}
}

func TestNextHop_SelfLoop(t *testing.T) {
	g, work := buildSampleGraph(t)

	got, ok := NextHop(g, work, work, nil)
	if !ok {
		t.Fatal("expected a self-loop hop")
	}
	if got != work {
		t.Errorf("next hop = %v, want work (self-loop)", got)
	}
}

func TestNextHop_Unreachable(t *testing.T) {
	g := NewGraph()
	island, err := g.AddState("island")
	if err != nil {
		t.Fatalf("AddState: %v", err)
	}
	if _, ok := NextHop(g, StateStart, island, nil); ok {
		t.Fatal("expected no path to an unreachable state")
	}
}
