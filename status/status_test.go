package status

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/master"
	"github.com/coreswarm/swarm/wire"
)

func TestDisplay_ReportsWorkerTally(t *testing.T) {
	g := swarm.NewGraph()
	mgr := master.New(g, wire.NewRegistry())
	mgr.ConnectMessageGenerator(func(id master.WorkerID, from, to swarm.State, msgType wire.Code) (wire.Codec, bool) {
		return nil, false
	})
	mgr.SetResultCallback(func(master.WorkerID, wire.RequestedState, wire.Codec) {})

	var buf bytes.Buffer
	Display(&buf, mgr, g, time.Minute)

	out := buf.String()
	if !strings.Contains(out, "workers:") {
		t.Errorf("Display output missing worker tally: %q", out)
	}
}

func TestMetrics_Sample_UsesIsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	g := swarm.NewGraph()
	mgr := master.New(g, wire.NewRegistry())
	mgr.ConnectMessageGenerator(func(id master.WorkerID, from, to swarm.State, msgType wire.Code) (wire.Codec, bool) {
		return nil, false
	})
	mgr.SetResultCallback(func(master.WorkerID, wire.RequestedState, wire.Codec) {})

	m.Sample(mgr, g)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one metric family registered")
	}
}
