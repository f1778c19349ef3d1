package worker

import (
	"errors"
	"testing"
	"time"

	swarm "github.com/coreswarm/swarm"
	"github.com/coreswarm/swarm/eventloop"
	"github.com/coreswarm/swarm/transport"
	"github.com/coreswarm/swarm/wire"
)

// jobMsg is a minimal Codec used throughout worker and master tests: a
// single uint32 payload, tagged "JOB".
type jobMsg struct{ N uint32 }

func (jobMsg) Code() wire.Code {
	c, _ := wire.EncodeTag("JOB")
	return c
}
func (m *jobMsg) WriteData(buf *wire.Buffer) error { return buf.WriteUint32(m.N) }
func (m *jobMsg) ReadData(buf *wire.Buffer) error {
	n, err := buf.ReadUint32()
	if err != nil {
		return err
	}
	m.N = n
	return nil
}

func buildJobGraph(t *testing.T) (*swarm.Graph, swarm.State) {
	t.Helper()
	g := swarm.NewGraph()
	work, err := g.AddState("work")
	if err != nil {
		t.Fatalf("AddState: %v", err)
	}
	jobCode, err := wire.EncodeTag("JOB")
	if err != nil {
		t.Fatalf("EncodeTag: %v", err)
	}
	doneCode, err := wire.EncodeTag("DONE")
	if err != nil {
		t.Fatalf("EncodeTag: %v", err)
	}
	if err := g.AddTransition(swarm.StateStart, work, jobCode); err != nil {
		t.Fatalf("AddTransition start->work: %v", err)
	}
	if err := g.AddTransition(work, swarm.StateStop, doneCode); err != nil {
		t.Fatalf("AddTransition work->stop: %v", err)
	}
	return g, work
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDriver_CheckConnections_MissingHandler(t *testing.T) {
	g, _ := buildJobGraph(t)
	d := New(g, wire.NewRegistry())
	if err := d.CheckConnections(); err == nil {
		t.Fatal("expected CheckConnections to fail with no handlers connected")
	}
}

func TestDriver_SingleJob_TransitionsToStop(t *testing.T) {
	g, work := buildJobGraph(t)
	reg := wire.NewRegistry()
	d := New(g, reg)

	var gotN uint32
	if err := d.Connect(swarm.StateStart, "JOB", func() wire.Codec { return &jobMsg{} }, func(msg wire.Codec) (wire.Codec, error) {
		gotN = msg.(*jobMsg).N
		return nil, nil
	}); err != nil {
		t.Fatalf("Connect start: %v", err)
	}
	if err := d.Connect(work, "DONE", func() wire.Codec { return &jobMsg{} }, func(msg wire.Codec) (wire.Codec, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("Connect work: %v", err)
	}
	if err := d.CheckConnections(); err != nil {
		t.Fatalf("CheckConnections: %v", err)
	}

	loop := eventloop.New(0)
	go loop.Run()
	defer loop.Stop()

	masterLoop := eventloop.New(0)
	go masterLoop.Run()
	defer masterLoop.Stop()

	workerSide, masterSide := transport.NewPipePair(loop, masterLoop)

	loop.Post(func() { d.Start(workerSide) })

	// Drive the master side by hand: send a JOB, expect a response, then
	// send a DONE-typed message to push the worker into StateStop.
	sendJob := func(tag string, n uint32, after func()) {
		buf := wire.NewBuffer(32)
		code, _ := reg.CodeOf(tag)
		if err := buf.WriteUint64(uint64(code)); err != nil {
			t.Fatalf("WriteUint64: %v", err)
		}
		if err := buf.WriteUint32(n); err != nil {
			t.Fatalf("WriteUint32: %v", err)
		}
		masterSide.Write(buf.Bytes(), func(err error) {
			if err != nil {
				t.Errorf("master write: %v", err)
				return
			}
			masterSide.Read(func(payload []byte, err error) {
				if err != nil {
					t.Errorf("master read: %v", err)
					return
				}
				after()
			})
		})
	}

	var secondSent bool
	masterLoop.Post(func() {
		sendJob("JOB", 42, func() {
			if secondSent {
				return
			}
			secondSent = true
			sendJob("DONE", 0, func() {})
		})
	})

	waitFor(t, time.Second, func() bool { return d.State() == swarm.StateStop })
	if gotN != 42 {
		t.Errorf("callback saw N=%d, want 42", gotN)
	}
}

// TestDriver_CallbackError_ReportsAborted verifies a user callback's
// error is classified ErrorAborted, not ErrorMessageType: spec §4.3
// ("callback throws -> handle_error(aborted)") and §7 both require this,
// and the original worker_manager.cpp's catch block confirms it.
func TestDriver_CallbackError_ReportsAborted(t *testing.T) {
	g, work := buildJobGraph(t)
	reg := wire.NewRegistry()
	d := New(g, reg)

	boom := errors.New("callback boom")
	if err := d.Connect(swarm.StateStart, "JOB", func() wire.Codec { return &jobMsg{} }, func(msg wire.Codec) (wire.Codec, error) {
		return nil, boom
	}); err != nil {
		t.Fatalf("Connect start: %v", err)
	}
	if err := d.Connect(work, "DONE", func() wire.Codec { return &jobMsg{} }, func(msg wire.Codec) (wire.Codec, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("Connect work: %v", err)
	}
	if err := d.CheckConnections(); err != nil {
		t.Fatalf("CheckConnections: %v", err)
	}

	var gotKind ErrorKind
	var gotErr error
	d.SetErrorHandler(func(kind ErrorKind, err error) {
		gotKind = kind
		gotErr = err
	})

	loop := eventloop.New(0)
	go loop.Run()
	defer loop.Stop()

	masterLoop := eventloop.New(0)
	go masterLoop.Run()
	defer masterLoop.Stop()

	workerSide, masterSide := transport.NewPipePair(loop, masterLoop)
	loop.Post(func() { d.Start(workerSide) })

	buf := wire.NewBuffer(32)
	code, _ := reg.CodeOf("JOB")
	if err := buf.WriteUint64(uint64(code)); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	if err := buf.WriteUint32(1); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	masterLoop.Post(func() {
		masterSide.Write(buf.Bytes(), func(err error) {
			if err != nil {
				t.Errorf("master write: %v", err)
			}
		})
	})

	waitFor(t, time.Second, func() bool { return gotErr != nil })
	if gotKind != ErrorAborted {
		t.Errorf("kind = %v, want ErrorAborted", gotKind)
	}
	if !errors.Is(gotErr, boom) {
		t.Errorf("err = %v, want wrapping %v", gotErr, boom)
	}
}
