package transport

import (
	"io"
	"sync"

	"github.com/coreswarm/swarm/wire"
	"github.com/coreswarm/swarm/eventloop"
)

// PipeChannel is an in-memory Channel backed by a pair of io.Pipes. It
// exists for tests and for single-process demos: no network round-trip,
// but the same at-most-one-outstanding read/write discipline as
// GRPCChannel. Each payload is framed with wire.WriteFrame's 8-byte
// length prefix.
type PipeChannel struct {
	loop *eventloop.Loop
	r    io.ReadCloser
	w    io.WriteCloser

	mu     sync.Mutex
	closed bool
}

// NewPipePair returns two connected PipeChannels: writes to a are read by
// b, and writes to b are read by a. loopA and loopB may be the same Loop
// (single-process master+worker in one goroutine) or different ones.
func NewPipePair(loopA, loopB *eventloop.Loop) (a, b *PipeChannel) {
	arR, abW := io.Pipe()
	baR, baW := io.Pipe()
	a = &PipeChannel{loop: loopA, r: baR, w: abW}
	b = &PipeChannel{loop: loopB, r: arR, w: baW}
	return a, b
}

func (p *PipeChannel) Read(handler func(payload []byte, err error)) {
	go func() {
		payload, err := wire.ReadFrame(p.r)
		p.loop.Post(func() {
			if err != nil {
				handler(nil, translatePipeErr(err))
				return
			}
			handler(payload, nil)
		})
	}()
}

func (p *PipeChannel) Write(payload []byte, completion func(err error)) {
	go func() {
		err := wire.WriteFrame(p.w, payload)
		p.loop.Post(func() {
			completion(translatePipeErr(err))
		})
	}()
}

func (p *PipeChannel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	rErr := p.r.Close()
	wErr := p.w.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}

func translatePipeErr(err error) error {
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrClosedPipe {
		return ErrClosed
	}
	return err
}
