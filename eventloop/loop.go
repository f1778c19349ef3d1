// Package eventloop provides the single-threaded cooperative reactor the
// rest of this module assumes (spec §5, §9: "event loop integration").
// Every master-side and driver-side handler is expected to run to
// completion on the Loop's goroutine, without preemption, so no internal
// locks are needed anywhere above this package.
//
// Loop itself is the one place the module uses a background goroutine:
// transport implementations block on real I/O off-loop and hand
// completions back in via Post, the same way a production reactor hands
// epoll/kqueue events to a single dispatch thread.
package eventloop

import (
	"sync"
	"time"
)

// Loop serializes callback execution onto a single goroutine. A nil
// *Loop is not valid; use New.
type Loop struct {
	tasks chan func()

	mu      sync.Mutex
	closed  bool
	timers  []*time.Timer
	tickers []*time.Ticker
}

// New returns a Loop with room for queueDepth pending tasks before Post
// blocks. A queueDepth of 0 is a reasonable default for most uses.
func New(queueDepth int) *Loop {
	if queueDepth < 0 {
		queueDepth = 0
	}
	return &Loop{tasks: make(chan func(), queueDepth)}
}

// Post schedules fn to run on the Loop's goroutine. Safe to call from any
// goroutine. Post blocks until the task queue has room for fn: on a Loop
// created with queueDepth 0 it waits for Run to receive fn, so a Post made
// from within a running task on a full (or unbuffered) queue never
// returns.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	l.tasks <- fn
}

// Schedule arranges for fn to run on the Loop's goroutine after `after`
// elapses, once (repeating=false) or on every tick (repeating=true),
// mirroring the three-operation event-loop abstraction from spec §9
// (read_once/write are transport's job; schedule is this).
func (l *Loop) Schedule(after time.Duration, repeating bool, fn func()) {
	if repeating {
		ticker := time.NewTicker(after)
		l.mu.Lock()
		l.tickers = append(l.tickers, ticker)
		l.mu.Unlock()
		go func() {
			for range ticker.C {
				l.Post(fn)
			}
		}()
		return
	}
	timer := time.AfterFunc(after, func() { l.Post(fn) })
	l.mu.Lock()
	l.timers = append(l.timers, timer)
	l.mu.Unlock()
}

// Run drains tasks until Stop is called, executing each to completion
// before dequeuing the next. Run returns once Stop has been called and
// every already-queued task has drained.
func (l *Loop) Run() {
	for fn := range l.tasks {
		fn()
	}
}

// Stop closes the task queue and cancels all pending timers/tickers.
// Run returns once the queue drains. Calling Stop again is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, t := range l.timers {
		t.Stop()
	}
	for _, t := range l.tickers {
		t.Stop()
	}
	l.mu.Unlock()
	close(l.tasks)
}
