// Package dispatch serializes work onto a single logical thread, mirroring a
// game engine's main-thread dispatcher. Background timers and asynchronous
// request callbacks post continuations here instead of mutating engine state
// from their own goroutines.
package dispatch

import "context"

// Loop is a serialized task queue. Tasks run in post order on whichever
// goroutine drains the loop (Run or RunPending), never concurrently.
type Loop struct {
	tasks chan func()
	sync  bool
}

// New creates a loop with the given queue capacity.
func New(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 64
	}
	return &Loop{tasks: make(chan func(), capacity)}
}

// Synchronous returns a loop that runs every posted task inline on the
// posting goroutine. Used for fixture-backed wiring and tests where all
// activity already happens on one goroutine.
func Synchronous() *Loop {
	return &Loop{sync: true}
}

// Inline reports whether posted tasks run inline on the posting goroutine.
// Inline loops give no cross-goroutine serialization: callers wiring
// background timers or asynchronous services need a queued loop.
func (l *Loop) Inline() bool { return l.sync }

// Post enqueues fn for execution on the loop. On a synchronous loop fn runs
// immediately. Blocks if the queue is full.
func (l *Loop) Post(fn func()) {
	if l.sync {
		fn()
		return
	}
	l.tasks <- fn
}

// Run drains tasks until ctx is done. Call from the goroutine that owns the
// engine state.
func (l *Loop) Run(ctx context.Context) {
	if l.sync {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// RunPending drains currently queued tasks without blocking. Suited to a
// per-frame pump.
func (l *Loop) RunPending() {
	if l.sync {
		return
	}
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}
