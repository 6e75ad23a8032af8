package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a FIFO of functions executed one at a time.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	// inflight counts async work whose continuation has not been posted yet.
	inflight atomic.Int64
}

// New creates an idle loop. Call Run to start executing posted work.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post schedules fn to run on the loop after everything posted before it.
// It never blocks and is safe to call from any goroutine, including the loop.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// drain runs everything currently queued, including work posted while draining.
func (l *Loop) drain() bool {
	ran := false
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		ran = true
	}
}

func (l *Loop) idle() bool {
	if l.inflight.Load() != 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) == 0
}

// Pending reports whether work is queued or async work is in flight. It is
// safe to call from any goroutine.
func (l *Loop) Pending() bool {
	return !l.idle()
}

// Drain runs everything currently posted without waiting for in-flight
// async work. Like Settle it is for tests and must not race with Run.
func (l *Loop) Drain() {
	l.drain()
}

// settleTimeout bounds Settle so a stuck fake fails a test instead of hanging it.
const settleTimeout = 5 * time.Second

// Settle runs posted work on the calling goroutine until the queue is empty
// and no async work is in flight. It is meant for tests that drive the loop
// by hand; it must not be used while Run is active. Settle reports false if
// the loop did not go idle within a few seconds.
func (l *Loop) Settle() bool {
	deadline := time.NewTimer(settleTimeout)
	defer deadline.Stop()

	for {
		l.drain()
		if l.idle() {
			return true
		}
		select {
		case <-l.wake:
		case <-deadline.C:
			return false
		}
	}
}

// track marks one unit of async work as started. The returned function must be
// called exactly once, after the work's continuation has been posted.
func (l *Loop) track() func() {
	l.inflight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.inflight.Add(-1)
			// Wake Settle even when the continuation was a no-op.
			select {
			case l.wake <- struct{}{}:
			default:
			}
		})
	}
}
