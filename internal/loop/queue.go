package loop

import (
	"context"
	"sync"
	"time"
)

// DefaultCommandTimeout bounds a single remote command issued through a Queue.
const DefaultCommandTimeout = 30 * time.Second

type command struct {
	name     string
	run      func(ctx context.Context) error
	done     func(error)
	finished func()
}

// Queue executes commands one after another on a dedicated goroutine, in
// submission order, and posts each completion back to the loop. One Queue is
// used per channel so that, for example, an abort always reaches the peer
// before the close that follows it.
type Queue struct {
	loop    *Loop
	timeout time.Duration

	mu      sync.Mutex
	pending []command
	running bool
	closed  bool
}

// NewQueue creates a command queue bound to l.
func NewQueue(l *Loop) *Queue {
	return &Queue{loop: l, timeout: DefaultCommandTimeout}
}

// Do enqueues run. done, if non-nil, is posted to the loop with run's error.
// Commands submitted after Shutdown are dropped and done receives ErrQueueClosed.
func (q *Queue) Do(name string, run func(ctx context.Context) error, done func(error)) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if done != nil {
			q.loop.Post(func() { done(ErrQueueClosed) })
		}
		return
	}
	q.pending = append(q.pending, command{name: name, run: run, done: done, finished: q.loop.track()})
	start := !q.running
	q.running = true
	q.mu.Unlock()

	if start {
		go q.worker()
	}
}

// Shutdown rejects new commands. Commands already queued still run.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) worker() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		cmd := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := cmd.run(ctx)
		cancel()

		if cmd.done != nil {
			done := cmd.done
			q.loop.Post(func() { done(err) })
		}
		cmd.finished()
	}
}

// Call is Do for commands that return a value. done receives the zero value
// of T together with ErrQueueClosed if the queue was shut down.
func Call[T any](q *Queue, name string, run func(ctx context.Context) (T, error), done func(T, error)) {
	var result T
	var doneFn func(error)
	if done != nil {
		doneFn = func(err error) { done(result, err) }
	}
	q.Do(name, func(ctx context.Context) error {
		var err error
		result, err = run(ctx)
		return err
	}, doneFn)
}
