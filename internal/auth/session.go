package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authhandler/internal/channel"
	"authhandler/internal/loop"
	"authhandler/internal/wallet"
	"authhandler/pkg/logging"
)

// notifyTimeout bounds sending a failure notification.
const notifyTimeout = 5 * time.Second

// State is the lifecycle state of a Session.
type State int

const (
	// StatePending means the channel was received and no strategy runs yet.
	StatePending State = iota
	// StateActive means a strategy is running.
	StateActive
	// StateFinished means the outcome was reported.
	StateFinished
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Session services one channel from receipt to outcome. All methods must be
// called on the loop goroutine.
type Session struct {
	id      string
	ch      channel.Channel
	account channel.Account
	deps    *Deps
	queue   *loop.Queue
	inv     Invocation

	ctx    context.Context
	cancel context.CancelFunc

	state    State
	strategy Strategy
	resolved bool
	closed   bool
	outcome  error

	onFinish func(*Session)
}

func newSession(deps *Deps, ch channel.Channel, account channel.Account, inv Invocation, onFinish func(*Session)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       uuid.NewString(),
		ch:       ch,
		account:  account,
		deps:     deps,
		queue:    loop.NewQueue(deps.Loop),
		inv:      inv,
		ctx:      ctx,
		cancel:   cancel,
		onFinish: onFinish,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// ChannelID returns the serviced channel's identifier.
func (s *Session) ChannelID() string { return s.ch.ID() }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Outcome returns the finishing error; nil means success or not finished.
func (s *Session) Outcome() error { return s.outcome }

// Strategy returns the running strategy's kind.
func (s *Session) Strategy() StrategyKind {
	if s.strategy == nil {
		return StrategyNone
	}
	return s.strategy.Kind()
}

func (s *Session) accountID() string {
	if s.account == nil {
		return ""
	}
	return s.account.ID()
}

func (s *Session) accountName() string {
	if s.account == nil {
		return ""
	}
	if name := s.account.DisplayName(); name != "" {
		return name
	}
	return s.account.ID()
}

// activate starts strategy.
func (s *Session) activate(strategy Strategy) {
	if s.state != StatePending {
		return
	}
	s.strategy = strategy
	s.state = StateActive
	logging.Info("AuthSession", "Session %s: channel %s (%s) for account %s using %s",
		s.id, s.ch.ID(), s.ch.Kind(), s.accountID(), strategy.Kind())
	strategy.Start()
}

// Ready resolves the dispatcher invocation successfully. Later calls do nothing.
func (s *Session) Ready() {
	if s.resolved || s.state == StateFinished {
		return
	}
	s.resolved = true
	if s.inv != nil {
		s.inv.Resolve(nil)
	}
}

// Finish reports the outcome: nil for success, an error wrapping
// ErrCancelled for a user cancellation, any other error for a failure. Only
// the first call has an effect. It stops the strategy and closes an owned
// channel after every command already queued for it.
func (s *Session) Finish(err error) {
	if s.state == StateFinished {
		s.debug("Ignoring outcome after finish: %v", err)
		return
	}
	if IsCancelled(err) && !errors.Is(err, ErrCancelled) {
		err = fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	s.state = StateFinished
	s.outcome = err

	if s.strategy != nil {
		s.strategy.Stop()
	}
	s.cancel()

	if !s.resolved {
		s.resolved = true
		if s.inv != nil {
			s.inv.Resolve(err)
		}
	}

	s.closeChannel()
	s.queue.Shutdown()
	s.report(err)

	if s.onFinish != nil {
		s.onFinish(s)
	}
}

func (s *Session) closeChannel() {
	if s.closed || !s.ch.Kind().Owned() {
		return
	}
	s.closed = true
	chID := s.ch.ID()
	s.queue.Do("Close", s.ch.Close, func(err error) {
		if err != nil {
			logging.Warn("AuthSession", "Failed to close channel %s: %v", chID, err)
		}
	})
}

func (s *Session) report(err error) {
	switch {
	case err == nil:
		logging.Info("AuthSession", "Session %s: authentication for %s succeeded", s.id, s.accountID())
	case IsCancelled(err):
		logging.Info("AuthSession", "Session %s: authentication for %s cancelled by user", s.id, s.accountID())
	case errors.Is(err, ErrUnsupportedMechanism):
		logging.Warn("AuthSession", "Session %s: %v", s.id, err)
	default:
		logging.Error("AuthSession", err, "Session %s: authentication for %s failed (%s)", s.id, s.accountID(), ErrorName(err))
	}

	if !shouldNotify(err) || s.deps.Notifier == nil {
		return
	}
	notifier := s.deps.Notifier
	name, msg := s.accountName(), userMessage(err)
	loop.Go(s.deps.Loop, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		return notifier.AuthenticationFailed(ctx, name, msg)
	}, func(err error) {
		if err != nil {
			logging.Warn("AuthSession", "Failed to notify about authentication error: %v", err)
		}
	})
}

// post runs fn on the loop unless the session has finished by then.
func (s *Session) post(fn func()) {
	s.deps.Loop.Post(func() {
		if s.state == StateFinished {
			return
		}
		fn()
	})
}

// command queues a channel command. done runs on the loop unless the session
// finished in the meantime; a failing command without done is logged.
func (s *Session) command(name string, run func(ctx context.Context) error, done func(error)) {
	s.queue.Do(name, run, func(err error) {
		if err != nil && !errors.Is(err, loop.ErrQueueClosed) {
			logging.Warn("AuthSession", "Session %s: %s failed: %v", s.id, name, err)
		}
		if done == nil || s.state == StateFinished {
			return
		}
		done(err)
	})
}

// call is command for channel calls returning a value.
func call[T any](s *Session, name string, run func(ctx context.Context) (T, error), done func(T, error)) {
	loop.Call(s.queue, name, run, func(v T, err error) {
		if err != nil && !errors.Is(err, loop.ErrQueueClosed) {
			logging.Warn("AuthSession", "Session %s: %s failed: %v", s.id, name, err)
		}
		if s.state == StateFinished {
			return
		}
		done(v, err)
	})
}

// async runs work off the loop with the session context, which is cancelled
// when the session finishes. done is dropped if the session finished first.
func async[T any](s *Session, work func(ctx context.Context) (T, error), done func(T, error)) {
	ctx := s.ctx
	loop.Async(s.deps.Loop, func() (T, error) {
		return work(ctx)
	}, func(v T, err error) {
		if s.state == StateFinished {
			return
		}
		done(v, err)
	})
}

// walletTask opens the wallet and runs fn with it off the loop. fn is not
// called and done receives ErrStoreUnavailable when the wallet cannot be opened.
func walletTask[T any](s *Session, fn func(store wallet.Store) (T, error), done func(T, error)) {
	opener := s.deps.Wallet
	async(s, func(ctx context.Context) (T, error) {
		var zero T
		if opener == nil {
			return zero, ErrStoreUnavailable
		}
		store, err := opener.Open(ctx)
		if err != nil {
			return zero, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return fn(store)
	}, done)
}

// walletWrite is walletTask for writes whose failure is only logged.
func walletWrite(s *Session, what string, fn func(store wallet.Store) error, then func()) {
	walletTask(s, func(store wallet.Store) (struct{}, error) {
		return struct{}{}, fn(store)
	}, func(_ struct{}, err error) {
		if err != nil {
			logging.Warn("AuthSession", "Session %s: failed to %s: %v", s.id, what, err)
		}
		if then != nil {
			then()
		}
	})
}

// reconnect nudges the account so the framework retries with a new channel.
func (s *Session) reconnect() {
	if s.account == nil {
		return
	}
	account := s.account
	loop.Go(s.deps.Loop, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), loop.DefaultCommandTimeout)
		defer cancel()
		return account.Reconnect(ctx)
	}, func(err error) {
		if err != nil {
			logging.Warn("AuthSession", "Failed to reconnect account %s: %v", account.ID(), err)
		}
	})
}

func (s *Session) debug(format string, args ...interface{}) {
	logging.Debug("AuthSession", "Session %s: "+format, append([]interface{}{s.id}, args...)...)
}
