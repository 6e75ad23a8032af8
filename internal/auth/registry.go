package auth

import (
	"context"
	"fmt"
	"time"

	"authhandler/internal/channel"
	"authhandler/pkg/logging"
)

// Registry maps channels to their sessions. Every method must be called on
// the loop goroutine; the bus adapter posts incoming invocations there.
type Registry struct {
	deps     *Deps
	sessions map[string]*Session

	idleTimeout time.Duration
	idleTimer   *time.Timer
	idleGen     int
	onIdle      func()

	// OnFinished, if set, observes every finished session.
	OnFinished func(*Session)
}

// NewRegistry creates a registry. With idleTimeout > 0, onIdle is called on
// the loop once no session has been active for that long.
func NewRegistry(deps *Deps, idleTimeout time.Duration, onIdle func()) *Registry {
	return &Registry{
		deps:        deps,
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		onIdle:      onIdle,
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Session returns the live session for a channel id.
func (r *Registry) Session(channelID string) (*Session, bool) {
	s, ok := r.sessions[channelID]
	return s, ok
}

// HandleSASL takes a SASL server-authentication channel. inv is resolved
// once a strategy has been chosen, or with the error that prevented it.
func (r *Registry) HandleSASL(ch channel.SASLChannel, account channel.Account, inv Invocation) error {
	s, err := r.begin(ch, account, inv)
	if err != nil {
		return err
	}
	call(s, "Properties", ch.Properties, func(props channel.SASLProperties, err error) {
		if err != nil {
			s.Finish(fmt.Errorf("failed to read SASL properties: %w", err))
			return
		}
		choice, err := SelectMechanism(props.AvailableMechanisms, account)
		if err != nil {
			s.Finish(err)
			return
		}
		s.debug("Selected %s with %s", choice.Strategy, choice.Mechanism)

		var strategy Strategy
		switch choice.Strategy {
		case StrategySSO:
			strategy = newSSOStrategy(s, ch, choice.Mechanism, props)
		case StrategyOAuth2Browser:
			strategy = newOAuth2BrowserStrategy(s, ch, choice.Mechanism, props)
		default:
			strategy = newPasswordStrategy(s, ch, choice.Mechanism, props)
		}
		s.activate(strategy)
		s.Ready()
	})
	return nil
}

// HandleTLS takes a server TLS connection channel.
func (r *Registry) HandleTLS(ch channel.TLSChannel, account channel.Account, inv Invocation) error {
	s, err := r.begin(ch, account, inv)
	if err != nil {
		return err
	}
	s.Ready()
	s.activate(newCertificateStrategy(s, ch))
	return nil
}

// HandleCaptcha takes a captcha authentication channel.
func (r *Registry) HandleCaptcha(ch channel.CaptchaChannel, account channel.Account, inv Invocation) error {
	s, err := r.begin(ch, account, inv)
	if err != nil {
		return err
	}
	s.Ready()
	s.activate(newCaptchaStrategy(s, ch))
	return nil
}

// ObserveRoom watches a chat-room channel that may need a password.
func (r *Registry) ObserveRoom(ch channel.RoomPasswordChannel, account channel.Account, inv Invocation) error {
	s, err := r.begin(ch, account, inv)
	if err != nil {
		return err
	}
	s.Ready()
	s.activate(newRoomStrategy(s, ch))
	return nil
}

func (r *Registry) begin(ch channel.Channel, account channel.Account, inv Invocation) (*Session, error) {
	if _, busy := r.sessions[ch.ID()]; busy {
		logging.Warn("AuthRegistry", "Channel %s is already being handled", ch.ID())
		if inv != nil {
			inv.Resolve(ErrAlreadyHandled)
		}
		return nil, ErrAlreadyHandled
	}
	r.stopIdleTimer()
	s := newSession(r.deps, ch, account, inv, r.finished)
	r.sessions[ch.ID()] = s
	logging.Debug("AuthRegistry", "Session %s started for channel %s, %d active", s.ID(), ch.ID(), len(r.sessions))
	return s, nil
}

func (r *Registry) finished(s *Session) {
	if cur, ok := r.sessions[s.ChannelID()]; ok && cur == s {
		delete(r.sessions, s.ChannelID())
	}
	logging.Debug("AuthRegistry", "Session %s released, %d active", s.ID(), len(r.sessions))
	if r.OnFinished != nil {
		r.OnFinished(s)
	}
	if len(r.sessions) == 0 {
		r.StartIdleTimer()
	}
}

// StartIdleTimer arms the idle timeout if there are no sessions.
func (r *Registry) StartIdleTimer() {
	if r.idleTimeout <= 0 || r.onIdle == nil || len(r.sessions) > 0 {
		return
	}
	r.stopIdleTimer()
	gen := r.idleGen
	r.idleTimer = time.AfterFunc(r.idleTimeout, func() {
		r.deps.Loop.Post(func() {
			// A session may have started, or the timer been re-armed, since.
			if gen != r.idleGen || len(r.sessions) > 0 {
				return
			}
			logging.Info("AuthRegistry", "No authentication activity for %s, exiting", r.idleTimeout)
			r.onIdle()
		})
	})
}

func (r *Registry) stopIdleTimer() {
	r.idleGen++
	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}
}

// Shutdown cancels every live session, for daemon exit.
func (r *Registry) Shutdown() {
	r.stopIdleTimer()
	for _, s := range r.sessions {
		s.Finish(fmt.Errorf("%w: handler shutting down", context.Canceled))
	}
}
