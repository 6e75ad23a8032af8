package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"authhandler/internal/channel"
	"authhandler/internal/loop"
	"authhandler/internal/notify"
	"authhandler/internal/prompt"
	"authhandler/internal/sso"
	"authhandler/internal/trust"
	"authhandler/internal/wallet"
)

// Strategy drives one channel's authentication. Start and Stop run on the
// loop. Stop is called exactly once, when the session finishes, and must
// cancel every subscription the strategy made.
type Strategy interface {
	Kind() StrategyKind
	Start()
	Stop()
}

// CertificateVerifier checks certificate chains.
type CertificateVerifier interface {
	Verify(chain channel.CertificateChain, hostname string, references []string) []channel.Rejection
}

// OAuth2Flow obtains tokens for the browser OAuth2 mechanism.
type OAuth2Flow interface {
	Authorize(ctx context.Context, account string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Deps are the collaborators sessions share.
type Deps struct {
	Loop     *loop.Loop
	Wallet   *wallet.Opener
	Prompter prompt.Prompter
	Notifier notify.Notifier

	Trust      *trust.Store
	Verifier   CertificateVerifier
	SessionTTL time.Duration

	SSO    sso.Provider
	OAuth2 OAuth2Flow
}

// Invocation is a dispatcher call waiting for the handler to take a channel.
// Resolve is called once: with nil when the handler is ready, or with the
// error that ended the session before it got that far.
type Invocation interface {
	Resolve(err error)
}

// saslBase holds what every SASL strategy shares: the channel, the chosen
// mechanism and the status subscription.
type saslBase struct {
	s         *Session
	ch        channel.SASLChannel
	mechanism string
	initial   channel.StatusEvent

	statusSub    channel.Subscription
	challengeSub channel.Subscription

	// terminal is set once a final status is being handled; later events
	// are ignored so that the outcome cannot change under it.
	terminal bool
}

// subscribe registers onStatus, delivers the initial status and optionally
// registers onChallenge.
func (b *saslBase) subscribe(onStatus func(channel.StatusEvent), onChallenge func([]byte)) {
	b.statusSub = b.ch.SubscribeStatus(func(ev channel.StatusEvent) {
		b.s.post(func() {
			if !b.terminal {
				onStatus(ev)
			}
		})
	})
	if onChallenge != nil {
		b.challengeSub = b.ch.SubscribeChallenge(func(challenge []byte) {
			b.s.post(func() {
				if !b.terminal {
					onChallenge(challenge)
				}
			})
		})
	}
	initial := b.initial
	b.s.post(func() { onStatus(initial) })
}

func (b *saslBase) Stop() {
	if b.statusSub != nil {
		b.statusSub.Cancel()
	}
	if b.challengeSub != nil {
		b.challengeSub.Cancel()
	}
}

func (b *saslBase) startWithData(data []byte) {
	mech := b.mechanism
	b.s.command("StartMechanismWithData", func(ctx context.Context) error {
		return b.ch.StartMechanismWithData(ctx, mech, data)
	}, b.failOnError)
}

func (b *saslBase) accept() {
	b.s.command("AcceptSASL", b.ch.AcceptSASL, b.failOnError)
}

// abort sends AbortSASL. The close issued by Finish is queued behind it.
func (b *saslBase) abort(reason channel.AbortReason, message string) {
	b.s.command("AbortSASL", func(ctx context.Context) error {
		return b.ch.AbortSASL(ctx, reason, message)
	}, nil)
}

// failOnError finishes the session when a channel command fails.
func (b *saslBase) failOnError(err error) {
	if err != nil {
		b.s.Finish(err)
	}
}

// handleCommon covers the statuses all SASL strategies treat alike. It
// reports whether ev was handled.
func (b *saslBase) handleCommon(ev channel.StatusEvent) bool {
	switch ev.Status {
	case channel.StatusInProgress, channel.StatusClientAccepted:
		b.s.debug("Status %s", ev.Status)
		return true
	case channel.StatusServerSucceeded:
		b.s.debug("Server accepted credentials, accepting SASL")
		b.accept()
		return true
	case channel.StatusClientFailed:
		b.s.Finish(newServerAuthError(ev))
		return true
	}
	return false
}
