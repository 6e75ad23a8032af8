package auth

import (
	"context"
	"errors"
	"fmt"

	"authhandler/internal/channel"
	"authhandler/internal/prompt"
	"authhandler/internal/wallet"
	"authhandler/pkg/logging"
)

// passwordStrategy replays the wallet password on the channel's first
// NotStarted and otherwise asks the user.
type passwordStrategy struct {
	saslBase

	// cacheUsable is cleared once the first NotStarted has been seen, so a
	// stored password is offered at most once per channel.
	cacheUsable bool
	prompting   bool
	canSave     bool
	lastError   string
	// unseenError is a failure reported while a prompt was already open.
	unseenError string
}

func newPasswordStrategy(s *Session, ch channel.SASLChannel, mechanism string, props channel.SASLProperties) *passwordStrategy {
	initial := props.Status
	initial.CanTryAgain = props.CanTryAgain
	return &passwordStrategy{
		saslBase:    saslBase{s: s, ch: ch, mechanism: mechanism, initial: initial},
		cacheUsable: true,
	}
}

func (p *passwordStrategy) Kind() StrategyKind { return StrategyPassword }

func (p *passwordStrategy) Start() {
	p.subscribe(p.onStatus, nil)
}

func (p *passwordStrategy) onStatus(ev channel.StatusEvent) {
	if p.handleCommon(ev) {
		return
	}
	switch ev.Status {
	case channel.StatusNotStarted:
		p.onNotStarted()
	case channel.StatusSucceeded:
		p.onSucceeded()
	case channel.StatusServerFailed:
		p.onServerFailed(ev)
	}
}

func (p *passwordStrategy) onNotStarted() {
	if p.prompting {
		// A retry prompt is already open for the previous failure.
		p.s.debug("NotStarted while prompting, waiting for the user")
		return
	}
	if !p.cacheUsable {
		p.prompt()
		return
	}
	p.cacheUsable = false

	type cached struct {
		password string
		ok       bool
	}
	accountID := p.s.accountID()
	p.prompting = true
	walletTask(p.s, func(store wallet.Store) (cached, error) {
		if !store.HasPassword(accountID) || store.HasEntry(accountID, wallet.EntryLastLoginFailed) {
			return cached{}, nil
		}
		pw, err := store.Password(accountID)
		if err != nil {
			return cached{}, err
		}
		return cached{password: pw, ok: true}, nil
	}, func(c cached, err error) {
		p.prompting = false
		p.canSave = err == nil || !errors.Is(err, ErrStoreUnavailable)
		if err != nil {
			p.s.debug("No stored password: %v", err)
		}
		if c.ok {
			p.s.debug("Using stored password")
			p.startWithData([]byte(c.password))
			return
		}
		p.prompt()
	})
}

func (p *passwordStrategy) prompt() {
	p.prompting = true
	prompter := p.s.deps.Prompter
	message := p.lastError
	if p.unseenError != "" && p.unseenError != message {
		message = p.unseenError + "\n" + message
	}
	p.unseenError = ""
	req := prompt.PasswordRequest{
		AccountID:    p.s.accountID(),
		AccountName:  p.s.accountName(),
		ErrorMessage: message,
		CanSave:      p.canSave,
	}
	async(p.s, func(ctx context.Context) (prompt.PasswordResponse, error) {
		return prompter.AskPassword(ctx, req)
	}, p.onPromptResult)
}

func (p *passwordStrategy) onPromptResult(resp prompt.PasswordResponse, err error) {
	p.prompting = false
	if p.terminal {
		return
	}
	if err != nil {
		if IsCancelled(err) {
			p.abort(channel.AbortReasonUserAbort, "User cancelled auth")
			p.s.Finish(ErrCancelled)
			return
		}
		p.abort(channel.AbortReasonUserAbort, "Password prompt failed")
		p.s.Finish(fmt.Errorf("failed to prompt for password: %w", err))
		return
	}

	if resp.Save && p.canSave {
		accountID, password := p.s.accountID(), resp.Password
		walletWrite(p.s, "save password", func(store wallet.Store) error {
			return store.SetPassword(accountID, password)
		}, nil)
	}
	p.startWithData([]byte(resp.Password))
}

func (p *passwordStrategy) onSucceeded() {
	p.terminal = true
	accountID := p.s.accountID()
	walletWrite(p.s, "clear failed-login marker", func(store wallet.Store) error {
		if !store.HasEntry(accountID, wallet.EntryLastLoginFailed) {
			return nil
		}
		return store.RemoveEntry(accountID, wallet.EntryLastLoginFailed)
	}, func() {
		p.s.Finish(nil)
	})
}

func (p *passwordStrategy) onServerFailed(ev channel.StatusEvent) {
	authErr := newServerAuthError(ev)
	p.lastError = authErr.Message
	p.cacheUsable = false

	if ev.CanTryAgain {
		p.s.debug("Authentication failed, asking again: %s", authErr.Message)
		if p.prompting {
			logging.Info("AuthSession", "Session %s: server rejected credentials while the prompt is open: %s", p.s.id, authErr.Message)
			p.unseenError = authErr.Message
			return
		}
		p.prompt()
		return
	}

	p.terminal = true
	accountID := p.s.accountID()
	walletWrite(p.s, "mark failed login", func(store wallet.Store) error {
		return store.SetEntry(accountID, wallet.EntryLastLoginFailed, "true")
	}, func() {
		p.s.reconnect()
		p.s.Finish(authErr)
	})
}
