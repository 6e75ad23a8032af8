package auth

import (
	"context"
	"errors"
	"fmt"

	"authhandler/internal/channel"
	"authhandler/internal/prompt"
	"authhandler/internal/wallet"
)

// roomStrategy supplies the password of a protected chat room. The channel
// belongs to the chat UI and is never closed here.
type roomStrategy struct {
	s  *Session
	ch channel.RoomPasswordChannel

	canSave bool
}

func newRoomStrategy(s *Session, ch channel.RoomPasswordChannel) *roomStrategy {
	return &roomStrategy{s: s, ch: ch}
}

func (r *roomStrategy) Kind() StrategyKind { return StrategyRoomPassword }

func (r *roomStrategy) Stop() {}

func (r *roomStrategy) Start() {
	call(r.s, "PasswordFlags", r.ch.PasswordFlags, func(flags channel.PasswordFlags, err error) {
		if err != nil {
			r.s.Finish(fmt.Errorf("failed to read room password flags: %w", err))
			return
		}
		if flags&channel.PasswordFlagProvide == 0 {
			r.s.debug("Room %s needs no password", r.ch.TargetID())
			r.s.Finish(nil)
			return
		}
		r.tryStored()
	})
}

func (r *roomStrategy) tryStored() {
	accountID, room := r.s.accountID(), r.ch.TargetID()
	walletTask(r.s, func(store wallet.Store) (string, error) {
		if !store.HasEntry(accountID, room) {
			return "", nil
		}
		return store.Entry(accountID, room)
	}, func(password string, err error) {
		r.canSave = err == nil || !errors.Is(err, ErrStoreUnavailable)
		if err != nil || password == "" {
			r.prompt("")
			return
		}
		r.provide(password, false)
	})
}

func (r *roomStrategy) prompt(errorMessage string) {
	prompter := r.s.deps.Prompter
	req := prompt.PasswordRequest{
		AccountID:    r.s.accountID(),
		AccountName:  r.s.accountName(),
		Message:      fmt.Sprintf("Please provide a password for the chat room %s", r.ch.TargetID()),
		ErrorMessage: errorMessage,
		CanSave:      r.canSave,
	}
	async(r.s, func(ctx context.Context) (prompt.PasswordResponse, error) {
		if prompter == nil {
			return prompt.PasswordResponse{}, errors.New("no prompter configured")
		}
		return prompter.AskPassword(ctx, req)
	}, func(resp prompt.PasswordResponse, err error) {
		if err != nil {
			if IsCancelled(err) {
				r.s.Finish(ErrCancelled)
				return
			}
			r.s.Finish(fmt.Errorf("failed to prompt for room password: %w", err))
			return
		}
		r.provide(resp.Password, resp.Save && r.canSave)
	})
}

func (r *roomStrategy) provide(password string, save bool) {
	call(r.s, "ProvidePassword", func(ctx context.Context) (bool, error) {
		return r.ch.ProvidePassword(ctx, password)
	}, func(ok bool, err error) {
		if err != nil {
			r.s.Finish(fmt.Errorf("failed to provide room password: %w", err))
			return
		}
		if !ok {
			r.prompt("The password was not accepted")
			return
		}
		if !save {
			r.s.Finish(nil)
			return
		}
		accountID, room := r.s.accountID(), r.ch.TargetID()
		walletWrite(r.s, "save room password", func(store wallet.Store) error {
			return store.SetEntry(accountID, room, password)
		}, func() {
			r.s.Finish(nil)
		})
	})
}
