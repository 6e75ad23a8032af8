package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"authhandler/internal/channel"
	"authhandler/internal/wallet"
)

// oauth2BrowserStrategy submits an access token for X-MESSENGER-OAUTH2. The
// token comes from the wallet, a silent refresh, or the browser flow, in
// that order. Tokens are stored base64 encoded.
type oauth2BrowserStrategy struct {
	saslBase
	authorizing bool
}

func newOAuth2BrowserStrategy(s *Session, ch channel.SASLChannel, mechanism string, props channel.SASLProperties) *oauth2BrowserStrategy {
	return &oauth2BrowserStrategy{
		saslBase: saslBase{s: s, ch: ch, mechanism: mechanism, initial: props.Status},
	}
}

func (o *oauth2BrowserStrategy) Kind() StrategyKind { return StrategyOAuth2Browser }

func (o *oauth2BrowserStrategy) Start() {
	accountID := o.s.accountID()
	walletWrite(o.s, "remove legacy token", func(store wallet.Store) error {
		if !store.HasEntry(accountID, wallet.EntryLegacyToken) {
			return nil
		}
		return store.RemoveEntry(accountID, wallet.EntryLegacyToken)
	}, nil)
	o.subscribe(o.onStatus, nil)
}

func (o *oauth2BrowserStrategy) onStatus(ev channel.StatusEvent) {
	if o.handleCommon(ev) {
		return
	}
	switch ev.Status {
	case channel.StatusNotStarted:
		o.onNotStarted()
	case channel.StatusSucceeded:
		o.s.Finish(nil)
	case channel.StatusServerFailed:
		o.onServerFailed(ev)
	}
}

type storedTokens struct {
	access  string
	refresh string
}

func (o *oauth2BrowserStrategy) onNotStarted() {
	if o.authorizing {
		return
	}
	o.authorizing = true

	accountID := o.s.accountID()
	walletTask(o.s, func(store wallet.Store) (storedTokens, error) {
		var t storedTokens
		if store.HasEntry(accountID, wallet.EntryAccessToken) {
			v, err := store.Entry(accountID, wallet.EntryAccessToken)
			if err != nil {
				return t, err
			}
			if t.access, err = decodeToken(v); err != nil {
				return t, err
			}
		}
		if store.HasEntry(accountID, wallet.EntryRefreshToken) {
			v, err := store.Entry(accountID, wallet.EntryRefreshToken)
			if err != nil {
				return t, err
			}
			if t.refresh, err = decodeToken(v); err != nil {
				return t, err
			}
		}
		return t, nil
	}, func(t storedTokens, err error) {
		if err != nil {
			o.s.debug("No stored tokens: %v", err)
		}
		switch {
		case t.access != "":
			o.s.debug("Using stored access token")
			o.authorizing = false
			o.startWithData([]byte(t.access))
		case t.refresh != "":
			o.refresh(t.refresh)
		default:
			o.authorize()
		}
	})
}

func (o *oauth2BrowserStrategy) refresh(refreshToken string) {
	flow := o.s.deps.OAuth2
	if flow == nil {
		o.authorize()
		return
	}
	async(o.s, func(ctx context.Context) (*oauth2.Token, error) {
		return flow.Refresh(ctx, refreshToken)
	}, func(tok *oauth2.Token, err error) {
		if err != nil {
			o.s.debug("Token refresh failed, falling back to browser: %v", err)
			o.authorize()
			return
		}
		o.storeAndStart(tok)
	})
}

func (o *oauth2BrowserStrategy) authorize() {
	flow := o.s.deps.OAuth2
	if flow == nil {
		o.s.Finish(errors.New("no oauth2 client configured"))
		return
	}
	accountID := o.s.accountID()
	async(o.s, func(ctx context.Context) (*oauth2.Token, error) {
		return flow.Authorize(ctx, accountID)
	}, func(tok *oauth2.Token, err error) {
		if err != nil {
			if IsCancelled(err) {
				o.abort(channel.AbortReasonUserAbort, "User cancelled auth")
				o.s.Finish(ErrCancelled)
				return
			}
			o.abort(channel.AbortReasonUserAbort, "Authorization failed")
			o.s.Finish(fmt.Errorf("oauth2 authorization failed: %w", err))
			return
		}
		o.storeAndStart(tok)
	})
}

// storeAndStart persists both tokens and only then submits the access token.
func (o *oauth2BrowserStrategy) storeAndStart(tok *oauth2.Token) {
	accountID := o.s.accountID()
	access, refresh := tok.AccessToken, tok.RefreshToken
	walletWrite(o.s, "store oauth2 tokens", func(store wallet.Store) error {
		if err := store.SetEntry(accountID, wallet.EntryAccessToken, encodeToken(access)); err != nil {
			return err
		}
		if refresh == "" {
			return nil
		}
		return store.SetEntry(accountID, wallet.EntryRefreshToken, encodeToken(refresh))
	}, func() {
		o.authorizing = false
		o.startWithData([]byte(access))
	})
}

func (o *oauth2BrowserStrategy) onServerFailed(ev channel.StatusEvent) {
	o.terminal = true
	authErr := newServerAuthError(ev)
	accountID := o.s.accountID()
	walletTask(o.s, func(store wallet.Store) (bool, error) {
		if !store.HasEntry(accountID, wallet.EntryAccessToken) {
			return false, nil
		}
		return true, store.RemoveEntry(accountID, wallet.EntryAccessToken)
	}, func(removed bool, err error) {
		if err != nil {
			o.s.debug("Failed to drop stored access token: %v", err)
		}
		if removed {
			o.s.reconnect()
		}
		o.s.Finish(authErr)
	})
}

func encodeToken(token string) string {
	return base64.StdEncoding.EncodeToString([]byte(token))
}

func decodeToken(value string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("stored token is not base64: %w", err)
	}
	return string(b), nil
}
