package app

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"authhandler/internal/auth"
	"authhandler/internal/loop"
	"authhandler/internal/notify"
	"authhandler/internal/oauthflow"
	"authhandler/internal/prompt"
	"authhandler/internal/sso"
	"authhandler/internal/trust"
	"authhandler/internal/wallet"
	"authhandler/pkg/logging"
)

// Services holds the components shared by every authentication session.
//
// Service Dependencies:
// The services are initialized in a specific order to handle dependencies:
//  1. Event loop (everything else posts to it)
//  2. Wallet opener, trust store and verifier
//  3. User-facing collaborators: prompter and notifier
//  4. Token sources: SSO identities and the browser OAuth2 flow
//  5. Session registry
type Services struct {
	Loop     *loop.Loop
	Wallet   *wallet.Opener
	Trust    *trust.Store
	Watcher  *trust.Watcher
	Registry *auth.Registry

	// Idle is closed once the registry has been idle for the configured timeout.
	Idle <-chan struct{}
}

// InitializeServices builds the services from cfg.Handler. conn may be nil,
// in which case notifications are only logged.
func InitializeServices(cfg *Config, conn *dbus.Conn) (*Services, error) {
	c := cfg.Handler
	l := loop.New()

	store := trust.NewStore(c.Trust.RulesFile, nil)
	if err := store.Load(); err != nil {
		// A corrupt rules file only loses exceptions; the user is asked again.
		logging.Warn("Services", "Ignoring trust rules: %v", err)
	}
	verifier, err := trust.NewVerifier(c.Trust.CAFile, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA file: %w", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if conn != nil {
		notifier = notify.NewDBusNotifier(conn)
	}

	deps := &auth.Deps{
		Loop: l,
		Wallet: wallet.FileOpener(wallet.FileConfig{
			Path:       c.Wallet.Path,
			KeyFile:    c.Wallet.KeyFile,
			Passphrase: c.Wallet.Passphrase,
		}),
		Prompter:   prompt.NewExecPrompter(c.Prompt.Command, prompt.ExecRunner),
		Notifier:   notifier,
		Trust:      store,
		Verifier:   verifier,
		SessionTTL: c.Trust.SessionTTL,
		SSO:        sso.NewStore(c.SSO.IdentitiesDir),
		OAuth2: oauthflow.New(oauthflow.Config{
			ClientID:     c.OAuth2.ClientID,
			ClientSecret: c.OAuth2.ClientSecret,
			AuthURL:      c.OAuth2.AuthURL,
			TokenURL:     c.OAuth2.TokenURL,
			Scopes:       c.OAuth2.Scopes,
			RedirectURL:  c.OAuth2.RedirectURL,
			CallbackPort: c.OAuth2.CallbackPort,
			Timeout:      c.OAuth2.Timeout,
		}),
	}

	idle := make(chan struct{})
	var once sync.Once
	registry := auth.NewRegistry(deps, c.Daemon.IdleTimeout, func() {
		logging.Info("Services", "No authentication activity for %s", c.Daemon.IdleTimeout)
		once.Do(func() { close(idle) })
	})

	services := &Services{
		Loop:     l,
		Wallet:   deps.Wallet,
		Trust:    store,
		Registry: registry,
		Idle:     idle,
	}
	if c.Trust.Watch {
		services.Watcher = trust.NewWatcher(store)
	}
	return services, nil
}

// Close releases what the services hold open.
func (s *Services) Close() {
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	if err := s.Wallet.Close(); err != nil {
		logging.Warn("Services", "Failed to close wallet: %v", err)
	}
}
