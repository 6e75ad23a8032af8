package config

import (
	"path/filepath"
	"time"

	"authhandler/pkg/logging"
)

const (
	// DefaultSessionTTL is how long "accept for this session" trusts a certificate.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultPromptCommand is the dialog program.
	DefaultPromptCommand = "zenity"

	// DefaultOAuth2Timeout bounds the wait for the user in the browser.
	DefaultOAuth2Timeout = 5 * time.Minute

	// DefaultIdleTimeout exits an idle daemon; the bus re-activates it on demand.
	DefaultIdleTimeout = 5 * time.Minute
)

// Messenger OAuth2 endpoints used by X-MESSENGER-OAUTH2.
const (
	DefaultOAuth2ClientID = "0000000048093D1A"
	DefaultOAuth2AuthURL  = "https://login.live.com/oauth20_authorize.srf"
	DefaultOAuth2TokenURL = "https://login.live.com/oauth20_token.srf"
)

// DefaultOAuth2Scopes are requested from the messenger OAuth2 endpoint.
var DefaultOAuth2Scopes = []string{"wl.messenger", "wl.offline_access"}

// GetDefaultConfig returns the defaults, with files placed under dir.
func GetDefaultConfig(dir string) Config {
	return Config{
		Logging: LoggingConfig{
			Level:  logging.LevelInfo.String(),
			Format: logging.FormatText,
		},
		Wallet: WalletConfig{
			Path:    filepath.Join(dir, "wallet.json"),
			KeyFile: filepath.Join(dir, "wallet.key"),
		},
		Trust: TrustConfig{
			RulesFile:  filepath.Join(dir, "trust-rules.json"),
			SessionTTL: DefaultSessionTTL,
			Watch:      true,
		},
		Prompt: PromptConfig{
			Command: DefaultPromptCommand,
		},
		SSO: SSOConfig{
			IdentitiesDir: filepath.Join(dir, "identities"),
		},
		OAuth2: OAuth2Config{
			ClientID: DefaultOAuth2ClientID,
			AuthURL:  DefaultOAuth2AuthURL,
			TokenURL: DefaultOAuth2TokenURL,
			Scopes:   append([]string(nil), DefaultOAuth2Scopes...),
			Timeout:  DefaultOAuth2Timeout,
		},
		Daemon: DaemonConfig{
			IdleTimeout: DefaultIdleTimeout,
			Handlers: HandlersConfig{
				SASL:       true,
				TLS:        true,
				Captcha:    true,
				Conference: true,
			},
		},
	}
}
