package config

import "time"

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Wallet  WalletConfig  `yaml:"wallet" envPrefix:"WALLET_"`
	Trust   TrustConfig   `yaml:"trust" envPrefix:"TRUST_"`
	Prompt  PromptConfig  `yaml:"prompt" envPrefix:"PROMPT_"`
	SSO     SSOConfig     `yaml:"sso" envPrefix:"SSO_"`
	OAuth2  OAuth2Config  `yaml:"oauth2" envPrefix:"OAUTH2_"`
	Daemon  DaemonConfig  `yaml:"daemon" envPrefix:"DAEMON_"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn or error
	Format string `yaml:"format" env:"FORMAT"` // text or json
}

// WalletConfig locates the encrypted credential wallet.
type WalletConfig struct {
	Path    string `yaml:"path" env:"PATH"`
	KeyFile string `yaml:"keyFile" env:"KEY_FILE"`
	// Passphrase takes precedence over KeyFile. Prefer the environment
	// variable to keeping it in the file.
	Passphrase string `yaml:"passphrase,omitempty" env:"PASSPHRASE"`
}

// TrustConfig configures certificate verification and user exceptions.
type TrustConfig struct {
	RulesFile string `yaml:"rulesFile" env:"RULES_FILE"`
	// CAFile adds PEM roots to the system pool.
	CAFile     string        `yaml:"caFile,omitempty" env:"CA_FILE"`
	SessionTTL time.Duration `yaml:"sessionTTL" env:"SESSION_TTL"`
	// Watch reloads the rules file when another process edits it.
	Watch bool `yaml:"watch" env:"WATCH"`
}

// PromptConfig selects the dialog program.
type PromptConfig struct {
	Command string `yaml:"command" env:"COMMAND"`
}

// SSOConfig locates the SSO identity files.
type SSOConfig struct {
	IdentitiesDir string `yaml:"identitiesDir" env:"IDENTITIES_DIR"`
}

// OAuth2Config is the client used for the browser OAuth2 mechanism.
type OAuth2Config struct {
	ClientID     string        `yaml:"clientID" env:"CLIENT_ID"`
	ClientSecret string        `yaml:"clientSecret,omitempty" env:"CLIENT_SECRET"`
	AuthURL      string        `yaml:"authURL" env:"AUTH_URL"`
	TokenURL     string        `yaml:"tokenURL" env:"TOKEN_URL"`
	RedirectURL  string        `yaml:"redirectURL,omitempty" env:"REDIRECT_URL"`
	Scopes       []string      `yaml:"scopes" env:"SCOPES" envSeparator:","`
	CallbackPort int           `yaml:"callbackPort" env:"CALLBACK_PORT"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DaemonConfig controls the process lifetime and which handlers register.
type DaemonConfig struct {
	// IdleTimeout exits the daemon after this long without sessions; 0 never exits.
	IdleTimeout time.Duration  `yaml:"idleTimeout" env:"IDLE_TIMEOUT"`
	Handlers    HandlersConfig `yaml:"handlers" envPrefix:"HANDLER_"`
}

// HandlersConfig enables the individual bus handlers.
type HandlersConfig struct {
	SASL       bool `yaml:"sasl" env:"SASL"`
	TLS        bool `yaml:"tls" env:"TLS"`
	Captcha    bool `yaml:"captcha" env:"CAPTCHA"`
	Conference bool `yaml:"conference" env:"CONFERENCE"`
}
