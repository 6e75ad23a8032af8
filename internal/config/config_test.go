package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig(dir), cfg)
	assert.Equal(t, filepath.Join(dir, "wallet.json"), cfg.Wallet.Path)
	assert.Equal(t, DefaultSessionTTL, cfg.Trust.SessionTTL)
	assert.True(t, cfg.Daemon.Handlers.SASL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
trust:
  sessionTTL: 10m
daemon:
  idleTimeout: 0s
  handlers:
    captcha: false
oauth2:
  scopes: [openid]
`), 0600))

	cfg, err := load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10*time.Minute, cfg.Trust.SessionTTL)
	assert.Equal(t, time.Duration(0), cfg.Daemon.IdleTimeout)
	assert.False(t, cfg.Daemon.Handlers.Captcha)
	assert.True(t, cfg.Daemon.Handlers.TLS)
	assert.Equal(t, []string{"openid"}, cfg.OAuth2.Scopes)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0600))

	cfg, err := load(path, []string{
		"AUTHHANDLER_LOG_LEVEL=error",
		"AUTHHANDLER_WALLET_PASSPHRASE=correct horse",
		"AUTHHANDLER_DAEMON_HANDLER_TLS=false",
		"AUTHHANDLER_OAUTH2_SCOPES=a,b",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "correct horse", cfg.Wallet.Passphrase)
	assert.False(t, cfg.Daemon.Handlers.TLS)
	assert.Equal(t, []string{"a", "b"}, cfg.OAuth2.Scopes)
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [unclosed"), 0600))

	_, err := load(path, nil)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "parse", cfgErr.ErrorType)
	assert.Contains(t, cfgErr.DetailedError(), "Suggestions")
}

func TestLoad_ValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: loud
trust:
  sessionTTL: -1m
oauth2:
  tokenURL: not-a-url
`), 0600))

	_, err := load(path, nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "validation", cfgErr.ErrorType)
	assert.Contains(t, cfgErr.Details, "logging.level")
	assert.Contains(t, cfgErr.Details, "trust.sessionTTL")
	assert.Contains(t, cfgErr.Details, "oauth2.tokenURL")
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, GetDefaultConfig("/tmp/authhandler").Validate())
}

func TestValidate_WalletNeedsKey(t *testing.T) {
	cfg := GetDefaultConfig("/tmp/authhandler")
	cfg.Wallet.KeyFile = ""
	err := cfg.Validate()

	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve, 1)
	assert.Equal(t, "wallet.keyFile", ve[0].Field)

	cfg.Wallet.Passphrase = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/x"), expandHome("~/.config/x"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "rel~/x", expandHome("rel~/x"))
}
