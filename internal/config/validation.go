package config

import (
	"fmt"
	"net/url"
	"strings"

	"authhandler/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration and returns ValidationErrors listing
// every offending field.
func (c Config) Validate() error {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", "must be one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != logging.FormatText && c.Logging.Format != logging.FormatJSON {
		errs.Add("logging.format", "must be text or json", c.Logging.Format)
	}

	if c.Wallet.Path == "" {
		errs.Add("wallet.path", "is required")
	}
	if c.Wallet.KeyFile == "" && c.Wallet.Passphrase == "" {
		errs.Add("wallet.keyFile", "is required when no passphrase is set")
	}

	if c.Trust.RulesFile == "" {
		errs.Add("trust.rulesFile", "is required")
	}
	if c.Trust.SessionTTL <= 0 {
		errs.Add("trust.sessionTTL", "must be positive", c.Trust.SessionTTL)
	}

	if strings.TrimSpace(c.Prompt.Command) == "" {
		errs.Add("prompt.command", "is required")
	}

	if c.OAuth2.ClientID != "" {
		validateURL(&errs, "oauth2.authURL", c.OAuth2.AuthURL)
		validateURL(&errs, "oauth2.tokenURL", c.OAuth2.TokenURL)
	}
	if c.OAuth2.RedirectURL != "" {
		validateURL(&errs, "oauth2.redirectURL", c.OAuth2.RedirectURL)
	}
	if c.OAuth2.CallbackPort < 0 || c.OAuth2.CallbackPort > 65535 {
		errs.Add("oauth2.callbackPort", "must be between 0 and 65535", c.OAuth2.CallbackPort)
	}
	if c.OAuth2.Timeout < 0 {
		errs.Add("oauth2.timeout", "must not be negative", c.OAuth2.Timeout)
	}

	if c.Daemon.IdleTimeout < 0 {
		errs.Add("daemon.idleTimeout", "must not be negative", c.Daemon.IdleTimeout)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateURL(errs *ValidationErrors, field, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add(field, "must be an absolute URL", raw)
	}
}
