package oauthflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"authhandler/pkg/logging"
)

// Config describes one OAuth2 client.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	// RedirectURL, when set, is registered instead of the loopback server's URI.
	// The loopback server still receives the redirect, so it must point at it.
	RedirectURL string
	// CallbackPort is the loopback server port; 0 picks a free port.
	CallbackPort int
	// Timeout bounds the wait for the user; 0 means CallbackTimeout.
	Timeout time.Duration
}

// Flow runs authorizations and refreshes for one client.
type Flow struct {
	cfg Config

	// OpenBrowser shows the authorization page. Tests replace it.
	OpenBrowser func(url string) error
	// HTTPClient is used for token requests when set.
	HTTPClient *http.Client
}

// New creates a Flow.
func New(cfg Config) *Flow {
	return &Flow{cfg: cfg, OpenBrowser: OpenBrowser}
}

func (f *Flow) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.cfg.AuthURL,
			TokenURL: f.cfg.TokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      f.cfg.Scopes,
	}
}

func (f *Flow) context(ctx context.Context) context.Context {
	if f.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	return ctx
}

// Authorize sends the user through the provider's authorization page and
// returns the issued token. account labels the confirmation page.
func (f *Flow) Authorize(ctx context.Context, account string) (*oauth2.Token, error) {
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = CallbackTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	server := NewCallbackServer(f.cfg.CallbackPort, account)
	redirectURI, err := server.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer server.Stop()
	if f.cfg.RedirectURL != "" {
		redirectURI = f.cfg.RedirectURL
	}

	state, err := generateState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()
	conf := f.oauthConfig(redirectURI)
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	if err := f.OpenBrowser(authURL); err != nil {
		logging.Warn("OAuthFlow", "Could not open a browser, visit %s to sign in: %v", authURL, err)
	}

	result, err := server.WaitForCallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for authorization: %w", err)
	}
	return f.complete(ctx, conf, result, state, verifier)
}

// complete turns a redirect result into a token.
func (f *Flow) complete(ctx context.Context, conf *oauth2.Config, result *CallbackResult, state, verifier string) (*oauth2.Token, error) {
	if result.IsError() {
		if result.Error == "access_denied" {
			return nil, ErrCancelled
		}
		return nil, &AuthorizationError{Code: result.Error, Description: result.ErrorDescription}
	}
	if result.State != state {
		return nil, ErrStateMismatch
	}

	if result.AccessToken != "" {
		return &oauth2.Token{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    "Bearer",
		}, nil
	}

	token, err := conf.Exchange(f.context(ctx), result.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// Refresh obtains a new token from refreshToken without user interaction.
// The provider may rotate the refresh token; callers should store the one returned.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	conf := f.oauthConfig(f.cfg.RedirectURL)
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}

	token, err := conf.TokenSource(f.context(ctx), expired).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
