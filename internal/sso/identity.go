package sso

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrIdentityNotFound is returned when no identity is stored under an id.
var ErrIdentityNotFound = errors.New("sso identity not found")

// tokenExpiryBuffer treats tokens this close to expiry as expired, covering
// clock skew and the round trip to the chat server.
const tokenExpiryBuffer = 60 * time.Second

// Identity is one linked SSO identity.
type Identity struct {
	ID string `json:"id"`
	// Provider names the SSO provider, e.g. "facebook" or "google".
	Provider     string `json:"provider"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Username     string `json:"username"`
	TokenURL     string `json:"token_url,omitempty"`

	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials is what a token-exchange mechanism submits.
type Credentials struct {
	AccessToken string
	ClientID    string
	Username    string
}

// Token returns the identity's token in oauth2 form.
func (i *Identity) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  i.AccessToken,
		RefreshToken: i.RefreshToken,
		TokenType:    i.TokenType,
		Expiry:       i.Expiry,
	}
}

// setToken copies a refreshed token in, keeping the old refresh token when
// the provider did not rotate it.
func (i *Identity) setToken(t *oauth2.Token, now time.Time) {
	i.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		i.RefreshToken = t.RefreshToken
	}
	if t.TokenType != "" {
		i.TokenType = t.TokenType
	}
	i.Expiry = t.Expiry
	i.UpdatedAt = now
}

// validAt reports whether the access token can be used at now.
func (i *Identity) validAt(now time.Time) bool {
	if i.AccessToken == "" {
		return false
	}
	if i.Expiry.IsZero() {
		return true
	}
	return now.Add(tokenExpiryBuffer).Before(i.Expiry)
}

func (i *Identity) credentials() Credentials {
	return Credentials{AccessToken: i.AccessToken, ClientID: i.ClientID, Username: i.Username}
}

// fileKey maps an identity id to a filesystem-safe name.
func fileKey(id string) string {
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:16])
}
