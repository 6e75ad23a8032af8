package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"authhandler/pkg/logging"
)

// Provider resolves an identity to credentials.
type Provider interface {
	Credentials(ctx context.Context, identity string) (Credentials, error)
}

// Store reads and writes identity files in a directory.
type Store struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	// HTTPClient is used for token refreshes when set.
	HTTPClient *http.Client
}

// NewStore creates a store over dir. The directory is created on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, fileKey(id)+".json")
}

// Get loads the identity stored under id.
func (s *Store) Get(id string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(id)
}

// Put writes identity, replacing any previous version.
func (s *Store) Put(identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(identity)
}

// Credentials returns usable credentials for id, refreshing an expired access
// token when possible.
func (s *Store) Credentials(ctx context.Context, id string) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.readLocked(id)
	if err != nil {
		return Credentials{}, err
	}
	now := s.now()
	if identity.validAt(now) {
		return identity.credentials(), nil
	}
	if identity.RefreshToken == "" || identity.TokenURL == "" {
		return Credentials{}, fmt.Errorf("sso identity %s has no valid access token", id)
	}

	conf := &oauth2.Config{
		ClientID:     identity.ClientID,
		ClientSecret: identity.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: identity.TokenURL},
	}
	if s.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	}
	expired := identity.Token()
	expired.Expiry = time.Unix(1, 0)
	token, err := conf.TokenSource(ctx, expired).Token()
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "sso_token_refreshed", Outcome: "failure", Target: id, Err: err})
		return Credentials{}, fmt.Errorf("failed to refresh sso token: %w", err)
	}

	identity.setToken(token, now)
	if err := s.writeLocked(identity); err != nil {
		// The fresh token is still usable for this attempt.
		logging.Warn("SSO", "Failed to store refreshed token for identity %s: %v", id, err)
	}
	logging.Audit(logging.AuditEvent{Action: "sso_token_refreshed", Outcome: "success", Target: id})
	return identity.credentials(), nil
}

func (s *Store) readLocked(id string) (*Identity, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sso identity: %w", err)
	}
	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse sso identity %s: %w", id, err)
	}
	if identity.ID == "" {
		identity.ID = id
	}
	return &identity, nil
}

func (s *Store) writeLocked(identity *Identity) error {
	if identity.ID == "" {
		return errors.New("sso identity has no id")
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create sso directory: %w", err)
	}
	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sso identity: %w", err)
	}
	if err := os.WriteFile(s.path(identity.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write sso identity: %w", err)
	}
	return nil
}
