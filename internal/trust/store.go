package trust

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"authhandler/pkg/logging"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store holds trust rules, optionally backed by a JSON file.
type Store struct {
	mu    sync.RWMutex
	path  string
	clock Clock
	rules []Rule
}

// NewStore creates a store persisted at path. An empty path keeps rules in
// memory only. A nil clock uses the system clock. Call Load to read existing
// rules.
func NewStore(path string, clock Clock) *Store {
	if clock == nil {
		clock = realClock{}
	}
	return &Store{path: path, clock: clock}
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory rules with the file contents. A missing file
// yields an empty store.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.rules = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read trust rules: %w", err)
	}

	var rules []Rule
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rules); err != nil {
			return fmt.Errorf("failed to parse trust rules %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	logging.Debug("Trust", "Loaded %d trust rules from %s", len(rules), s.path)
	return nil
}

// IsTrusted reports whether an unexpired rule accepts the leaf certificate
// for hostname.
func (s *Store) IsTrusted(leafDER []byte, hostname string) bool {
	fp := Fingerprint(leafDER)
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if r.matches(fp, hostname) && !r.Expired(now) {
			return true
		}
	}
	return false
}

// Remember records an exception for the leaf certificate and hostname that
// lasts until expiry, replacing any existing rule for the same pair.
func (s *Store) Remember(leafDER []byte, hostname string, expiry time.Time) error {
	fp := Fingerprint(leafDER)
	now := s.clock.Now()

	s.mu.Lock()
	kept := s.rules[:0:0]
	for _, r := range s.rules {
		if r.matches(fp, hostname) || r.Expired(now) {
			continue
		}
		kept = append(kept, r)
	}
	kept = append(kept, Rule{Hostname: hostname, Fingerprint: fp, Expiry: expiry, Created: now})
	s.rules = kept
	err := s.saveLocked()
	s.mu.Unlock()

	audit("trust_rule_added", hostname+" "+fp, err)
	return err
}

// RememberForever records a permanent exception.
func (s *Store) RememberForever(leafDER []byte, hostname string) error {
	return s.Remember(leafDER, hostname, ForeverExpiry(s.clock.Now()))
}

// RememberFor records an exception lasting ttl from now.
func (s *Store) RememberFor(leafDER []byte, hostname string, ttl time.Duration) error {
	return s.Remember(leafDER, hostname, s.clock.Now().Add(ttl))
}

// Revoke removes the rules for hostname. A non-empty fingerprint restricts
// removal to that certificate. It returns how many rules were removed.
func (s *Store) Revoke(hostname, fingerprint string) (int, error) {
	s.mu.Lock()
	kept := s.rules[:0:0]
	removed := 0
	for _, r := range s.rules {
		if strings.EqualFold(r.Hostname, hostname) && (fingerprint == "" || r.Fingerprint == fingerprint) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	var err error
	if removed > 0 {
		s.rules = kept
		err = s.saveLocked()
	}
	s.mu.Unlock()

	if removed > 0 {
		audit("trust_rule_revoked", hostname, err)
	}
	return removed, err
}

// List returns the unexpired rules ordered by hostname then expiry.
func (s *Store) List() []Rule {
	now := s.clock.Now()
	s.mu.RLock()
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if !r.Expired(now) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Expiry.Before(out[j].Expiry)
	})
	return out
}

// saveLocked prunes expired rules and writes the file. s.mu must be held.
func (s *Store) saveLocked() error {
	now := s.clock.Now()
	kept := s.rules[:0]
	for _, r := range s.rules {
		if !r.Expired(now) {
			kept = append(kept, r)
		}
	}
	s.rules = kept

	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create trust directory: %w", err)
	}
	data, err := json.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trust rules: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write trust rules: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace trust rules: %w", err)
	}
	return nil
}

func audit(action, target string, err error) {
	ev := logging.AuditEvent{Action: action, Outcome: "success", Target: target}
	if err != nil {
		ev.Outcome = "failure"
		ev.Err = err
	}
	logging.Audit(ev)
}
