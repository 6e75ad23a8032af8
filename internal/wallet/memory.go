package wallet

import (
	"sort"
	"sync"
)

// accountData is everything stored for one account.
type accountData struct {
	Password *string          `json:"password,omitempty"`
	Entries  map[string]string `json:"entries,omitempty"`
}

func (a *accountData) empty() bool {
	return a.Password == nil && len(a.Entries) == 0
}

// MemoryStore is an in-memory Store. FileStore embeds it as its cache.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountData
	closed   bool
}

// NewMemoryStore creates an empty open store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*accountData)}
}

func (s *MemoryStore) HasEntry(account, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[account]
	if !ok || s.closed {
		return false
	}
	_, ok = a.Entries[key]
	return ok
}

func (s *MemoryStore) Entry(account, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrClosed
	}
	a, ok := s.accounts[account]
	if !ok {
		return "", ErrNotFound
	}
	v, ok := a.Entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) SetEntry(account, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	a := s.accountLocked(account)
	if a.Entries == nil {
		a.Entries = make(map[string]string)
	}
	a.Entries[key] = value
	return nil
}

func (s *MemoryStore) RemoveEntry(account, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	a, ok := s.accounts[account]
	if !ok {
		return nil
	}
	delete(a.Entries, key)
	if a.empty() {
		delete(s.accounts, account)
	}
	return nil
}

func (s *MemoryStore) HasPassword(account string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[account]
	return ok && !s.closed && a.Password != nil
}

func (s *MemoryStore) Password(account string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrClosed
	}
	a, ok := s.accounts[account]
	if !ok || a.Password == nil {
		return "", ErrNotFound
	}
	return *a.Password, nil
}

func (s *MemoryStore) SetPassword(account, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p := password
	s.accountLocked(account).Password = &p
	return nil
}

func (s *MemoryStore) RemovePassword(account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	a, ok := s.accounts[account]
	if !ok {
		return nil
	}
	a.Password = nil
	if a.empty() {
		delete(s.accounts, account)
	}
	return nil
}

func (s *MemoryStore) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *MemoryStore) Entries(account string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[account]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(a.Entries))
	for k := range a.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStore) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// accountLocked returns the data for account, creating it. s.mu must be held.
func (s *MemoryStore) accountLocked(account string) *accountData {
	a, ok := s.accounts[account]
	if !ok {
		a = &accountData{}
		s.accounts[account] = a
	}
	return a
}

// snapshot copies all data. s.mu must be held.
func (s *MemoryStore) snapshotLocked() map[string]*accountData {
	out := make(map[string]*accountData, len(s.accounts))
	for id, a := range s.accounts {
		c := &accountData{}
		if a.Password != nil {
			p := *a.Password
			c.Password = &p
		}
		if len(a.Entries) > 0 {
			c.Entries = make(map[string]string, len(a.Entries))
			for k, v := range a.Entries {
				c.Entries[k] = v
			}
		}
		out[id] = c
	}
	return out
}
