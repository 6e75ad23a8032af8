package trust

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhandler/internal/testing/mock"
)

func TestStore_RememberForever(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := mock.NewMockClock(now)
	path := filepath.Join(t.TempDir(), "trust.json")
	s := NewStore(path, clock)

	leaf := []byte("leaf-der")
	assert.False(t, s.IsTrusted(leaf, "chat.example.org"))

	require.NoError(t, s.RememberForever(leaf, "chat.example.org"))
	assert.True(t, s.IsTrusted(leaf, "chat.example.org"))
	assert.True(t, s.IsTrusted(leaf, "CHAT.example.org"))
	assert.False(t, s.IsTrusted(leaf, "other.example.org"))
	assert.False(t, s.IsTrusted([]byte("other-der"), "chat.example.org"))

	rules := s.List()
	require.Len(t, rules, 1)
	assert.Equal(t, now.AddDate(1000, 0, 0), rules[0].Expiry)
	assert.Equal(t, Fingerprint(leaf), rules[0].Fingerprint)

	clock.Advance(100 * 365 * 24 * time.Hour)
	assert.True(t, s.IsTrusted(leaf, "chat.example.org"))
}

func TestStore_RememberForSessionExpires(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	s := NewStore("", clock)
	leaf := []byte("leaf-der")

	require.NoError(t, s.RememberFor(leaf, "chat.example.org", DefaultSessionTTL))
	assert.True(t, s.IsTrusted(leaf, "chat.example.org"))

	rules := s.List()
	require.Len(t, rules, 1)
	assert.Less(t, rules[0].Expiry.Sub(clock.Now()), time.Hour)

	clock.Advance(DefaultSessionTTL)
	assert.False(t, s.IsTrusted(leaf, "chat.example.org"))
	assert.Empty(t, s.List())
}

func TestStore_RememberReplacesSamePair(t *testing.T) {
	clock := mock.NewMockClock(time.Time{})
	s := NewStore("", clock)
	leaf := []byte("leaf-der")

	require.NoError(t, s.RememberFor(leaf, "chat.example.org", time.Minute))
	require.NoError(t, s.RememberForever(leaf, "chat.example.org"))
	assert.Len(t, s.List(), 1)
}

func TestStore_PersistAndLoad(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "sub", "trust.json")

	s := NewStore(path, clock)
	require.NoError(t, s.RememberForever([]byte("a"), "a.example.org"))
	require.NoError(t, s.RememberFor([]byte("b"), "b.example.org", time.Minute))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []Rule
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk, 2)

	loaded := NewStore(path, clock)
	require.NoError(t, loaded.Load())
	assert.True(t, loaded.IsTrusted([]byte("a"), "a.example.org"))
	assert.True(t, loaded.IsTrusted([]byte("b"), "b.example.org"))
}

func TestStore_ExpiredRulesPrunedOnWrite(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "trust.json")
	s := NewStore(path, clock)

	require.NoError(t, s.RememberFor([]byte("old"), "old.example.org", time.Minute))
	clock.Advance(time.Hour)
	require.NoError(t, s.RememberForever([]byte("new"), "new.example.org"))

	loaded := NewStore(path, clock)
	require.NoError(t, loaded.Load())
	rules := loaded.List()
	require.Len(t, rules, 1)
	assert.Equal(t, "new.example.org", rules[0].Hostname)
}

func TestStore_Revoke(t *testing.T) {
	clock := mock.NewMockClock(time.Time{})
	s := NewStore(filepath.Join(t.TempDir(), "trust.json"), clock)

	require.NoError(t, s.RememberForever([]byte("a1"), "a.example.org"))
	require.NoError(t, s.RememberForever([]byte("a2"), "a.example.org"))
	require.NoError(t, s.RememberForever([]byte("b"), "b.example.org"))

	n, err := s.Revoke("a.example.org", Fingerprint([]byte("a1")))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, s.IsTrusted([]byte("a2"), "a.example.org"))

	n, err = s.Revoke("a.example.org", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Revoke("missing.example.org", "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Len(t, s.List(), 1)
}

func TestStore_LoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	s := NewStore(filepath.Join(dir, "missing.json"), nil)
	require.NoError(t, s.Load())
	assert.Empty(t, s.List())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0600))
	assert.Error(t, NewStore(bad, nil).Load())
}
