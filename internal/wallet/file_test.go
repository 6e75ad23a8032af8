package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_KeyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig{
		Path:    filepath.Join(dir, "wallet", "wallet.json"),
		KeyFile: filepath.Join(dir, "wallet", "key"),
	}

	s, err := OpenFile(cfg)
	require.NoError(t, err)

	binary := string([]byte{0x00, 0xff, 0x10, '\n'})
	require.NoError(t, s.SetPassword("gabble/jabber/alice", "hunter2"))
	require.NoError(t, s.SetEntry("gabble/jabber/alice", EntryRefreshToken, binary))

	info, err := os.Stat(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	keyInfo, err := os.Stat(cfg.KeyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), keyInfo.Mode().Perm())

	reopened, err := OpenFile(cfg)
	require.NoError(t, err)

	pw, err := reopened.Password("gabble/jabber/alice")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	v, err := reopened.Entry("gabble/jabber/alice", EntryRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, binary, v)
}

func TestFileStore_ContentsAreSealed(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig{Path: filepath.Join(dir, "wallet.json"), KeyFile: filepath.Join(dir, "key")}

	s, err := OpenFile(cfg)
	require.NoError(t, err)
	require.NoError(t, s.SetPassword("haze/irc/bob-account", "very-secret-password"))

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "very-secret-password")
	assert.NotContains(t, string(data), "bob-account")

	var envelope sealedFile
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, fileFormatVersion, envelope.Version)
	assert.Equal(t, kdfKeyFile, envelope.KDF)
	assert.Len(t, envelope.Nonce, nonceSize)
}

func TestFileStore_Passphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.json")

	s, err := OpenFile(FileConfig{Path: path, Passphrase: "correct horse"})
	require.NoError(t, err)
	require.NoError(t, s.SetEntry("acc", EntryLastLoginFailed, ""))

	reopened, err := OpenFile(FileConfig{Path: path, Passphrase: "correct horse"})
	require.NoError(t, err)
	assert.True(t, reopened.HasEntry("acc", EntryLastLoginFailed))

	_, err = OpenFile(FileConfig{Path: path, Passphrase: "wrong"})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestFileStore_WrongKeyFileIsLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.json")

	s, err := OpenFile(FileConfig{Path: path, KeyFile: filepath.Join(dir, "key1")})
	require.NoError(t, err)
	require.NoError(t, s.SetPassword("acc", "x"))

	_, err = OpenFile(FileConfig{Path: path, KeyFile: filepath.Join(dir, "key2")})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestFileStore_KDFMismatchIsLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.json")

	s, err := OpenFile(FileConfig{Path: path, KeyFile: filepath.Join(dir, "key")})
	require.NoError(t, err)
	require.NoError(t, s.SetPassword("acc", "x"))

	_, err = OpenFile(FileConfig{Path: path, Passphrase: "pw"})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestFileStore_BadKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyPath, []byte("short"), 0600))

	_, err := OpenFile(FileConfig{Path: filepath.Join(dir, "wallet.json"), KeyFile: keyPath})
	assert.Error(t, err)
}

func TestFileStore_MissingKeySource(t *testing.T) {
	_, err := OpenFile(FileConfig{Path: filepath.Join(t.TempDir(), "wallet.json")})
	assert.Error(t, err)
}

func TestFileStore_RemoveLastEntryDropsAccount(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig{Path: filepath.Join(dir, "wallet.json"), KeyFile: filepath.Join(dir, "key")}

	s, err := OpenFile(cfg)
	require.NoError(t, err)
	require.NoError(t, s.SetEntry("acc", EntryLegacyToken, "old"))
	require.NoError(t, s.RemoveEntry("acc", EntryLegacyToken))

	reopened, err := OpenFile(cfg)
	require.NoError(t, err)
	assert.Empty(t, reopened.Accounts())
}
