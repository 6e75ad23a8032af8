package wallet

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"authhandler/pkg/logging"
)

const (
	fileFormatVersion = 1

	kdfArgon2id = "argon2id"
	kdfKeyFile  = "keyfile"

	keySize   = 32
	nonceSize = 24
	saltSize  = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// FileConfig configures a FileStore.
type FileConfig struct {
	// Path is the wallet file. Its directory is created with 0700 permissions.
	Path string
	// KeyFile holds a raw 32-byte key. It is created on first use when missing.
	// Ignored when Passphrase is set.
	KeyFile string
	// Passphrase derives the key with argon2id when non-empty.
	Passphrase string
}

// sealedFile is the on-disk envelope.
type sealedFile struct {
	Version int    `json:"version"`
	KDF     string `json:"kdf"`
	Salt    []byte `json:"salt,omitempty"`
	Nonce   []byte `json:"nonce"`
	Box     []byte `json:"box"`
}

// plainContents is the JSON sealed inside the box. Values are base64 encoded
// so arbitrary bytes survive the round trip.
type plainContents struct {
	Accounts map[string]*accountData `json:"accounts"`
}

// FileStore is a Store persisted to an encrypted file. Every write rewrites
// the file atomically.
//
// SECURITY: the file is created with 0600 permissions and values never appear
// in logs.
type FileStore struct {
	*MemoryStore
	path string
	kdf  string
	salt []byte
	key  [keySize]byte
}

// OpenFile opens the wallet at cfg.Path, creating an empty one when the file
// does not exist. It returns ErrLocked when the file cannot be decrypted.
func OpenFile(cfg FileConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("wallet path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create wallet directory: %w", err)
	}

	s := &FileStore{MemoryStore: NewMemoryStore(), path: cfg.Path}

	sealed, err := readSealed(cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		sealed = nil
	case err != nil:
		return nil, err
	}

	if cfg.Passphrase != "" {
		s.kdf = kdfArgon2id
		if sealed != nil && sealed.KDF == kdfArgon2id && len(sealed.Salt) == saltSize {
			s.salt = sealed.Salt
		} else {
			s.salt = make([]byte, saltSize)
			if _, err := io.ReadFull(rand.Reader, s.salt); err != nil {
				return nil, fmt.Errorf("failed to generate salt: %w", err)
			}
		}
		copy(s.key[:], argon2.IDKey([]byte(cfg.Passphrase), s.salt, argonTime, argonMemory, argonThreads, keySize))
	} else {
		if cfg.KeyFile == "" {
			return nil, errors.New("wallet needs a key file or a passphrase")
		}
		s.kdf = kdfKeyFile
		key, err := loadOrCreateKey(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		s.key = key
	}

	if sealed != nil {
		if sealed.KDF != s.kdf {
			return nil, fmt.Errorf("%w: wallet was sealed with %s", ErrLocked, sealed.KDF)
		}
		contents, err := s.unseal(sealed)
		if err != nil {
			return nil, err
		}
		for id, a := range contents.Accounts {
			if a != nil && !a.empty() {
				s.accounts[id] = a
			}
		}
	}

	logging.Debug("Wallet", "Opened wallet %s (%d accounts)", cfg.Path, len(s.accounts))
	return s, nil
}

func (s *FileStore) SetEntry(account, key, value string) error {
	if err := s.MemoryStore.SetEntry(account, key, value); err != nil {
		return err
	}
	return s.persist("wallet_entry_set", account, key)
}

func (s *FileStore) RemoveEntry(account, key string) error {
	if err := s.MemoryStore.RemoveEntry(account, key); err != nil {
		return err
	}
	return s.persist("wallet_entry_removed", account, key)
}

func (s *FileStore) SetPassword(account, password string) error {
	if err := s.MemoryStore.SetPassword(account, password); err != nil {
		return err
	}
	return s.persist("wallet_password_set", account, "")
}

func (s *FileStore) RemovePassword(account string) error {
	if err := s.MemoryStore.RemovePassword(account); err != nil {
		return err
	}
	return s.persist("wallet_password_removed", account, "")
}

// persist seals the current contents and atomically replaces the file.
func (s *FileStore) persist(action, account, target string) error {
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()

	err := s.write(snapshot)
	ev := logging.AuditEvent{Action: action, Outcome: "success", Account: account, Target: target}
	if err != nil {
		ev.Outcome = "failure"
		ev.Err = err
	}
	logging.Audit(ev)
	if err != nil {
		return fmt.Errorf("failed to persist wallet: %w", err)
	}
	return nil
}

func (s *FileStore) write(accounts map[string]*accountData) error {
	encoded := make(map[string]*accountData, len(accounts))
	for id, a := range accounts {
		e := &accountData{}
		if a.Password != nil {
			p := base64.StdEncoding.EncodeToString([]byte(*a.Password))
			e.Password = &p
		}
		if len(a.Entries) > 0 {
			e.Entries = make(map[string]string, len(a.Entries))
			for k, v := range a.Entries {
				e.Entries[k] = base64.StdEncoding.EncodeToString([]byte(v))
			}
		}
		encoded[id] = e
	}

	plain, err := json.Marshal(plainContents{Accounts: encoded})
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := sealedFile{
		Version: fileFormatVersion,
		KDF:     s.kdf,
		Salt:    s.salt,
		Nonce:   nonce[:],
		Box:     secretbox.Seal(nil, plain, &nonce, &s.key),
	}
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet envelope: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileStore) unseal(sealed *sealedFile) (*plainContents, error) {
	if sealed.Version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported wallet version %d", sealed.Version)
	}
	if len(sealed.Nonce) != nonceSize {
		return nil, fmt.Errorf("%w: malformed nonce", ErrLocked)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed.Nonce)

	plain, ok := secretbox.Open(nil, sealed.Box, &nonce, &s.key)
	if !ok {
		return nil, ErrLocked
	}

	var contents plainContents
	if err := json.Unmarshal(plain, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse wallet contents: %w", err)
	}
	for _, a := range contents.Accounts {
		if a == nil {
			continue
		}
		if a.Password != nil {
			raw, err := base64.StdEncoding.DecodeString(*a.Password)
			if err != nil {
				return nil, fmt.Errorf("failed to decode wallet password: %w", err)
			}
			p := string(raw)
			a.Password = &p
		}
		for k, v := range a.Entries {
			raw, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("failed to decode wallet entry %q: %w", k, err)
			}
			a.Entries[k] = string(raw)
		}
	}
	return &contents, nil
}

func readSealed(path string) (*sealedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sealed sealedFile
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("failed to parse wallet file: %w", err)
	}
	return &sealed, nil
}

func loadOrCreateKey(path string) ([keySize]byte, error) {
	var key [keySize]byte
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != keySize {
			return key, fmt.Errorf("wallet key file %s must hold %d bytes, has %d", path, keySize, len(data))
		}
		copy(key[:], data)
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return key, fmt.Errorf("failed to read wallet key file: %w", err)
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return key, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0600); err != nil {
		return key, fmt.Errorf("failed to write wallet key file: %w", err)
	}
	logging.Audit(logging.AuditEvent{Action: "wallet_key_created", Outcome: "success", Target: path})
	return key, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wallet-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
