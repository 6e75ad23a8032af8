package wallet

import "errors"

// Well-known entry names.
const (
	// EntryLastLoginFailed marks that the cached password was rejected and must
	// not be replayed automatically next time.
	EntryLastLoginFailed = "lastLoginFailed"
	// EntryAccessToken and EntryRefreshToken hold OAuth2 tokens, base64 encoded.
	EntryAccessToken  = "access_token"
	EntryRefreshToken = "refresh_token"
	// EntryLegacyToken is the single-token entry older releases wrote.
	EntryLegacyToken = "token"
)

var (
	// ErrNotFound is returned when an entry or password does not exist.
	ErrNotFound = errors.New("wallet entry not found")
	// ErrLocked is returned when the wallet file cannot be decrypted with the configured key.
	ErrLocked = errors.New("wallet is locked")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("wallet is closed")
)

// Store is the credential store contract. Implementations must be safe for
// concurrent use by independent sessions.
type Store interface {
	HasEntry(account, key string) bool
	Entry(account, key string) (string, error)
	SetEntry(account, key, value string) error
	// RemoveEntry removes key. Removing an absent entry is not an error.
	RemoveEntry(account, key string) error

	HasPassword(account string) bool
	Password(account string) (string, error)
	SetPassword(account, password string) error
	RemovePassword(account string) error

	// Accounts lists the account identifiers with at least one stored value.
	Accounts() []string
	// Entries lists the entry names stored for account, without the password slot.
	Entries(account string) []string

	IsOpen() bool
	Close() error
}
