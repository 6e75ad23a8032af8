// Package wallet implements the credential store authentication sessions read
// cached secrets from and write remembered secrets to.
//
// Entries are namespaced by account identifier and entry name. Each account
// additionally has one password slot, accessed through the password
// convenience methods. Values are opaque strings; the wallet never interprets
// them.
//
// # Backends
//
//   - MemoryStore keeps entries in process memory only.
//   - FileStore persists entries to a single file sealed with
//     NaCl secretbox. The key comes from a 32-byte key file or is derived from
//     a passphrase with argon2id.
//
// # Opening
//
// Opening a FileStore reads and decrypts the file, which may be slow. Opener
// guarantees a single open in flight: sessions that ask for the wallet while
// it is being opened wait for that same attempt instead of starting another.
//
// # Security
//
// Entry values are never logged. Writes are reported through
// logging.Audit with the account and entry name only.
package wallet
