// Package trust decides whether a server certificate is acceptable for a
// hostname.
//
// Verifier checks a chain against the configured roots and maps failures to
// the framework's rejection reasons. Store holds the exceptions the user
// granted for chains that failed verification: each rule pairs the SHA-256
// fingerprint of the leaf certificate with a hostname and an expiry. Rules
// are persisted as JSON so that the `trust` CLI commands and the daemon share
// them; Watcher reloads the store when the file changes on disk.
//
// Rejections are never recorded.
package trust
