// Package sso resolves linked single-sign-on identities to the credentials
// token-exchange mechanisms need.
//
// Identities are managed outside this daemon (by the desktop's online
// accounts service) and stored as one JSON file per identity. Each carries
// the OAuth2 client it was issued for, the account username and the current
// token. When the access token has expired and a refresh token and token
// endpoint are known, Credentials refreshes it and writes the new token back.
//
// SECURITY: token values are never logged.
package sso
