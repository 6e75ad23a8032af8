// Package mock provides in-memory stand-ins for the collaborators of the
// authentication core: channels, accounts, prompts, SSO credentials, the
// OAuth2 flow and a controllable clock.
//
// Channel fakes record every command they receive, in order, and deliver
// emitted events to subscribers synchronously. All fakes are safe for use
// from the command goroutines the core runs them on.
package mock
