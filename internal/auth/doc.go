// Package auth services authentication channels.
//
// A Registry receives channels from the dispatcher adapter and creates one
// Session per channel. The session selects a Strategy for the channel
// (see SelectMechanism for SASL channels), runs it, and reports a single
// outcome: success, failure or user cancellation. Whatever the outcome, an
// owned channel is closed exactly once.
//
// # Threading
//
// Everything in this package runs on one loop.Loop goroutine. Strategies
// never block it: remote channel commands go through the session's
// loop.Queue, and prompts, wallet access, SSO lookups and OAuth2 traffic run
// through loop.Async with the result posted back as a continuation. Channel
// subscriptions may fire on any goroutine and are re-posted to the loop.
//
// # Strategies
//
//   - password: replays the wallet password once per channel, otherwise prompts
//   - sso: token exchange for accounts linked to an SSO identity
//   - oauth2-browser: browser authorization with stored token reuse
//   - certificate: TLS trust decision backed by trust rules
//   - captcha: shows captchas until one is solved or the user gives up
//   - room-password: supplies chat room passwords on observed channels
package auth
