// Package channel defines how the authentication core sees the framework's
// channel and account objects.
//
// A channel is one authentication request exposed by the messaging framework:
// a SASL exchange, a TLS certificate decision, a captcha, or a chat-room
// password. The types here describe only what the core needs; the session
// bus adapter in package telepathy implements them, and the fakes in
// internal/testing/mock implement them for tests.
//
// Implementations may block in any method taking a context. The core never
// calls them from its event loop directly. Event handlers passed to the
// Subscribe methods must be invoked in the order the remote peer emitted the
// events.
package channel
