// Package telepathy connects the authentication core to the Telepathy
// channel dispatcher on the D-Bus session bus.
//
// It registers handler clients for SASL, TLS and captcha server
// authentication channels plus an observer for password-protected chat
// rooms, and wraps each dispatched channel and account in a proxy that
// implements the interfaces of package channel. Incoming invocations are
// posted to the event loop; the bus call returns once the registry has
// taken the channel.
package telepathy
