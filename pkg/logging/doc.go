// Package logging provides subsystem-tagged structured logging for authhandler.
//
// The package is a thin layer over Go's standard slog package. Every entry
// carries a subsystem identifier so the output of concurrent authentication
// sessions can be filtered per component.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Registry", "Handling channel %s", channelID)
//	logging.Debug("Password", "Replaying cached secret for %s", accountID)
//	logging.Warn("Selector", "No supported mechanism in %v", mechanisms)
//	logging.Error("Wallet", err, "Failed to persist entry")
//
// # Subsystems
//
//   - **Daemon**: process startup, handler registration, idle exit
//   - **Config**: configuration loading and validation
//   - **Registry**: channel dispatch and session bookkeeping
//   - **Session**: per-channel lifecycle
//   - **Password**, **SSO**, **OAuth2**, **Certificate**, **Captcha**, **RoomPassword**:
//     the individual authentication strategies
//   - **Wallet**, **Trust**: credential and trust-rule persistence
//   - **Telepathy**: the session bus adapter
//
// # Audit Logging
//
// Writes to the credential wallet and the trust-rule store are reported with
// Audit. Secret values are never part of an audit event.
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "wallet_set",
//	    Outcome: "success",
//	    Account: accountID,
//	    Target:  "lastLoginFailed",
//	})
//
// # Thread Safety
//
// All functions are safe for concurrent use. Init swaps the logger under a
// lock and also installs it as the slog default.
package logging
