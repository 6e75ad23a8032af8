package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant state change.
type AuditEvent struct {
	// Action is a short machine-readable verb, e.g. "wallet_set" or "trust_rule_added".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// Account is the account identifier the action applies to, if any.
	Account string
	// Target names the entry, hostname or rule acted upon. Never a secret value.
	Target string
	// Err is set when Outcome is "failure".
	Err error
}

// Audit logs an audit event at INFO level with an [AUDIT] prefix.
func Audit(ev AuditEvent) {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("event", ev.Action),
		slog.String("outcome", ev.Outcome),
	}
	if ev.Account != "" {
		attrs = append(attrs, slog.String("account", ev.Account))
	}
	if ev.Target != "" {
		attrs = append(attrs, slog.String("target", ev.Target))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+ev.Action, attrs...)
}
