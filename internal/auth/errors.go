package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"authhandler/internal/channel"
	"authhandler/internal/oauthflow"
	"authhandler/internal/prompt"
)

var (
	// ErrUnsupportedMechanism is wrapped by NegotiationError.
	ErrUnsupportedMechanism = errors.New("no supported authentication mechanism")

	// ErrCancelled ends a session on deliberate user action. It is not a failure.
	ErrCancelled = errors.New("authentication cancelled by user")

	// ErrStoreUnavailable is returned when the wallet could not be opened.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// ErrAlreadyHandled rejects a second Handle for a channel that has a live session.
	ErrAlreadyHandled = errors.New("channel is already being handled")
)

// Error names reported back to the framework.
const (
	ErrorNameNotImplemented       = "org.freedesktop.Telepathy.Error.NotImplemented"
	ErrorNameAuthenticationFailed = "org.freedesktop.Telepathy.Error.AuthenticationFailed"
	ErrorNameCancelled            = "org.freedesktop.Telepathy.Error.Cancelled"
	ErrorNameCertUntrusted        = "org.freedesktop.Telepathy.Error.Cert.Untrusted"
	ErrorNameNotAvailable         = "org.freedesktop.Telepathy.Error.NotAvailable"
)

const genericAuthError = "Authentication error"

// NegotiationError reports that none of the advertised mechanisms is usable.
type NegotiationError struct {
	Mechanisms []string
}

func (e *NegotiationError) Error() string {
	if len(e.Mechanisms) == 0 {
		return "no authentication mechanisms advertised"
	}
	return fmt.Sprintf("no supported authentication mechanism among [%s]", strings.Join(e.Mechanisms, ", "))
}

func (e *NegotiationError) Unwrap() error {
	return ErrUnsupportedMechanism
}

// ServerAuthError reports that the server rejected the credentials.
type ServerAuthError struct {
	// Reason is the framework error name, when the server gave one.
	Reason string
	// Message is the server's message, or a generic one.
	Message string
}

func (e *ServerAuthError) Error() string {
	if e.Message == "" {
		return genericAuthError
	}
	return e.Message
}

// newServerAuthError builds the error for a ServerFailed status.
func newServerAuthError(ev channel.StatusEvent) *ServerAuthError {
	msg := ev.ServerMessage()
	if msg == "" {
		msg = genericAuthError
	}
	return &ServerAuthError{Reason: ev.Reason, Message: msg}
}

// TrustRejectedError reports a certificate the user or the verifier refused.
type TrustRejectedError struct {
	Hostname   string
	Rejections []channel.Rejection
	// ByUser is set when the user refused the certificate when asked.
	ByUser bool
}

func (e *TrustRejectedError) Error() string {
	if len(e.Rejections) > 0 && e.Rejections[0].Error != "" {
		return fmt.Sprintf("certificate for %s rejected: %s", e.Hostname, e.Rejections[0].Error)
	}
	return fmt.Sprintf("certificate for %s rejected", e.Hostname)
}

// ChallengeParseError reports a server challenge this component cannot answer.
type ChallengeParseError struct {
	Mechanism string
	Err       error
}

func (e *ChallengeParseError) Error() string {
	return fmt.Sprintf("invalid %s challenge: %v", e.Mechanism, e.Err)
}

func (e *ChallengeParseError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is a user cancellation from any layer.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, prompt.ErrCancelled) ||
		errors.Is(err, oauthflow.ErrCancelled)
}

// ErrorName maps a session outcome to the framework's error name. It returns
// "" for success.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}

	var serverErr *ServerAuthError
	var trustErr *TrustRejectedError
	var parseErr *ChallengeParseError

	switch {
	case IsCancelled(err):
		return ErrorNameCancelled
	case errors.Is(err, ErrUnsupportedMechanism):
		return ErrorNameNotImplemented
	case errors.As(err, &serverErr):
		if serverErr.Reason != "" {
			return serverErr.Reason
		}
		return ErrorNameAuthenticationFailed
	case errors.As(err, &trustErr):
		return ErrorNameCertUntrusted
	case errors.As(err, &parseErr):
		return ErrorNameAuthenticationFailed
	default:
		return ErrorNameNotAvailable
	}
}

// shouldNotify reports whether a failure deserves a desktop notification.
// Cancellations and the user's own certificate rejections are silent, and an
// unsupported mechanism is only logged because the user cannot act on it.
// Sessions torn down at exit are not failures either.
func shouldNotify(err error) bool {
	if err == nil || IsCancelled(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var trustErr *TrustRejectedError
	if errors.As(err, &trustErr) && trustErr.ByUser {
		return false
	}
	return !errors.Is(err, ErrUnsupportedMechanism)
}

// userMessage is the text shown for a failure.
func userMessage(err error) string {
	var serverErr *ServerAuthError
	if errors.As(err, &serverErr) {
		return serverErr.Error()
	}
	return err.Error()
}
