package channel

import (
	"context"
	"fmt"
)

// Kind identifies which authentication method a channel carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindSASL
	KindTLS
	KindCaptcha
	KindRoomPassword
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSASL:
		return "sasl"
	case KindTLS:
		return "tls"
	case KindCaptcha:
		return "captcha"
	case KindRoomPassword:
		return "room-password"
	default:
		return "unknown"
	}
}

// Owned reports whether this component owns the channel and must close it
// once authentication is over. Room-password channels are text channels
// handled by the chat UI; they are only observed here.
func (k Kind) Owned() bool {
	return k != KindRoomPassword
}

// SASLStatus is the protocol-level state of a SASL channel. The numeric
// values are the framework's wire values.
type SASLStatus uint32

const (
	StatusNotStarted      SASLStatus = 0
	StatusInProgress      SASLStatus = 1
	StatusServerSucceeded SASLStatus = 2
	StatusClientAccepted  SASLStatus = 3
	StatusSucceeded       SASLStatus = 4
	StatusServerFailed    SASLStatus = 5
	StatusClientFailed    SASLStatus = 6
)

// String returns the string representation of the status.
func (s SASLStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusServerSucceeded:
		return "server_succeeded"
	case StatusClientAccepted:
		return "client_accepted"
	case StatusSucceeded:
		return "succeeded"
	case StatusServerFailed:
		return "server_failed"
	case StatusClientFailed:
		return "client_failed"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

// DetailServerMessage is the status-detail key carrying a human-readable
// message from the server.
const DetailServerMessage = "server-message"

// StatusEvent is one SASL status change.
type StatusEvent struct {
	Status  SASLStatus
	Reason  string
	Details map[string]string

	// CanTryAgain is the channel's CanTryAgain flag at the time of the event.
	CanTryAgain bool
}

// ServerMessage returns the server-provided message, if any.
func (e StatusEvent) ServerMessage() string {
	if e.Details == nil {
		return ""
	}
	return e.Details[DetailServerMessage]
}

// SASLProperties is the batched property snapshot of a SASL channel.
type SASLProperties struct {
	AvailableMechanisms []string
	Status              StatusEvent
	CanTryAgain         bool
	DefaultUsername     string
	MaySaveResponse     bool
}

// HasMechanism reports whether mech is advertised.
func (p SASLProperties) HasMechanism(mech string) bool {
	for _, m := range p.AvailableMechanisms {
		if m == mech {
			return true
		}
	}
	return false
}

// AbortReason is the reason passed to AbortSASL.
type AbortReason uint32

const (
	AbortReasonInvalidChallenge AbortReason = 0
	AbortReasonUserAbort        AbortReason = 1
)

// Subscription is a cancellable event registration. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Cancel implements Subscription.
func (f SubscriptionFunc) Cancel() {
	if f != nil {
		f()
	}
}

// Channel is the part every authentication channel shares.
type Channel interface {
	// ID uniquely identifies the channel for the lifetime of the process.
	ID() string
	Kind() Kind
	// Close asks the framework to close the channel (fire-and-forget).
	Close(ctx context.Context) error
}

// SASLChannel is a server-authentication channel using SASL.
type SASLChannel interface {
	Channel

	Properties(ctx context.Context) (SASLProperties, error)
	SubscribeStatus(handler func(StatusEvent)) Subscription
	SubscribeChallenge(handler func(challenge []byte)) Subscription

	StartMechanism(ctx context.Context, mechanism string) error
	StartMechanismWithData(ctx context.Context, mechanism string, data []byte) error
	Respond(ctx context.Context, response []byte) error
	AcceptSASL(ctx context.Context) error
	AbortSASL(ctx context.Context, reason AbortReason, message string) error
}

// Account is the framework account a channel authenticates.
type Account interface {
	// ID is the account's unique identifier, used as the wallet namespace.
	ID() string
	DisplayName() string
	// SSOIdentity returns the linked SSO credential identity, or "" if the
	// account is not managed by an SSO provider.
	SSOIdentity() string
	// Reconnect re-requests the account's current presence so the framework
	// creates a fresh connection (and a fresh channel) later.
	Reconnect(ctx context.Context) error
}
