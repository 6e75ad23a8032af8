package prompt

import (
	"context"
	"errors"

	"authhandler/internal/channel"
)

// ErrCancelled is returned when the user dismissed the dialog.
var ErrCancelled = errors.New("prompt cancelled by user")

// PasswordRequest describes a password dialog.
type PasswordRequest struct {
	AccountID   string
	AccountName string
	// Message replaces the default "enter the password for" text when set.
	Message string
	// ErrorMessage explains why the previous attempt failed, if it did.
	ErrorMessage string
	// CanSave offers the "remember password" option. It is false when the
	// wallet is unavailable.
	CanSave bool
}

// PasswordResponse is the user's answer to a password dialog.
type PasswordResponse struct {
	Password string
	Save     bool
}

// CertificateDecision is the user's answer to an untrusted certificate.
type CertificateDecision int

const (
	DecisionReject CertificateDecision = iota
	DecisionAcceptSession
	DecisionAcceptForever
)

// String returns the string representation of the decision.
func (d CertificateDecision) String() string {
	switch d {
	case DecisionAcceptSession:
		return "accept_session"
	case DecisionAcceptForever:
		return "accept_forever"
	default:
		return "reject"
	}
}

// CertificateRequest describes an untrusted certificate dialog.
type CertificateRequest struct {
	AccountName string
	Hostname    string
	Fingerprint string
	// Details is a human-readable summary of the leaf certificate.
	Details    string
	Rejections []channel.Rejection
}

// CaptchaRequest describes a captcha dialog.
type CaptchaRequest struct {
	AccountName string
	Label       string
	MimeType    string
	Image       []byte
	// ErrorMessage is set when the previous answer was wrong.
	ErrorMessage string
}

// CaptchaResponse is the user's answer. Reload asks for a new captcha
// instead of answering this one.
type CaptchaResponse struct {
	Answer string
	Reload bool
}

// Prompter asks the user for input.
type Prompter interface {
	AskPassword(ctx context.Context, req PasswordRequest) (PasswordResponse, error)
	AskCertificate(ctx context.Context, req CertificateRequest) (CertificateDecision, error)
	AskCaptcha(ctx context.Context, req CaptchaRequest) (CaptchaResponse, error)
}
