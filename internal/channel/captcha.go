package channel

import "context"

// Captcha is one challenge to show the user.
type Captcha struct {
	ID       uint32
	Type     string
	Label    string
	MimeType string
	Image    []byte
}

// CaptchaCancelReason is the reason passed to CaptchaChannel.Cancel.
type CaptchaCancelReason uint32

const (
	CaptchaCancelUserCancelled   CaptchaCancelReason = 0
	CaptchaCancelNotSupported    CaptchaCancelReason = 1
	CaptchaCancelServiceConfused CaptchaCancelReason = 2
)

// CaptchaVerdict is the channel's judgement of a submitted answer.
type CaptchaVerdict int

const (
	CaptchaAccepted CaptchaVerdict = iota
	// CaptchaTryAgain means the answer was wrong and a new captcha is available.
	CaptchaTryAgain
	CaptchaFailed
)

// CaptchaChannel is a server-authentication channel using captchas.
type CaptchaChannel interface {
	Channel

	RequestCaptcha(ctx context.Context) (Captcha, error)
	// Answer submits text for captcha id and waits for the verdict.
	Answer(ctx context.Context, id uint32, text string) (CaptchaVerdict, error)
	Cancel(ctx context.Context, reason CaptchaCancelReason, message string) error
}
