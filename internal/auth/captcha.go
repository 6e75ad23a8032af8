package auth

import (
	"context"
	"errors"
	"fmt"

	"authhandler/internal/channel"
	"authhandler/internal/prompt"
)

const wrongCaptchaMessage = "The answer was not accepted, please try again"

// captchaStrategy shows the channel's captchas until one is accepted, the
// server gives up or the user cancels.
type captchaStrategy struct {
	s  *Session
	ch channel.CaptchaChannel
}

func newCaptchaStrategy(s *Session, ch channel.CaptchaChannel) *captchaStrategy {
	return &captchaStrategy{s: s, ch: ch}
}

func (c *captchaStrategy) Kind() StrategyKind { return StrategyCaptcha }

func (c *captchaStrategy) Stop() {}

func (c *captchaStrategy) Start() {
	c.request("")
}

// request fetches a captcha and asks the user. errorMessage explains why a
// previous answer was refused.
func (c *captchaStrategy) request(errorMessage string) {
	call(c.s, "RequestCaptcha", c.ch.RequestCaptcha, func(captcha channel.Captcha, err error) {
		if err != nil {
			c.s.Finish(fmt.Errorf("failed to fetch captcha: %w", err))
			return
		}
		c.ask(captcha, errorMessage)
	})
}

func (c *captchaStrategy) ask(captcha channel.Captcha, errorMessage string) {
	prompter := c.s.deps.Prompter
	req := prompt.CaptchaRequest{
		AccountName:  c.s.accountName(),
		Label:        captcha.Label,
		MimeType:     captcha.MimeType,
		Image:        captcha.Image,
		ErrorMessage: errorMessage,
	}
	async(c.s, func(ctx context.Context) (prompt.CaptchaResponse, error) {
		if prompter == nil {
			return prompt.CaptchaResponse{}, errors.New("no prompter configured")
		}
		return prompter.AskCaptcha(ctx, req)
	}, func(resp prompt.CaptchaResponse, err error) {
		switch {
		case err != nil && IsCancelled(err):
			c.cancel("User cancelled captcha")
			c.s.Finish(ErrCancelled)
		case err != nil:
			c.cancel("Captcha prompt failed")
			c.s.Finish(fmt.Errorf("failed to prompt for captcha: %w", err))
		case resp.Reload:
			c.request("")
		default:
			c.answer(captcha.ID, resp.Answer)
		}
	})
}

func (c *captchaStrategy) answer(id uint32, text string) {
	call(c.s, "Answer", func(ctx context.Context) (channel.CaptchaVerdict, error) {
		return c.ch.Answer(ctx, id, text)
	}, func(verdict channel.CaptchaVerdict, err error) {
		if err != nil {
			c.s.Finish(fmt.Errorf("failed to submit captcha answer: %w", err))
			return
		}
		switch verdict {
		case channel.CaptchaAccepted:
			c.s.Finish(nil)
		case channel.CaptchaTryAgain:
			c.request(wrongCaptchaMessage)
		default:
			c.s.Finish(&ServerAuthError{Reason: ErrorNameAuthenticationFailed, Message: "Captcha verification failed"})
		}
	})
}

func (c *captchaStrategy) cancel(message string) {
	c.s.command("Cancel", func(ctx context.Context) error {
		return c.ch.Cancel(ctx, channel.CaptchaCancelUserCancelled, message)
	}, nil)
}
