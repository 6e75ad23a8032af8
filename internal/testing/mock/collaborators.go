package mock

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"

	"authhandler/internal/prompt"
	"authhandler/internal/sso"
)

// ErrNoAnswer is returned by Prompter when its script is exhausted.
var ErrNoAnswer = errors.New("mock prompter: no scripted answer")

// PasswordAnswer is one scripted reply to a password prompt.
type PasswordAnswer struct {
	Response prompt.PasswordResponse
	Err      error
}

// CaptchaAnswer is one scripted reply to a captcha prompt.
type CaptchaAnswer struct {
	Response prompt.CaptchaResponse
	Err      error
}

// CertificateAnswer is one scripted reply to a certificate prompt.
type CertificateAnswer struct {
	Decision prompt.CertificateDecision
	Err      error
}

// Prompter is a scripted prompt.Prompter. Answers are consumed in order.
// When Hold is set, every prompt blocks until Release is called or the
// request context is cancelled.
type Prompter struct {
	mu sync.Mutex

	Passwords    []PasswordAnswer
	Captchas     []CaptchaAnswer
	Certificates []CertificateAnswer

	PasswordRequests    []prompt.PasswordRequest
	CaptchaRequests     []prompt.CaptchaRequest
	CertificateRequests []prompt.CertificateRequest

	hold    chan struct{}
	waiting int
}

// Hold makes later prompts block until Release.
func (p *Prompter) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = make(chan struct{})
}

// Release unblocks held prompts.
func (p *Prompter) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hold != nil {
		close(p.hold)
		p.hold = nil
	}
}

// Waiting returns the number of prompts currently blocked by Hold.
func (p *Prompter) Waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiting
}

// PasswordPrompts returns how many password prompts were shown.
func (p *Prompter) PasswordPrompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.PasswordRequests)
}

func (p *Prompter) wait(ctx context.Context) error {
	p.mu.Lock()
	hold := p.hold
	if hold == nil {
		p.mu.Unlock()
		return nil
	}
	p.waiting++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()
	}()
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Prompter) AskPassword(ctx context.Context, req prompt.PasswordRequest) (prompt.PasswordResponse, error) {
	p.mu.Lock()
	p.PasswordRequests = append(p.PasswordRequests, req)
	p.mu.Unlock()
	if err := p.wait(ctx); err != nil {
		return prompt.PasswordResponse{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Passwords) == 0 {
		return prompt.PasswordResponse{}, ErrNoAnswer
	}
	a := p.Passwords[0]
	p.Passwords = p.Passwords[1:]
	return a.Response, a.Err
}

func (p *Prompter) AskCertificate(ctx context.Context, req prompt.CertificateRequest) (prompt.CertificateDecision, error) {
	p.mu.Lock()
	p.CertificateRequests = append(p.CertificateRequests, req)
	p.mu.Unlock()
	if err := p.wait(ctx); err != nil {
		return prompt.DecisionReject, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Certificates) == 0 {
		return prompt.DecisionReject, ErrNoAnswer
	}
	a := p.Certificates[0]
	p.Certificates = p.Certificates[1:]
	return a.Decision, a.Err
}

func (p *Prompter) AskCaptcha(ctx context.Context, req prompt.CaptchaRequest) (prompt.CaptchaResponse, error) {
	p.mu.Lock()
	p.CaptchaRequests = append(p.CaptchaRequests, req)
	p.mu.Unlock()
	if err := p.wait(ctx); err != nil {
		return prompt.CaptchaResponse{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Captchas) == 0 {
		return prompt.CaptchaResponse{}, ErrNoAnswer
	}
	a := p.Captchas[0]
	p.Captchas = p.Captchas[1:]
	return a.Response, a.Err
}

// Invocation records how a dispatcher invocation was resolved.
type Invocation struct {
	mu    sync.Mutex
	calls []error
}

func (i *Invocation) Resolve(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, err)
}

// Calls returns how often Resolve was called.
func (i *Invocation) Calls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}

// Err returns the error of the first Resolve.
func (i *Invocation) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.calls) == 0 {
		return nil
	}
	return i.calls[0]
}

// SSOProvider is a fake sso.Provider.
type SSOProvider struct {
	mu    sync.Mutex
	Creds sso.Credentials
	Err   error
	calls []string
}

func (s *SSOProvider) Credentials(_ context.Context, identity string) (sso.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, identity)
	return s.Creds, s.Err
}

// Calls returns the identities credentials were requested for.
func (s *SSOProvider) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// OAuth2Flow is a fake browser authorization flow.
type OAuth2Flow struct {
	mu sync.Mutex

	Token *oauth2.Token
	Err   error

	RefreshedToken *oauth2.Token
	RefreshErr     error

	authorizations int
	refreshes      []string
}

func (f *OAuth2Flow) Authorize(context.Context, string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorizations++
	return f.Token, f.Err
}

func (f *OAuth2Flow) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, refreshToken)
	if f.RefreshedToken == nil && f.RefreshErr == nil {
		return nil, errors.New("mock oauth2: refresh not scripted")
	}
	return f.RefreshedToken, f.RefreshErr
}

// Authorizations returns how often the browser flow ran.
func (f *OAuth2Flow) Authorizations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authorizations
}

// Refreshes returns the refresh tokens used.
func (f *OAuth2Flow) Refreshes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshes...)
}

// Notification is one recorded failure notification.
type Notification struct {
	AccountName string
	Message     string
}

// Notifier records authentication-error notifications.
type Notifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *Notifier) AuthenticationFailed(_ context.Context, accountName, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{AccountName: accountName, Message: message})
	return nil
}

// Sent returns the notifications in order.
func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}
