package mock

import (
	"context"
	"fmt"
	"sync"

	"authhandler/internal/channel"
)

// Command is one recorded channel call.
type Command struct {
	Name string
	Args []interface{}
}

// recorder records commands and returns injected errors.
type recorder struct {
	mu       sync.Mutex
	commands []Command
	errs     map[string]error
}

func (r *recorder) record(name string, args ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, Command{Name: name, Args: args})
	return r.errs[name]
}

// FailOn makes every later call to name return err.
func (r *recorder) FailOn(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs == nil {
		r.errs = make(map[string]error)
	}
	r.errs[name] = err
}

// Commands returns the recorded calls in order.
func (r *recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Names returns the names of the recorded calls in order.
func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.commands))
	for i, c := range r.commands {
		names[i] = c.Name
	}
	return names
}

// Count returns how often name was called.
func (r *recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Last returns the most recent call to name.
func (r *recorder) Last(name string) (Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.commands) - 1; i >= 0; i-- {
		if r.commands[i].Name == name {
			return r.commands[i], true
		}
	}
	return Command{}, false
}

type handlers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (h *handlers[T]) add(fn func(T)) channel.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fns == nil {
		h.fns = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.fns[id] = fn
	return channel.SubscriptionFunc(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.fns, id)
	})
}

func (h *handlers[T]) emit(v T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.fns))
	for i := 0; i < h.next; i++ {
		if fn, ok := h.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (h *handlers[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fns)
}

// SASLChannel is a fake channel.SASLChannel.
type SASLChannel struct {
	recorder
	id    string
	props channel.SASLProperties

	status    handlers[channel.StatusEvent]
	challenge handlers[[]byte]
}

// NewSASLChannel creates a SASL channel advertising mechanisms with status NotStarted.
func NewSASLChannel(id string, mechanisms ...string) *SASLChannel {
	return &SASLChannel{
		id: id,
		props: channel.SASLProperties{
			AvailableMechanisms: mechanisms,
			Status:              channel.StatusEvent{Status: channel.StatusNotStarted},
			CanTryAgain:         true,
			MaySaveResponse:     true,
		},
	}
}

// SetProperties replaces the property snapshot.
func (c *SASLChannel) SetProperties(props channel.SASLProperties) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props = props
}

// Emit delivers a status change to every subscriber.
func (c *SASLChannel) Emit(ev channel.StatusEvent) {
	c.status.emit(ev)
}

// EmitStatus is Emit for a bare status.
func (c *SASLChannel) EmitStatus(status channel.SASLStatus, canTryAgain bool) {
	c.Emit(channel.StatusEvent{Status: status, CanTryAgain: canTryAgain})
}

// EmitChallenge delivers a server challenge to every subscriber.
func (c *SASLChannel) EmitChallenge(challenge []byte) {
	c.challenge.emit(challenge)
}

// Subscribers returns the number of live status and challenge subscriptions.
func (c *SASLChannel) Subscribers() int {
	return c.status.len() + c.challenge.len()
}

func (c *SASLChannel) ID() string         { return c.id }
func (c *SASLChannel) Kind() channel.Kind { return channel.KindSASL }

func (c *SASLChannel) Close(context.Context) error {
	return c.record("Close")
}

func (c *SASLChannel) Properties(context.Context) (channel.SASLProperties, error) {
	err := c.record("Properties")
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.props, err
}

func (c *SASLChannel) SubscribeStatus(handler func(channel.StatusEvent)) channel.Subscription {
	return c.status.add(handler)
}

func (c *SASLChannel) SubscribeChallenge(handler func([]byte)) channel.Subscription {
	return c.challenge.add(handler)
}

func (c *SASLChannel) StartMechanism(_ context.Context, mechanism string) error {
	return c.record("StartMechanism", mechanism)
}

func (c *SASLChannel) StartMechanismWithData(_ context.Context, mechanism string, data []byte) error {
	return c.record("StartMechanismWithData", mechanism, string(data))
}

func (c *SASLChannel) Respond(_ context.Context, response []byte) error {
	return c.record("Respond", string(response))
}

func (c *SASLChannel) AcceptSASL(context.Context) error {
	return c.record("AcceptSASL")
}

func (c *SASLChannel) AbortSASL(_ context.Context, reason channel.AbortReason, message string) error {
	return c.record("AbortSASL", reason, message)
}

// TLSChannel is a fake channel.TLSChannel.
type TLSChannel struct {
	recorder
	id         string
	hostname   string
	references []string
	chain      channel.CertificateChain
}

// NewTLSChannel creates a TLS channel presenting chain (leaf first) for hostname.
func NewTLSChannel(id, hostname string, chain ...[]byte) *TLSChannel {
	return &TLSChannel{
		id:       id,
		hostname: hostname,
		chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: chain},
	}
}

// WithReferenceIdentities replaces the reference identities, which default
// to the hostname alone.
func (c *TLSChannel) WithReferenceIdentities(ids ...string) *TLSChannel {
	c.references = ids
	return c
}

func (c *TLSChannel) ID() string         { return c.id }
func (c *TLSChannel) Kind() channel.Kind { return channel.KindTLS }
func (c *TLSChannel) Hostname() string   { return c.hostname }

func (c *TLSChannel) ReferenceIdentities() []string {
	if c.references != nil {
		return c.references
	}
	return []string{c.hostname}
}

func (c *TLSChannel) Close(context.Context) error {
	return c.record("Close")
}

func (c *TLSChannel) CertificateChain(context.Context) (channel.CertificateChain, error) {
	return c.chain, c.record("CertificateChain")
}

func (c *TLSChannel) AcceptCertificate(context.Context) error {
	return c.record("AcceptCertificate")
}

func (c *TLSChannel) RejectCertificate(_ context.Context, rejections []channel.Rejection) error {
	return c.record("RejectCertificate", rejections)
}

// CaptchaChannel is a fake channel.CaptchaChannel. Captchas are served in
// order, the last one repeating; verdicts likewise.
type CaptchaChannel struct {
	recorder
	id       string
	captchas []channel.Captcha
	verdicts []channel.CaptchaVerdict
	served   int
	answered int
}

// NewCaptchaChannel creates a captcha channel.
func NewCaptchaChannel(id string, captchas []channel.Captcha, verdicts ...channel.CaptchaVerdict) *CaptchaChannel {
	return &CaptchaChannel{id: id, captchas: captchas, verdicts: verdicts}
}

func (c *CaptchaChannel) ID() string         { return c.id }
func (c *CaptchaChannel) Kind() channel.Kind { return channel.KindCaptcha }

func (c *CaptchaChannel) Close(context.Context) error {
	return c.record("Close")
}

func (c *CaptchaChannel) RequestCaptcha(context.Context) (channel.Captcha, error) {
	if err := c.record("RequestCaptcha"); err != nil {
		return channel.Captcha{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.captchas) == 0 {
		return channel.Captcha{}, fmt.Errorf("no captcha available")
	}
	i := min(c.served, len(c.captchas)-1)
	c.served++
	return c.captchas[i], nil
}

func (c *CaptchaChannel) Answer(_ context.Context, id uint32, text string) (channel.CaptchaVerdict, error) {
	if err := c.record("Answer", id, text); err != nil {
		return channel.CaptchaFailed, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.verdicts) == 0 {
		return channel.CaptchaAccepted, nil
	}
	i := min(c.answered, len(c.verdicts)-1)
	c.answered++
	return c.verdicts[i], nil
}

func (c *CaptchaChannel) Cancel(_ context.Context, reason channel.CaptchaCancelReason, message string) error {
	return c.record("Cancel", reason, message)
}

// RoomChannel is a fake channel.RoomPasswordChannel accepting one password.
type RoomChannel struct {
	recorder
	id       string
	target   string
	flags    channel.PasswordFlags
	password string
}

// NewRoomChannel creates a room that wants password when flags has the provide bit.
func NewRoomChannel(id, target string, flags channel.PasswordFlags, password string) *RoomChannel {
	return &RoomChannel{id: id, target: target, flags: flags, password: password}
}

func (c *RoomChannel) ID() string         { return c.id }
func (c *RoomChannel) Kind() channel.Kind { return channel.KindRoomPassword }
func (c *RoomChannel) TargetID() string   { return c.target }

func (c *RoomChannel) Close(context.Context) error {
	return c.record("Close")
}

func (c *RoomChannel) PasswordFlags(context.Context) (channel.PasswordFlags, error) {
	return c.flags, c.record("PasswordFlags")
}

func (c *RoomChannel) ProvidePassword(_ context.Context, password string) (bool, error) {
	if err := c.record("ProvidePassword", password); err != nil {
		return false, err
	}
	return password == c.password, nil
}

// Account is a fake channel.Account.
type Account struct {
	recorder
	AccountID string
	Name      string
	Identity  string
}

// NewAccount creates an account; identity links it to an SSO identity when non-empty.
func NewAccount(id, identity string) *Account {
	return &Account{AccountID: id, Name: id, Identity: identity}
}

func (a *Account) ID() string          { return a.AccountID }
func (a *Account) DisplayName() string { return a.Name }
func (a *Account) SSOIdentity() string { return a.Identity }

func (a *Account) Reconnect(context.Context) error {
	return a.record("Reconnect")
}
