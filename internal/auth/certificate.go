package auth

import (
	"context"
	"errors"
	"fmt"

	"authhandler/internal/channel"
	"authhandler/internal/prompt"
	"authhandler/internal/trust"
)

// certificateStrategy decides whether to trust a server certificate: valid
// chains and chains covered by a trust rule are accepted, anything else is
// put to the user.
type certificateStrategy struct {
	s  *Session
	ch channel.TLSChannel
}

func newCertificateStrategy(s *Session, ch channel.TLSChannel) *certificateStrategy {
	return &certificateStrategy{s: s, ch: ch}
}

func (c *certificateStrategy) Kind() StrategyKind { return StrategyCertificate }

func (c *certificateStrategy) Stop() {}

func (c *certificateStrategy) Start() {
	call(c.s, "CertificateChain", c.ch.CertificateChain, c.onChain)
}

func (c *certificateStrategy) onChain(chain channel.CertificateChain, err error) {
	hostname := c.ch.Hostname()
	if err != nil {
		c.s.Finish(fmt.Errorf("failed to read certificate chain for %s: %w", hostname, err))
		return
	}
	if len(chain.Data) == 0 {
		c.reject(hostname, []channel.Rejection{{Reason: channel.RejectUnknown, Error: "empty certificate chain"}}, false)
		return
	}

	var rejections []channel.Rejection
	if c.s.deps.Verifier != nil {
		rejections = c.s.deps.Verifier.Verify(chain, hostname, c.ch.ReferenceIdentities())
	} else {
		rejections = []channel.Rejection{{Reason: channel.RejectUntrusted, Error: "no certificate verifier configured"}}
	}
	if len(rejections) == 0 {
		c.s.debug("Certificate for %s verified", hostname)
		c.accept()
		return
	}

	leaf := chain.Data[0]
	if c.s.deps.Trust != nil && c.s.deps.Trust.IsTrusted(leaf, hostname) {
		c.s.debug("Certificate for %s covered by a trust rule", hostname)
		c.accept()
		return
	}
	c.ask(hostname, leaf, rejections)
}

func (c *certificateStrategy) ask(hostname string, leaf []byte, rejections []channel.Rejection) {
	prompter := c.s.deps.Prompter
	req := prompt.CertificateRequest{
		AccountName: c.s.accountName(),
		Hostname:    hostname,
		Fingerprint: trust.Fingerprint(leaf),
		Details:     trust.Describe(leaf),
		Rejections:  rejections,
	}
	async(c.s, func(ctx context.Context) (prompt.CertificateDecision, error) {
		if prompter == nil {
			return prompt.DecisionReject, errors.New("no prompter configured")
		}
		return prompter.AskCertificate(ctx, req)
	}, func(decision prompt.CertificateDecision, err error) {
		if err != nil && !IsCancelled(err) {
			c.s.debug("Certificate prompt failed: %v", err)
			c.reject(hostname, rejections, false)
			return
		}
		if err != nil || decision == prompt.DecisionReject {
			c.reject(hostname, rejections, true)
			return
		}
		c.remember(hostname, leaf, decision)
	})
}

func (c *certificateStrategy) remember(hostname string, leaf []byte, decision prompt.CertificateDecision) {
	store := c.s.deps.Trust
	if store == nil {
		c.accept()
		return
	}
	ttl := c.s.deps.SessionTTL
	if ttl <= 0 {
		ttl = trust.DefaultSessionTTL
	}
	async(c.s, func(context.Context) (struct{}, error) {
		if decision == prompt.DecisionAcceptForever {
			return struct{}{}, store.RememberForever(leaf, hostname)
		}
		return struct{}{}, store.RememberFor(leaf, hostname, ttl)
	}, func(_ struct{}, err error) {
		if err != nil {
			c.s.debug("Failed to persist trust rule for %s: %v", hostname, err)
		}
		c.accept()
	})
}

func (c *certificateStrategy) accept() {
	c.s.command("AcceptCertificate", c.ch.AcceptCertificate, func(err error) {
		c.s.Finish(err)
	})
}

// reject refuses the certificate. byUser marks a refusal the user chose,
// which needs no notification.
func (c *certificateStrategy) reject(hostname string, rejections []channel.Rejection, byUser bool) {
	c.s.command("RejectCertificate", func(ctx context.Context) error {
		return c.ch.RejectCertificate(ctx, rejections)
	}, nil)
	c.s.Finish(&TrustRejectedError{Hostname: hostname, Rejections: rejections, ByUser: byUser})
}
