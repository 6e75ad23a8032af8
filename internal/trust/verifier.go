package trust

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"authhandler/internal/channel"
)

// Verifier validates certificate chains against a root pool.
type Verifier struct {
	roots *x509.CertPool
	clock Clock
}

// NewVerifier creates a verifier using the PEM bundle at caFile as roots, or
// the system pool when caFile is empty.
func NewVerifier(caFile string, clock Clock) (*Verifier, error) {
	if clock == nil {
		clock = realClock{}
	}
	if caFile == "" {
		roots, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("failed to load system roots: %w", err)
		}
		return &Verifier{roots: roots, clock: clock}, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return &Verifier{roots: roots, clock: clock}, nil
}

// NewVerifierWithPool creates a verifier over an existing pool.
func NewVerifierWithPool(roots *x509.CertPool, clock Clock) *Verifier {
	if clock == nil {
		clock = realClock{}
	}
	return &Verifier{roots: roots, clock: clock}
}

// Verify checks chain (leaf first, DER encoded) for hostname. The leaf may
// match hostname or any of the reference identities. It returns nil when the
// chain is trusted, otherwise the rejection reasons to present to the user
// and to report back on the channel.
func (v *Verifier) Verify(chain channel.CertificateChain, hostname string, references []string) []channel.Rejection {
	if chain.Type != channel.CertificateTypeX509 {
		return []channel.Rejection{{
			Reason: channel.RejectInsecure,
			Error:  fmt.Sprintf("unsupported certificate type %q", chain.Type),
		}}
	}
	if len(chain.Data) == 0 {
		return []channel.Rejection{{Reason: channel.RejectUnknown, Error: "empty certificate chain"}}
	}

	certs := make([]*x509.Certificate, 0, len(chain.Data))
	for i, der := range chain.Data {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return []channel.Rejection{{
				Reason: channel.RejectUnknown,
				Error:  fmt.Sprintf("certificate %d cannot be parsed: %v", i, err),
			}}
		}
		certs = append(certs, cert)
	}

	leaf := certs[0]
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}

	// Chain and hostname are checked separately so both problems are reported.
	now := v.clock.Now()
	opts := x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	}

	var out []channel.Rejection
	details := map[string]string{"hostname": hostname}
	if _, err := leaf.Verify(opts); err != nil {
		out = append(out, channel.Rejection{Reason: chainReason(err, leaf, now), Error: err.Error(), Details: details})
	}
	if err := verifyIdentities(leaf, identities(hostname, references)); err != nil {
		out = append(out, channel.Rejection{Reason: channel.RejectHostnameMismatch, Error: err.Error(), Details: details})
	}
	return out
}

// identities returns hostname followed by the distinct non-empty references.
func identities(hostname string, references []string) []string {
	var out []string
	seen := make(map[string]bool, len(references)+1)
	for _, id := range append([]string{hostname}, references...) {
		key := strings.ToLower(id)
		if id == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}

// verifyIdentities succeeds when leaf is valid for any of ids, or when there
// is nothing to check. Otherwise it returns the first mismatch.
func verifyIdentities(leaf *x509.Certificate, ids []string) error {
	var first error
	for _, id := range ids {
		err := leaf.VerifyHostname(id)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// chainReason maps a chain verification error to a rejection reason.
func chainReason(err error, leaf *x509.Certificate, now time.Time) channel.RejectReason {
	var authErr x509.UnknownAuthorityError
	var invalidErr x509.CertificateInvalidError

	switch {
	case errors.As(err, &authErr):
		if isSelfSigned(leaf) {
			return channel.RejectSelfSigned
		}
		return channel.RejectUntrusted
	case errors.As(err, &invalidErr):
		return invalidReason(invalidErr, leaf, now)
	default:
		return channel.RejectUnknown
	}
}

func invalidReason(err x509.CertificateInvalidError, leaf *x509.Certificate, now time.Time) channel.RejectReason {
	switch err.Reason {
	case x509.Expired:
		if now.Before(leaf.NotBefore) {
			return channel.RejectNotActivated
		}
		return channel.RejectExpired
	case x509.TooManyIntermediates:
		return channel.RejectLimitExceeded
	case x509.IncompatibleUsage, x509.NotAuthorizedToSign, x509.CANotAuthorizedForThisName:
		return channel.RejectInsecure
	default:
		return channel.RejectUnknown
	}
}

func isSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}
