package telepathy

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"authhandler/internal/channel"
)

// tlsRejection is the TLS_Certificate_Rejection struct (usa{sv}).
type tlsRejection struct {
	Reason  uint32
	Error   string
	Details map[string]dbus.Variant
}

var rejectErrorNames = map[channel.RejectReason]string{
	channel.RejectUnknown:             "Invalid",
	channel.RejectUntrusted:           "Untrusted",
	channel.RejectExpired:             "Expired",
	channel.RejectNotActivated:        "NotActivated",
	channel.RejectFingerprintMismatch: "FingerprintMismatch",
	channel.RejectHostnameMismatch:    "HostnameMismatch",
	channel.RejectSelfSigned:          "SelfSigned",
	channel.RejectRevoked:             "Revoked",
	channel.RejectInsecure:            "Insecure",
	channel.RejectLimitExceeded:       "LimitExceeded",
}

func toTLSRejections(in []channel.Rejection) []tlsRejection {
	out := make([]tlsRejection, 0, len(in))
	for _, r := range in {
		name, ok := rejectErrorNames[r.Reason]
		if !ok {
			name = rejectErrorNames[channel.RejectUnknown]
		}
		details := map[string]dbus.Variant{}
		if r.Error != "" {
			details["debug-message"] = dbus.MakeVariant(r.Error)
		}
		for k, v := range r.Details {
			details[k] = dbus.MakeVariant(v)
		}
		out = append(out, tlsRejection{Reason: uint32(r.Reason), Error: errorCertPrefix + name, Details: details})
	}
	return out
}

// tlsProxy implements channel.TLSChannel. The certificate is a separate
// object on the connection.
type tlsProxy struct {
	channelBase
	cert remote
}

func (c *tlsProxy) Kind() channel.Kind { return channel.KindTLS }

func (c *tlsProxy) Hostname() string { return c.props.string(propTLSHostname) }

func (c *tlsProxy) ReferenceIdentities() []string { return c.props.strings(propTLSReferenceIDs) }

func (c *tlsProxy) CertificateChain(ctx context.Context) (channel.CertificateChain, error) {
	if c.cert.obj == nil {
		return channel.CertificateChain{}, fmt.Errorf("channel %s has no server certificate", c.path)
	}
	p, err := c.cert.getAll(ctx, ifaceTLSCert)
	if err != nil {
		return channel.CertificateChain{}, err
	}
	data, _ := p["CertificateChainData"].Value().([][]byte)
	return channel.CertificateChain{Type: p.string("CertificateType"), Data: data}, nil
}

func (c *tlsProxy) AcceptCertificate(ctx context.Context) error {
	return c.cert.call(ctx, ifaceTLSCert+".Accept")
}

func (c *tlsProxy) RejectCertificate(ctx context.Context, rejections []channel.Rejection) error {
	return c.cert.call(ctx, ifaceTLSCert+".Reject", toTLSRejections(rejections))
}
