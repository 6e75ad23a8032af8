package channel

import "context"

// CertificateType values reported by TLS channels.
const (
	CertificateTypeX509 = "x509"
	CertificateTypePGP  = "pgp"
)

// CertificateChain is the peer's certificate chain, leaf first.
type CertificateChain struct {
	Type string
	Data [][]byte
}

// RejectReason is the framework's TLS certificate rejection reason.
type RejectReason uint32

const (
	RejectUnknown             RejectReason = 0
	RejectUntrusted           RejectReason = 1
	RejectExpired             RejectReason = 2
	RejectNotActivated        RejectReason = 3
	RejectFingerprintMismatch RejectReason = 4
	RejectHostnameMismatch    RejectReason = 5
	RejectSelfSigned          RejectReason = 6
	RejectRevoked             RejectReason = 7
	RejectInsecure            RejectReason = 8
	RejectLimitExceeded       RejectReason = 9
)

// Rejection is one reason given when rejecting a certificate.
type Rejection struct {
	Reason  RejectReason
	Error   string
	Details map[string]string
}

// TLSChannel is a server TLS connection channel asking for a trust decision.
type TLSChannel interface {
	Channel

	Hostname() string
	ReferenceIdentities() []string

	CertificateChain(ctx context.Context) (CertificateChain, error)
	AcceptCertificate(ctx context.Context) error
	RejectCertificate(ctx context.Context, rejections []Rejection) error
}
