package trust

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSessionTTL is how long a "remember for this session" exception lasts.
	DefaultSessionTTL = 30 * time.Minute

	// foreverYears is the lifetime of a "remember forever" exception.
	foreverYears = 1000
)

// Rule is a user-granted exception for one certificate and hostname.
type Rule struct {
	Hostname    string    `json:"hostname"`
	Fingerprint string    `json:"fingerprint"`
	Expiry      time.Time `json:"expiry"`
	Created     time.Time `json:"created"`
}

// Expired reports whether the rule no longer applies at now.
func (r Rule) Expired(now time.Time) bool {
	return !now.Before(r.Expiry)
}

func (r Rule) matches(fingerprint, hostname string) bool {
	return r.Fingerprint == fingerprint && strings.EqualFold(r.Hostname, hostname)
}

// Fingerprint returns the hex SHA-256 digest of a DER certificate.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// ForeverExpiry returns the expiry used for permanent exceptions.
// time.Duration cannot express it, hence the calendar arithmetic.
func ForeverExpiry(now time.Time) time.Time {
	return now.AddDate(foreverYears, 0, 0)
}

// Describe summarises a DER certificate for display.
func Describe(der []byte) string {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "Unparseable certificate: " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", cert.Subject)
	fmt.Fprintf(&b, "Issuer: %s\n", cert.Issuer)
	if len(cert.DNSNames) > 0 {
		fmt.Fprintf(&b, "Names: %s\n", strings.Join(cert.DNSNames, ", "))
	}
	fmt.Fprintf(&b, "Valid from: %s\n", cert.NotBefore.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Valid until: %s", cert.NotAfter.UTC().Format(time.RFC3339))
	return b.String()
}
