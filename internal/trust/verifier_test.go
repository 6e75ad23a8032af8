package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhandler/internal/channel"
	"authhandler/internal/testing/mock"
)

func reasons(rs []channel.Rejection) []channel.RejectReason {
	out := make([]channel.RejectReason, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Reason)
	}
	return out
}

func TestVerifier_Verify(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := mock.NewMockClock(now)
	ca := newTestCA(t, now)
	v := NewVerifierWithPool(ca.pool(), clock)

	valid := ca.issue(t, "chat.example.org", now.Add(-time.Hour), now.Add(time.Hour))
	expired := ca.issue(t, "chat.example.org", now.Add(-2*time.Hour), now.Add(-time.Hour))
	future := ca.issue(t, "chat.example.org", now.Add(time.Hour), now.Add(2*time.Hour))

	tests := []struct {
		name       string
		chain      channel.CertificateChain
		hostname   string
		references []string
		want       []channel.RejectReason
	}{
		{
			name:     "valid chain",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{valid}},
			hostname: "chat.example.org",
			want:     nil,
		},
		{
			name:     "hostname mismatch",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{valid}},
			hostname: "other.example.org",
			want:     []channel.RejectReason{channel.RejectHostnameMismatch},
		},
		{
			name:       "reference identity matches",
			chain:      channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{valid}},
			hostname:   "example.org",
			references: []string{"example.org", "chat.example.org"},
			want:       nil,
		},
		{
			name:       "no identity matches",
			chain:      channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{valid}},
			hostname:   "example.org",
			references: []string{"xmpp.example.org"},
			want:       []channel.RejectReason{channel.RejectHostnameMismatch},
		},
		{
			name:     "expired",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{expired}},
			hostname: "chat.example.org",
			want:     []channel.RejectReason{channel.RejectExpired},
		},
		{
			name:     "not yet valid",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{future}},
			hostname: "chat.example.org",
			want:     []channel.RejectReason{channel.RejectNotActivated},
		},
		{
			name:     "self signed",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{selfSigned(t, "chat.example.org", now)}},
			hostname: "chat.example.org",
			want:     []channel.RejectReason{channel.RejectSelfSigned},
		},
		{
			name:     "self signed for wrong host",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{selfSigned(t, "chat.example.org", now)}},
			hostname: "evil.example.org",
			want:     []channel.RejectReason{channel.RejectSelfSigned, channel.RejectHostnameMismatch},
		},
		{
			name:     "garbage",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509, Data: [][]byte{[]byte("nope")}},
			hostname: "chat.example.org",
			want:     []channel.RejectReason{channel.RejectUnknown},
		},
		{
			name:     "empty chain",
			chain:    channel.CertificateChain{Type: channel.CertificateTypeX509},
			hostname: "chat.example.org",
			want:     []channel.RejectReason{channel.RejectUnknown},
		},
		{
			name:     "pgp",
			chain:    channel.CertificateChain{Type: channel.CertificateTypePGP, Data: [][]byte{valid}},
			hostname: "chat.example.org",
			want:     []channel.RejectReason{channel.RejectInsecure},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Verify(tt.chain, tt.hostname, tt.references)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, reasons(got))
			for _, r := range got {
				assert.NotEmpty(t, r.Error)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ca := newTestCA(t, now)
	leaf := ca.issue(t, "chat.example.org", now.Add(-time.Hour), now.Add(time.Hour))

	d := Describe(leaf)
	assert.Contains(t, d, "CN=chat.example.org")
	assert.Contains(t, d, "CN=Test Root")
	assert.Contains(t, d, "2026-05-01T13:00:00Z")

	assert.Contains(t, Describe([]byte("junk")), "Unparseable")
}
