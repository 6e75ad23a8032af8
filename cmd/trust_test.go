package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhandler/internal/trust"
)

func TestRenderRules(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	renderRules(&buf, []trust.Rule{
		{Hostname: "jabber.example.org", Fingerprint: "aa11", Expiry: trust.ForeverExpiry(now)},
		{Hostname: "irc.example.net", Fingerprint: "bb22", Expiry: now.Add(30 * time.Minute)},
	}, now)

	out := buf.String()
	assert.Contains(t, out, "HOSTNAME")
	assert.Contains(t, out, "jabber.example.org")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "bb22")
	assert.Contains(t, out, now.Add(30*time.Minute).Local().Format(time.DateTime))
}

func TestRenderRules_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderRules(&buf, nil, time.Now())
	assert.Contains(t, buf.String(), "No certificate exceptions")
}

func TestRevokeRules(t *testing.T) {
	store := trust.NewStore("", nil)
	require.NoError(t, store.RememberForever([]byte("leaf-a"), "jabber.example.org"))
	require.NoError(t, store.RememberForever([]byte("leaf-b"), "jabber.example.org"))

	var buf bytes.Buffer
	require.NoError(t, revokeRules(&buf, store, "JABBER.example.org", trust.Fingerprint([]byte("leaf-a"))))
	assert.Contains(t, buf.String(), "1 exception(s)")
	assert.Len(t, store.List(), 1)

	assert.Error(t, revokeRules(&buf, store, "other.example.org", ""))
}
