package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"authhandler/internal/channel"
	"authhandler/internal/loop"
	"authhandler/internal/prompt"
	"authhandler/internal/testing/mock"
	"authhandler/internal/trust"
	"authhandler/internal/wallet"
)

type testEnv struct {
	loop     *loop.Loop
	wallet   *wallet.MemoryStore
	prompter *mock.Prompter
	notifier *mock.Notifier
	sso      *mock.SSOProvider
	oauth    *mock.OAuth2Flow
	clock    *mock.MockClock
	trust    *trust.Store
	verifier *stubVerifier
	deps     *Deps
	registry *Registry
	finished []*Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		loop:     loop.New(),
		wallet:   wallet.NewMemoryStore(),
		prompter: &mock.Prompter{},
		notifier: &mock.Notifier{},
		sso:      &mock.SSOProvider{},
		oauth:    &mock.OAuth2Flow{},
		clock:    mock.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		verifier: &stubVerifier{},
	}
	e.trust = trust.NewStore(filepath.Join(t.TempDir(), "trust.json"), e.clock)
	e.deps = &Deps{
		Loop:     e.loop,
		Wallet:   wallet.NewStaticOpener(e.wallet),
		Prompter: e.prompter,
		Notifier: e.notifier,
		Trust:    e.trust,
		Verifier: e.verifier,
		SSO:      e.sso,
		OAuth2:   e.oauth,
	}
	e.registry = NewRegistry(e.deps, 0, nil)
	e.registry.OnFinished = func(s *Session) { e.finished = append(e.finished, s) }
	return e
}

func (e *testEnv) settle(t *testing.T) {
	t.Helper()
	require.True(t, e.loop.Settle(), "loop did not settle")
}

func (e *testEnv) handleSASL(t *testing.T, ch *mock.SASLChannel, account channel.Account) *mock.Invocation {
	t.Helper()
	inv := &mock.Invocation{}
	require.NoError(t, e.registry.HandleSASL(ch, account, inv))
	e.settle(t)
	return inv
}

// outcome returns the outcome of the only finished session.
func (e *testEnv) outcome(t *testing.T) error {
	t.Helper()
	require.Len(t, e.finished, 1, "expected exactly one finished session")
	return e.finished[0].Outcome()
}

type stubVerifier struct {
	rejections []channel.Rejection
	references []string
}

func (v *stubVerifier) Verify(_ channel.CertificateChain, _ string, references []string) []channel.Rejection {
	v.references = references
	return v.rejections
}

func password(pw string, save bool) mock.PasswordAnswer {
	return mock.PasswordAnswer{Response: prompt.PasswordResponse{Password: pw, Save: save}}
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
