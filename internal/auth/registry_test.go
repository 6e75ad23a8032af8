package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhandler/internal/channel"
	"authhandler/internal/testing/mock"
)

func TestRegistry_RejectsDuplicateChannel(t *testing.T) {
	e := newTestEnv(t)
	e.prompter.Hold()
	ch := mock.NewSASLChannel("ch1", MechanismPassword)
	account := mock.NewAccount(testAccount, "")

	first := &mock.Invocation{}
	require.NoError(t, e.registry.HandleSASL(ch, account, first))

	second := &mock.Invocation{}
	err := e.registry.HandleSASL(ch, account, second)
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.ErrorIs(t, second.Err(), ErrAlreadyHandled)
	assert.Equal(t, 1, e.registry.Len())

	require.Eventually(t, func() bool {
		e.loop.Drain()
		return e.prompter.Waiting() == 1
	}, waitFor, tick)
	assert.Equal(t, 1, first.Calls())
	assert.NoError(t, first.Err())

	s, ok := e.registry.Session("ch1")
	require.True(t, ok)
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, StrategyPassword, s.Strategy())

	e.registry.Shutdown()
	e.settle(t)
	assert.Equal(t, 0, e.registry.Len())
}

func TestRegistry_UnsupportedMechanism(t *testing.T) {
	e := newTestEnv(t)
	ch := mock.NewSASLChannel("ch1", "PLAIN", "SCRAM-SHA-1")

	inv := e.handleSASL(t, ch, mock.NewAccount(testAccount, ""))

	var negErr *NegotiationError
	require.ErrorAs(t, inv.Err(), &negErr)
	assert.Equal(t, []string{"PLAIN", "SCRAM-SHA-1"}, negErr.Mechanisms)
	assert.ErrorIs(t, e.outcome(t), ErrUnsupportedMechanism)
	assert.Equal(t, ErrorNameNotImplemented, ErrorName(negErr))
	assert.Equal(t, []string{"Properties", "Close"}, ch.Names())
	assert.Empty(t, e.notifier.Sent())
	assert.Equal(t, StrategyNone, e.finished[0].Strategy())
}

func TestRegistry_EmptyMechanismSet(t *testing.T) {
	e := newTestEnv(t)
	ch := mock.NewSASLChannel("ch1")

	inv := e.handleSASL(t, ch, mock.NewAccount(testAccount, ""))

	assert.ErrorIs(t, inv.Err(), ErrUnsupportedMechanism)
	assert.Equal(t, 1, ch.Count("Close"))
}

func TestRegistry_PropertiesFailure(t *testing.T) {
	e := newTestEnv(t)
	ch := mock.NewSASLChannel("ch1", MechanismPassword)
	ch.FailOn("Properties", errors.New("channel vanished"))

	inv := e.handleSASL(t, ch, mock.NewAccount(testAccount, ""))

	require.Error(t, inv.Err())
	assert.Equal(t, ErrorNameNotAvailable, ErrorName(inv.Err()))
	assert.Equal(t, 1, ch.Count("Close"))
}

func TestRegistry_ChannelReusableAfterFinish(t *testing.T) {
	e := newTestEnv(t)
	e.prompter.Passwords = []mock.PasswordAnswer{password("a", false), password("b", false)}
	ch := mock.NewSASLChannel("ch1", MechanismPassword)
	account := mock.NewAccount(testAccount, "")

	e.handleSASL(t, ch, account)
	ch.EmitStatus(channel.StatusSucceeded, false)
	e.settle(t)
	require.Equal(t, 0, e.registry.Len())

	inv := e.handleSASL(t, ch, account)
	assert.NoError(t, inv.Err())
	assert.Equal(t, 1, e.registry.Len())
}

func TestRegistry_IdleTimeout(t *testing.T) {
	e := newTestEnv(t)
	idle := make(chan struct{})
	e.registry = NewRegistry(e.deps, 20*time.Millisecond, func() { close(idle) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.loop.Post(e.registry.StartIdleTimer)
	go func() { _ = e.loop.Run(ctx) }()

	select {
	case <-idle:
	case <-time.After(waitFor):
		t.Fatal("idle callback not called")
	}
}

func TestRegistry_SessionCancelsIdleTimer(t *testing.T) {
	e := newTestEnv(t)
	called := false
	e.registry = NewRegistry(e.deps, 10*time.Millisecond, func() { called = true })
	e.prompter.Hold()

	e.registry.StartIdleTimer()
	require.NoError(t, e.registry.HandleSASL(mock.NewSASLChannel("ch1", MechanismPassword), mock.NewAccount(testAccount, ""), &mock.Invocation{}))

	time.Sleep(50 * time.Millisecond)
	e.loop.Drain()
	assert.False(t, called)

	e.registry.Shutdown()
	e.settle(t)
}
