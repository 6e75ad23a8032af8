package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCaller struct {
	method string
	args   []interface{}
	err    error
}

func (c *recordingCaller) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	c.method = method
	c.args = args
	return &dbus.Call{Err: c.err}
}

func TestDBusNotifier_AuthenticationFailed(t *testing.T) {
	rc := &recordingCaller{}
	n := &DBusNotifier{obj: rc}

	require.NoError(t, n.AuthenticationFailed(context.Background(), "alice@jabber.org", "not-authorized"))

	assert.Equal(t, "org.freedesktop.Notifications.Notify", rc.method)
	require.Len(t, rc.args, 8)
	assert.Equal(t, appName, rc.args[0])
	assert.Equal(t, uint32(0), rc.args[1])
	assert.Equal(t, "Authentication error for alice@jabber.org", rc.args[3])
	assert.Equal(t, "not-authorized", rc.args[4])
	assert.Equal(t, expireDefault, rc.args[7])
}

func TestDBusNotifier_Error(t *testing.T) {
	rc := &recordingCaller{err: errors.New("no server")}
	n := &DBusNotifier{obj: rc}

	err := n.AuthenticationFailed(context.Background(), "", "x")
	assert.Error(t, err)
	assert.Equal(t, "Authentication error", rc.args[3])
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.AuthenticationFailed(context.Background(), "a", "b"))
}

func TestDBusNotifier_LongMessageIsOneLine(t *testing.T) {
	rc := &recordingCaller{}
	n := &DBusNotifier{obj: rc}

	long := "first line\n" + strings.Repeat("x", 400)
	require.NoError(t, n.AuthenticationFailed(context.Background(), "bob", long))

	body := rc.args[4].(string)
	assert.NotContains(t, body, "\n")
	assert.Len(t, []rune(body), 200)
	assert.Contains(t, body, "first line x")
}
