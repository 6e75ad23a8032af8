package telepathy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authhandler/internal/auth"
	"authhandler/internal/channel"
)

func TestChannelKind(t *testing.T) {
	tests := []struct {
		name  string
		props props
		want  channel.Kind
	}{
		{
			name: "sasl",
			props: props{
				propChannelType: dbus.MakeVariant(typeServerAuth),
				propAuthMethod:  dbus.MakeVariant(ifaceSASL),
			},
			want: channel.KindSASL,
		},
		{
			name: "captcha",
			props: props{
				propChannelType: dbus.MakeVariant(typeServerAuth),
				propAuthMethod:  dbus.MakeVariant(ifaceCaptcha),
			},
			want: channel.KindCaptcha,
		},
		{
			name:  "tls",
			props: props{propChannelType: dbus.MakeVariant(typeServerTLS)},
			want:  channel.KindTLS,
		},
		{
			name: "password protected room",
			props: props{
				propChannelType:      dbus.MakeVariant(typeText),
				propTargetHandleType: dbus.MakeVariant(handleTypeRoom),
				propInterfaces:       dbus.MakeVariant([]string{ifacePassword}),
			},
			want: channel.KindRoomPassword,
		},
		{
			name: "room without password interface",
			props: props{
				propChannelType:      dbus.MakeVariant(typeText),
				propTargetHandleType: dbus.MakeVariant(handleTypeRoom),
			},
			want: channel.KindUnknown,
		},
		{
			name: "unknown auth method",
			props: props{
				propChannelType: dbus.MakeVariant(typeServerAuth),
				propAuthMethod:  dbus.MakeVariant("org.example.Other"),
			},
			want: channel.KindUnknown,
		},
		{
			name:  "empty",
			props: props{},
			want:  channel.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, channelKind(tt.props))
		})
	}
}

func TestChannelFilter(t *testing.T) {
	for _, kind := range []channel.Kind{channel.KindSASL, channel.KindCaptcha, channel.KindTLS} {
		filter := channelFilter(kind)
		require.Len(t, filter, 1, kind.String())
		// Every filter must accept a channel of its own kind.
		assert.Equal(t, kind, channelKind(props(filter[0])), kind.String())
	}

	room := channelFilter(channel.KindRoomPassword)
	require.Len(t, room, 1)
	assert.Equal(t, handleTypeRoom, room[0][propTargetHandleType].Value())

	assert.Nil(t, channelFilter(channel.KindUnknown))
}

func TestInvocation(t *testing.T) {
	inv := newInvocation()
	inv.Resolve(nil)
	inv.Resolve(errors.New("late"))
	assert.NoError(t, inv.wait(context.Background()))

	inv = newInvocation()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, inv.wait(ctx), context.DeadlineExceeded)
}

func TestDBusError(t *testing.T) {
	assert.Nil(t, dbusError(nil))

	e := dbusError(auth.ErrCancelled)
	require.NotNil(t, e)
	assert.Equal(t, auth.ErrorNameCancelled, e.Name)

	e = dbusError(errors.New("boom"))
	assert.Equal(t, errorNotAvailable, e.Name)
	assert.Equal(t, []interface{}{"boom"}, e.Body)
}

func TestHandlerClient_Track(t *testing.T) {
	h := &handlerClient{handled: make(map[dbus.ObjectPath]bool)}
	h.track("/b", true)
	h.track("/a", true)
	assert.Len(t, h.handled, 2)

	h.track("/a", false)
	assert.Equal(t, map[dbus.ObjectPath]bool{"/b": true}, h.handled)
}
