package telepathy

import (
	"context"

	"authhandler/internal/channel"
)

// roomProxy implements channel.RoomPasswordChannel for an observed text channel.
type roomProxy struct {
	channelBase
}

func (c *roomProxy) Kind() channel.Kind { return channel.KindRoomPassword }

func (c *roomProxy) TargetID() string { return c.props.string(propTargetID) }

func (c *roomProxy) PasswordFlags(ctx context.Context) (channel.PasswordFlags, error) {
	var flags uint32
	err := c.callStore(ctx, ifacePassword+".GetPasswordFlags", nil, &flags)
	return channel.PasswordFlags(flags), err
}

func (c *roomProxy) ProvidePassword(ctx context.Context, password string) (bool, error) {
	var ok bool
	err := c.callStore(ctx, ifacePassword+".ProvidePassword", []interface{}{password}, &ok)
	return ok, err
}
