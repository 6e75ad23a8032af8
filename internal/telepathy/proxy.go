package telepathy

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// propertyTimeout bounds property reads made outside a queued command.
const propertyTimeout = 5 * time.Second

// caller is the subset of dbus.BusObject the proxies use.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// objectFunc returns the remote object at path on the dest bus name.
type objectFunc func(dest string, path dbus.ObjectPath) caller

// remote is a proxied bus object.
type remote struct {
	obj  caller
	path dbus.ObjectPath
}

func (r remote) call(ctx context.Context, method string, args ...interface{}) error {
	if err := r.obj.CallWithContext(ctx, method, 0, args...).Err; err != nil {
		return fmt.Errorf("%s on %s: %w", method, r.path, err)
	}
	return nil
}

func (r remote) callStore(ctx context.Context, method string, args []interface{}, out ...interface{}) error {
	if err := r.obj.CallWithContext(ctx, method, 0, args...).Store(out...); err != nil {
		return fmt.Errorf("%s on %s: %w", method, r.path, err)
	}
	return nil
}

func (r remote) getAll(ctx context.Context, iface string) (props, error) {
	var out map[string]dbus.Variant
	if err := r.callStore(ctx, ifaceProperties+".GetAll", []interface{}{iface}, &out); err != nil {
		return nil, err
	}
	return props(out), nil
}

func (r remote) get(ctx context.Context, iface, name string) (dbus.Variant, error) {
	var out dbus.Variant
	err := r.callStore(ctx, ifaceProperties+".Get", []interface{}{iface, name}, &out)
	return out, err
}

func (r remote) set(ctx context.Context, iface, name string, value interface{}) error {
	return r.call(ctx, ifaceProperties+".Set", iface, name, dbus.MakeVariant(value))
}

// channelBase is shared by every channel proxy.
type channelBase struct {
	remote
	router *signalRouter
	props  props
}

func (c *channelBase) ID() string { return string(c.path) }

func (c *channelBase) Close(ctx context.Context) error {
	return c.call(ctx, ifaceChannel+".Close")
}
