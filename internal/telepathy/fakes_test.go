package telepathy

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// fakeCall is one recorded method call on a fakeObject.
type fakeCall struct {
	Method string
	Args   []interface{}
}

// fakeObject answers method calls from canned replies.
type fakeObject struct {
	mu      sync.Mutex
	calls   []fakeCall
	replies map[string]func(args []interface{}) ([]interface{}, error)
}

func newFakeObject() *fakeObject {
	return &fakeObject{replies: make(map[string]func([]interface{}) ([]interface{}, error))}
}

func (o *fakeObject) on(method string, fn func(args []interface{}) ([]interface{}, error)) *fakeObject {
	o.mu.Lock()
	o.replies[method] = fn
	o.mu.Unlock()
	return o
}

func (o *fakeObject) reply(method string, body ...interface{}) *fakeObject {
	return o.on(method, func([]interface{}) ([]interface{}, error) { return body, nil })
}

// properties serves GetAll and Get for one interface.
func (o *fakeObject) properties(iface string, values map[string]dbus.Variant) *fakeObject {
	o.mu.Lock()
	defer o.mu.Unlock()
	prevAll := o.replies[ifaceProperties+".GetAll"]
	o.replies[ifaceProperties+".GetAll"] = func(args []interface{}) ([]interface{}, error) {
		if args[0] == iface {
			return []interface{}{values}, nil
		}
		if prevAll != nil {
			return prevAll(args)
		}
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", nil)
	}
	prevGet := o.replies[ifaceProperties+".Get"]
	o.replies[ifaceProperties+".Get"] = func(args []interface{}) ([]interface{}, error) {
		if args[0] == iface {
			if v, ok := values[args[1].(string)]; ok {
				return []interface{}{v}, nil
			}
		}
		if prevGet != nil {
			return prevGet(args)
		}
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", nil)
	}
	return o
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	o.mu.Lock()
	o.calls = append(o.calls, fakeCall{Method: method, Args: args})
	fn := o.replies[method]
	o.mu.Unlock()

	if fn == nil {
		return &dbus.Call{Method: method, Args: args}
	}
	body, err := fn(args)
	return &dbus.Call{Method: method, Args: args, Body: body, Err: err}
}

func (o *fakeObject) Calls() []fakeCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]fakeCall(nil), o.calls...)
}

// called returns the calls of one method.
func (o *fakeObject) called(method string) []fakeCall {
	var out []fakeCall
	for _, c := range o.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// fakeBus hands out fake objects by bus name and path.
type fakeBus struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
}

func newFakeBus() *fakeBus {
	return &fakeBus{objects: make(map[string]*fakeObject)}
}

func (b *fakeBus) object(dest string, path dbus.ObjectPath) *fakeObject {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := fmt.Sprintf("%s %s", dest, path)
	o, ok := b.objects[key]
	if !ok {
		o = newFakeObject()
		b.objects[key] = o
	}
	return o
}

func (b *fakeBus) objectFunc() objectFunc {
	return func(dest string, path dbus.ObjectPath) caller { return b.object(dest, path) }
}

// fakeSignalConn feeds signals to a router.
type fakeSignalConn struct {
	mu      sync.Mutex
	ch      chan<- *dbus.Signal
	matches int
	removed int
	failAdd error
}

func (c *fakeSignalConn) AddMatchSignal(options ...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAdd != nil {
		return c.failAdd
	}
	c.matches++
	return nil
}

func (c *fakeSignalConn) RemoveMatchSignal(options ...dbus.MatchOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches--
	return nil
}

func (c *fakeSignalConn) Signal(ch chan<- *dbus.Signal) {
	c.mu.Lock()
	c.ch = ch
	c.mu.Unlock()
}

func (c *fakeSignalConn) RemoveSignal(ch chan<- *dbus.Signal) {
	c.mu.Lock()
	c.removed++
	c.mu.Unlock()
}

func (c *fakeSignalConn) Matches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matches
}

func (c *fakeSignalConn) emit(path dbus.ObjectPath, name string, body ...interface{}) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	ch <- &dbus.Signal{Path: path, Name: name, Body: body}
}
