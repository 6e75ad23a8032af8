package telepathy

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"authhandler/internal/channel"
	"authhandler/pkg/logging"
)

// signalConn is the part of *dbus.Conn the router needs.
type signalConn interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

type routeKey struct {
	path dbus.ObjectPath
	name string // interface.member
}

// signalRouter fans bus signals out to per-object subscribers. Handlers run
// on the router goroutine, one signal at a time.
type signalRouter struct {
	conn signalConn
	ch   chan *dbus.Signal

	mu   sync.Mutex
	next int
	subs map[routeKey]map[int]func(*dbus.Signal)

	done chan struct{}
	once sync.Once
}

func newSignalRouter(conn signalConn) *signalRouter {
	r := &signalRouter{
		conn: conn,
		ch:   make(chan *dbus.Signal, 64),
		subs: make(map[routeKey]map[int]func(*dbus.Signal)),
		done: make(chan struct{}),
	}
	conn.Signal(r.ch)
	go r.run()
	return r
}

func (r *signalRouter) run() {
	for {
		select {
		case sig, ok := <-r.ch:
			if !ok {
				return
			}
			r.dispatch(sig)
		case <-r.done:
			return
		}
	}
}

func (r *signalRouter) dispatch(sig *dbus.Signal) {
	key := routeKey{path: sig.Path, name: sig.Name}
	r.mu.Lock()
	handlers := make([]func(*dbus.Signal), 0, len(r.subs[key]))
	for _, fn := range r.subs[key] {
		handlers = append(handlers, fn)
	}
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(sig)
	}
}

// subscribe registers fn for member signals of iface emitted by path.
func (r *signalRouter) subscribe(path dbus.ObjectPath, iface, member string, fn func(*dbus.Signal)) channel.Subscription {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
	}
	if err := r.conn.AddMatchSignal(match...); err != nil {
		logging.Warn("Telepathy", "Failed to add match for %s.%s on %s: %v", iface, member, path, err)
	}

	key := routeKey{path: path, name: iface + "." + member}
	r.mu.Lock()
	id := r.next
	r.next++
	if r.subs[key] == nil {
		r.subs[key] = make(map[int]func(*dbus.Signal))
	}
	r.subs[key][id] = fn
	r.mu.Unlock()

	var once sync.Once
	return channel.SubscriptionFunc(func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs[key], id)
			if len(r.subs[key]) == 0 {
				delete(r.subs, key)
			}
			r.mu.Unlock()
			if err := r.conn.RemoveMatchSignal(match...); err != nil {
				logging.Debug("Telepathy", "Failed to remove match for %s on %s: %v", key.name, path, err)
			}
		})
	})
}

// close stops routing.
func (r *signalRouter) close() {
	r.once.Do(func() {
		r.conn.RemoveSignal(r.ch)
		close(r.done)
	})
}
