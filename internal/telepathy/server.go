package telepathy

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"authhandler/internal/auth"
	"authhandler/internal/channel"
	"authhandler/internal/loop"
	"authhandler/pkg/logging"
)

// Options selects the clients to register.
type Options struct {
	SASL       bool
	TLS        bool
	Captcha    bool
	Conference bool
}

// Server owns the exported clients and routes dispatched channels to the registry.
type Server struct {
	conn     *dbus.Conn
	loop     *loop.Loop
	registry *auth.Registry
	objects  objectFunc
	router   *signalRouter

	handlers map[channel.Kind]*handlerClient
	names    []string
}

// NewServer creates a server on conn. Call Register to claim the bus names.
func NewServer(conn *dbus.Conn, l *loop.Loop, registry *auth.Registry) *Server {
	s := newServer(func(dest string, path dbus.ObjectPath) caller {
		return conn.Object(dest, path)
	}, newSignalRouter(conn), l, registry)
	s.conn = conn
	return s
}

func newServer(objects objectFunc, router *signalRouter, l *loop.Loop, registry *auth.Registry) *Server {
	s := &Server{
		loop:     l,
		registry: registry,
		objects:  objects,
		router:   router,
		handlers: make(map[channel.Kind]*handlerClient),
	}
	registry.OnFinished = s.sessionFinished
	return s
}

// Register exports and names the enabled clients. It returns how many were
// registered; a client whose name is taken is skipped with a warning.
func (s *Server) Register(opts Options) (int, error) {
	if s.conn == nil {
		return 0, fmt.Errorf("no bus connection")
	}
	wanted := []struct {
		enabled bool
		name    string
		kind    channel.Kind
	}{
		{opts.SASL, ClientSASLHandler, channel.KindSASL},
		{opts.TLS, ClientTLSHandler, channel.KindTLS},
		{opts.Captcha, ClientCaptchaHandler, channel.KindCaptcha},
		{opts.Conference, ClientConfAuthObserver, channel.KindRoomPassword},
	}

	for _, w := range wanted {
		if !w.enabled {
			continue
		}
		var err error
		if w.kind == channel.KindRoomPassword {
			err = s.exportObserver(w.name)
		} else {
			err = s.exportHandler(w.name, w.kind)
		}
		if err != nil {
			logging.Error("Telepathy", err, "Failed to export %s", w.name)
			continue
		}

		busName := clientBusPrefix + w.name
		reply, err := s.conn.RequestName(busName, dbus.NameFlagDoNotQueue)
		if err != nil {
			return len(s.names), fmt.Errorf("failed to request %s: %w", busName, err)
		}
		if reply != dbus.RequestNameReplyPrimaryOwner {
			logging.Warn("Telepathy", "%s is already registered by another process", busName)
			continue
		}
		s.names = append(s.names, busName)
		logging.Info("Telepathy", "Registered %s", busName)
	}
	return len(s.names), nil
}

func clientPath(name string) dbus.ObjectPath {
	return dbus.ObjectPath(clientPathPrefix + strings.ReplaceAll(name, ".", "/"))
}

func (s *Server) exportHandler(name string, kind channel.Kind) error {
	path := clientPath(name)
	h := &handlerClient{srv: s, name: name, kind: kind, handled: make(map[dbus.ObjectPath]bool)}
	if err := s.conn.Export(h, path, ifaceClientHandler); err != nil {
		return err
	}

	exported, err := prop.Export(s.conn, path, prop.Map{
		ifaceClient: {
			"Interfaces": {Value: []string{ifaceClientHandler}, Emit: prop.EmitConst},
		},
		ifaceClientHandler: {
			"HandlerChannelFilter": {Value: channelFilter(kind), Emit: prop.EmitConst},
			"BypassApproval":       {Value: true, Emit: prop.EmitConst},
			"Capabilities":         {Value: []string{}, Emit: prop.EmitConst},
			"HandledChannels":      {Value: []dbus.ObjectPath{}, Emit: prop.EmitTrue},
		},
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.props = exported
	h.mu.Unlock()
	s.handlers[kind] = h

	return s.exportIntrospection(path, exported, ifaceClientHandler, introspect.Methods(h))
}

func (s *Server) exportObserver(name string) error {
	path := clientPath(name)
	o := &observerClient{srv: s, name: name}
	if err := s.conn.Export(o, path, ifaceClientObserver); err != nil {
		return err
	}

	exported, err := prop.Export(s.conn, path, prop.Map{
		ifaceClient: {
			"Interfaces": {Value: []string{ifaceClientObserver}, Emit: prop.EmitConst},
		},
		ifaceClientObserver: {
			"ObserverChannelFilter": {Value: channelFilter(channel.KindRoomPassword), Emit: prop.EmitConst},
			"Recover":               {Value: false, Emit: prop.EmitConst},
			"DelayApprovers":        {Value: false, Emit: prop.EmitConst},
		},
	})
	if err != nil {
		return err
	}
	return s.exportIntrospection(path, exported, ifaceClientObserver, introspect.Methods(o))
}

func (s *Server) exportIntrospection(path dbus.ObjectPath, exported *prop.Properties, iface string, methods []introspect.Method) error {
	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{Name: ifaceClient, Properties: exported.Introspection(ifaceClient)},
			{Name: iface, Methods: methods, Properties: exported.Introspection(iface)},
		},
	}
	return s.conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable")
}

// dispatch wraps one channel and hands it to the registry on the loop. It
// returns when the registry has taken the channel or given up on it.
func (s *Server) dispatch(ctx context.Context, kind channel.Kind, accountPath, connPath dbus.ObjectPath, entry channelEntry) error {
	account, err := newAccountProxy(ctx, s.objects, accountPath)
	if err != nil {
		return err
	}

	p := props(entry.Props)
	base := channelBase{
		remote: remote{obj: s.objects(connectionBusName(connPath), entry.Path), path: entry.Path},
		router: s.router,
		props:  p,
	}
	inv := newInvocation()

	var handle func() error
	switch kind {
	case channel.KindSASL:
		ch := &saslProxy{channelBase: base}
		handle = func() error { return s.registry.HandleSASL(ch, account, inv) }
	case channel.KindTLS:
		ch := &tlsProxy{channelBase: base}
		if certPath := p.path(propServerCert); certPath != "" {
			ch.cert = remote{obj: s.objects(connectionBusName(connPath), certPath), path: certPath}
		}
		handle = func() error { return s.registry.HandleTLS(ch, account, inv) }
	case channel.KindCaptcha:
		ch := &captchaProxy{channelBase: base}
		handle = func() error { return s.registry.HandleCaptcha(ch, account, inv) }
	case channel.KindRoomPassword:
		ch := &roomProxy{channelBase: base}
		handle = func() error { return s.registry.ObserveRoom(ch, account, inv) }
	default:
		return fmt.Errorf("unsupported channel kind %s", kind)
	}

	// The registry resolves inv itself, also when it refuses the channel.
	s.loop.Post(func() { _ = handle() })
	return inv.wait(ctx)
}

// sessionFinished runs on the loop.
func (s *Server) sessionFinished(sess *auth.Session) {
	for _, h := range s.handlers {
		h.mu.Lock()
		_, ok := h.handled[dbus.ObjectPath(sess.ChannelID())]
		h.mu.Unlock()
		if ok {
			h.track(dbus.ObjectPath(sess.ChannelID()), false)
		}
	}
}

// Close releases the bus names and stops signal routing.
func (s *Server) Close() {
	for _, name := range s.names {
		if s.conn == nil {
			break
		}
		if _, err := s.conn.ReleaseName(name); err != nil {
			logging.Debug("Telepathy", "Failed to release %s: %v", name, err)
		}
	}
	s.names = nil
	if s.router != nil {
		s.router.close()
	}
}
