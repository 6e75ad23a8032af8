package telepathy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"authhandler/internal/auth"
	"authhandler/internal/channel"
	"authhandler/pkg/logging"
)

// handleTimeout bounds how long HandleChannels waits for the registry.
const handleTimeout = 2 * time.Minute

// channelEntry is one (oa{sv}) entry of a channel list.
type channelEntry struct {
	Path  dbus.ObjectPath
	Props map[string]dbus.Variant
}

// channelKind classifies a dispatched channel from its immutable properties.
func channelKind(p props) channel.Kind {
	switch p.string(propChannelType) {
	case typeServerAuth:
		switch p.string(propAuthMethod) {
		case ifaceSASL:
			return channel.KindSASL
		case ifaceCaptcha:
			return channel.KindCaptcha
		}
	case typeServerTLS:
		return channel.KindTLS
	case typeText:
		if p.uint32(propTargetHandleType) == handleTypeRoom && p.has(propInterfaces, ifacePassword) {
			return channel.KindRoomPassword
		}
	}
	return channel.KindUnknown
}

// channelFilter returns the dispatcher filter for a client kind.
func channelFilter(kind channel.Kind) []map[string]dbus.Variant {
	switch kind {
	case channel.KindSASL, channel.KindCaptcha:
		method := ifaceSASL
		if kind == channel.KindCaptcha {
			method = ifaceCaptcha
		}
		return []map[string]dbus.Variant{{
			propChannelType: dbus.MakeVariant(typeServerAuth),
			propAuthMethod:  dbus.MakeVariant(method),
		}}
	case channel.KindTLS:
		return []map[string]dbus.Variant{{
			propChannelType: dbus.MakeVariant(typeServerTLS),
		}}
	case channel.KindRoomPassword:
		return []map[string]dbus.Variant{{
			propChannelType:      dbus.MakeVariant(typeText),
			propTargetHandleType: dbus.MakeVariant(handleTypeRoom),
		}}
	}
	return nil
}

// invocation blocks a bus call until the registry resolves it.
type invocation struct {
	once sync.Once
	done chan error
}

func newInvocation() *invocation {
	return &invocation{done: make(chan error, 1)}
}

func (i *invocation) Resolve(err error) {
	i.once.Do(func() { i.done <- err })
}

func (i *invocation) wait(ctx context.Context) error {
	select {
	case err := <-i.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func dbusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name := auth.ErrorName(err)
	if name == "" {
		name = errorNotAvailable
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}

// handlerClient is an exported Client.Handler for one channel kind.
type handlerClient struct {
	srv  *Server
	name string
	kind channel.Kind

	mu      sync.Mutex
	handled map[dbus.ObjectPath]bool
	props   *prop.Properties
}

// HandleChannels is called by the channel dispatcher.
func (h *handlerClient) HandleChannels(account, connection dbus.ObjectPath, channels []channelEntry,
	requestsSatisfied []dbus.ObjectPath, userActionTime uint64, handlerInfo map[string]dbus.Variant) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	var first error
	for _, entry := range channels {
		if kind := channelKind(props(entry.Props)); kind != h.kind {
			logging.Warn("Telepathy", "%s ignoring channel %s of kind %s", h.name, entry.Path, kind)
			continue
		}
		h.track(entry.Path, true)
		if err := h.srv.dispatch(ctx, h.kind, account, connection, entry); err != nil {
			logging.Warn("Telepathy", "%s could not handle %s: %v", h.name, entry.Path, err)
			h.track(entry.Path, false)
			if first == nil {
				first = err
			}
		}
	}
	return dbusError(first)
}

func (h *handlerClient) track(path dbus.ObjectPath, add bool) {
	h.mu.Lock()
	if add {
		h.handled[path] = true
	} else {
		delete(h.handled, path)
	}
	list := make([]dbus.ObjectPath, 0, len(h.handled))
	for p := range h.handled {
		list = append(list, p)
	}
	exported := h.props
	h.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	if exported != nil {
		exported.SetMust(ifaceClientHandler, "HandledChannels", list)
	}
}

// observerClient is the exported Client.Observer for chat rooms.
type observerClient struct {
	srv  *Server
	name string
}

// ObserveChannels is called by the channel dispatcher. Observers must not
// delay dispatching, so rooms are handled after returning.
func (o *observerClient) ObserveChannels(account, connection dbus.ObjectPath, channels []channelEntry,
	dispatchOperation dbus.ObjectPath, requestsSatisfied []dbus.ObjectPath, observerInfo map[string]dbus.Variant) *dbus.Error {
	for _, entry := range channels {
		if channelKind(props(entry.Props)) != channel.KindRoomPassword {
			continue
		}
		entry := entry
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
			defer cancel()
			if err := o.srv.dispatch(ctx, channel.KindRoomPassword, account, connection, entry); err != nil {
				logging.Warn("Telepathy", "%s could not observe %s: %v", o.name, entry.Path, err)
			}
		}()
	}
	return nil
}
