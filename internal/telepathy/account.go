package telepathy

import (
	"context"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// presence is the Telepathy Simple_Presence struct (uss).
type presence struct {
	Type          uint32
	Status        string
	StatusMessage string
}

// accountProxy implements channel.Account for an account manager account.
type accountProxy struct {
	remote
	id          string
	displayName string
	identity    string
}

// newAccountProxy reads the account's display name and SSO storage identity.
func newAccountProxy(ctx context.Context, objects objectFunc, path dbus.ObjectPath) (*accountProxy, error) {
	a := &accountProxy{
		remote: remote{obj: objects(accountManagerBus, path), path: path},
		id:     strings.TrimPrefix(string(path), accountPathPrefix),
	}
	p, err := a.getAll(ctx, ifaceAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", a.id, err)
	}
	a.displayName = p.string("DisplayName")

	// Accounts without the storage interface are not SSO managed.
	if storage, err := a.getAll(ctx, ifaceAccountStorage); err == nil {
		a.identity = storageIdentity(storage)
	}
	return a, nil
}

// storageIdentity returns the credentials identity of an externally stored
// account, or "" when the account manager stores it itself.
func storageIdentity(p props) string {
	if p.string("StorageProvider") == "" {
		return ""
	}
	v, ok := p["StorageIdentifier"]
	if !ok {
		return ""
	}
	// The identifier is a variant; SSO providers use an unsigned id.
	switch id := v.Value().(type) {
	case dbus.Variant:
		return fmt.Sprint(id.Value())
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func (a *accountProxy) ID() string          { return a.id }
func (a *accountProxy) DisplayName() string { return a.displayName }
func (a *accountProxy) SSOIdentity() string { return a.identity }

// Reconnect re-requests the current presence so the connection manager
// brings the account back online with a fresh connection.
func (a *accountProxy) Reconnect(ctx context.Context) error {
	v, err := a.get(ctx, ifaceAccount, "CurrentPresence")
	if err != nil {
		return err
	}
	var current presence
	if err := dbus.Store([]interface{}{v.Value()}, &current); err != nil {
		return fmt.Errorf("unexpected CurrentPresence on %s: %w", a.id, err)
	}
	return a.set(ctx, ifaceAccount, "RequestedPresence", current)
}
