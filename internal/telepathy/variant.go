package telepathy

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// props is an a{sv} property map with typed accessors. Missing or mistyped
// values yield the zero value.
type props map[string]dbus.Variant

func (p props) string(key string) string {
	v, _ := p[key].Value().(string)
	return v
}

func (p props) bool(key string) bool {
	v, _ := p[key].Value().(bool)
	return v
}

func (p props) uint32(key string) uint32 {
	v, _ := p[key].Value().(uint32)
	return v
}

func (p props) strings(key string) []string {
	v, _ := p[key].Value().([]string)
	return v
}

func (p props) path(key string) dbus.ObjectPath {
	v, _ := p[key].Value().(dbus.ObjectPath)
	return v
}

func (p props) has(key, value string) bool {
	for _, s := range p.strings(key) {
		if s == value {
			return true
		}
	}
	return false
}

// stringDetails flattens an a{sv} detail map for logging and messages.
func stringDetails(in map[string]dbus.Variant) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.Value().(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v.Value())
	}
	return out
}

// connectionBusName derives a connection's well-known name from its object path.
func connectionBusName(path dbus.ObjectPath) string {
	return strings.ReplaceAll(strings.TrimPrefix(string(path), "/"), "/", ".")
}
