// Package notify tells the user about authentication failures they did not
// cause by cancelling.
package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"authhandler/pkg/logging"
	"authhandler/pkg/strings"
)

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"

	appName = "authhandler"
	appIcon = "dialog-password"
	// expireDefault lets the notification server pick the timeout.
	expireDefault = int32(-1)
)

// Notifier reports authentication errors to the user.
type Notifier interface {
	AuthenticationFailed(ctx context.Context, accountName, message string) error
}

// caller is the subset of dbus.BusObject used to send notifications.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBusNotifier sends desktop notifications over the session bus.
type DBusNotifier struct {
	obj caller
}

// NewDBusNotifier creates a notifier using conn.
func NewDBusNotifier(conn *dbus.Conn) *DBusNotifier {
	return &DBusNotifier{obj: conn.Object(notificationsDest, dbus.ObjectPath(notificationsPath))}
}

// AuthenticationFailed shows a notification naming the account.
func (n *DBusNotifier) AuthenticationFailed(ctx context.Context, accountName, message string) error {
	summary := "Authentication error"
	if accountName != "" {
		summary = fmt.Sprintf("Authentication error for %s", accountName)
	}
	hints := map[string]dbus.Variant{
		"category": dbus.MakeVariant("network.error"),
		"urgency":  dbus.MakeVariant(byte(1)),
	}

	body := strings.OneLine(message, strings.NotificationMaxLen)
	call := n.obj.CallWithContext(ctx, notificationsIface+".Notify", 0,
		appName, uint32(0), appIcon, summary, body, []string{}, hints, expireDefault)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	return nil
}

// LogNotifier only logs. It is used when no session bus is available.
type LogNotifier struct{}

// AuthenticationFailed logs the failure.
func (LogNotifier) AuthenticationFailed(_ context.Context, accountName, message string) error {
	logging.Warn("Notify", "Authentication error for %s: %s", accountName, message)
	return nil
}
