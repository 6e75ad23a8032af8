package telepathy

import (
	"context"

	"github.com/godbus/dbus/v5"

	"authhandler/internal/channel"
	"authhandler/pkg/logging"
)

// saslProxy implements channel.SASLChannel.
type saslProxy struct {
	channelBase
}

func (c *saslProxy) Kind() channel.Kind { return channel.KindSASL }

func (c *saslProxy) Properties(ctx context.Context) (channel.SASLProperties, error) {
	p, err := c.getAll(ctx, ifaceSASL)
	if err != nil {
		return channel.SASLProperties{}, err
	}
	details, _ := p["SASLErrorDetails"].Value().(map[string]dbus.Variant)
	canTryAgain := p.bool("CanTryAgain")
	return channel.SASLProperties{
		AvailableMechanisms: p.strings("AvailableMechanisms"),
		Status: channel.StatusEvent{
			Status:      channel.SASLStatus(p.uint32("SASLStatus")),
			Reason:      p.string("SASLError"),
			Details:     stringDetails(details),
			CanTryAgain: canTryAgain,
		},
		CanTryAgain:     canTryAgain,
		DefaultUsername: p.string("DefaultUsername"),
		MaySaveResponse: p.bool("MaySaveResponse"),
	}, nil
}

// SubscribeStatus delivers SASLStatusChanged with the CanTryAgain value read
// when the signal arrived.
func (c *saslProxy) SubscribeStatus(handler func(channel.StatusEvent)) channel.Subscription {
	return c.router.subscribe(c.path, ifaceSASL, "SASLStatusChanged", func(sig *dbus.Signal) {
		var (
			status  uint32
			reason  string
			details map[string]dbus.Variant
		)
		if err := dbus.Store(sig.Body, &status, &reason, &details); err != nil {
			logging.Warn("Telepathy", "Malformed SASLStatusChanged on %s: %v", c.path, err)
			return
		}
		ev := channel.StatusEvent{
			Status:  channel.SASLStatus(status),
			Reason:  reason,
			Details: stringDetails(details),
		}
		if ev.Status == channel.StatusServerFailed {
			ctx, cancel := context.WithTimeout(context.Background(), propertyTimeout)
			v, err := c.get(ctx, ifaceSASL, "CanTryAgain")
			cancel()
			if err != nil {
				logging.Debug("Telepathy", "Failed to read CanTryAgain on %s: %v", c.path, err)
			}
			ev.CanTryAgain, _ = v.Value().(bool)
		}
		handler(ev)
	})
}

func (c *saslProxy) SubscribeChallenge(handler func([]byte)) channel.Subscription {
	return c.router.subscribe(c.path, ifaceSASL, "NewChallenge", func(sig *dbus.Signal) {
		var challenge []byte
		if err := dbus.Store(sig.Body, &challenge); err != nil {
			logging.Warn("Telepathy", "Malformed NewChallenge on %s: %v", c.path, err)
			return
		}
		handler(challenge)
	})
}

func (c *saslProxy) StartMechanism(ctx context.Context, mechanism string) error {
	return c.call(ctx, ifaceSASL+".StartMechanism", mechanism)
}

func (c *saslProxy) StartMechanismWithData(ctx context.Context, mechanism string, data []byte) error {
	return c.call(ctx, ifaceSASL+".StartMechanismWithData", mechanism, data)
}

func (c *saslProxy) Respond(ctx context.Context, response []byte) error {
	return c.call(ctx, ifaceSASL+".Respond", response)
}

func (c *saslProxy) AcceptSASL(ctx context.Context) error {
	return c.call(ctx, ifaceSASL+".AcceptSASL")
}

func (c *saslProxy) AbortSASL(ctx context.Context, reason channel.AbortReason, message string) error {
	return c.call(ctx, ifaceSASL+".AbortSASL", uint32(reason), message)
}
