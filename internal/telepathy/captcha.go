package telepathy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"authhandler/internal/channel"
)

// Captcha_Status values.
const (
	captchaLocalPending  = uint32(0)
	captchaRemotePending = uint32(1)
	captchaSucceeded     = uint32(2)
	captchaTryAgain      = uint32(3)
	captchaFailed        = uint32(4)
)

// captchaInfo is the Captcha_Info struct (ussuas).
type captchaInfo struct {
	ID        uint32
	Type      string
	Label     string
	Flags     uint32
	MimeTypes []string
}

// errNoSupportedCaptcha is returned when no offered captcha is an image.
var errNoSupportedCaptcha = errors.New("no supported captcha offered")

// pickCaptcha returns the first captcha with an image representation.
func pickCaptcha(infos []captchaInfo) (captchaInfo, string, bool) {
	for _, info := range infos {
		for _, mime := range info.MimeTypes {
			if strings.HasPrefix(mime, "image/") {
				return info, mime, true
			}
		}
	}
	return captchaInfo{}, "", false
}

// captchaProxy implements channel.CaptchaChannel.
type captchaProxy struct {
	channelBase
}

func (c *captchaProxy) Kind() channel.Kind { return channel.KindCaptcha }

func (c *captchaProxy) RequestCaptcha(ctx context.Context) (channel.Captcha, error) {
	var (
		infos    []captchaInfo
		required uint32
		language string
	)
	if err := c.callStore(ctx, ifaceCaptcha+".GetCaptchas", nil, &infos, &required, &language); err != nil {
		return channel.Captcha{}, err
	}
	info, mime, ok := pickCaptcha(infos)
	if !ok {
		return channel.Captcha{}, errNoSupportedCaptcha
	}

	var image []byte
	if err := c.callStore(ctx, ifaceCaptcha+".GetCaptchaData", []interface{}{info.ID, mime}, &image); err != nil {
		return channel.Captcha{}, err
	}
	return channel.Captcha{ID: info.ID, Type: info.Type, Label: info.Label, MimeType: mime, Image: image}, nil
}

// Answer submits the answer and waits for CaptchaStatus to leave the pending states.
func (c *captchaProxy) Answer(ctx context.Context, id uint32, text string) (channel.CaptchaVerdict, error) {
	statuses := make(chan uint32, 4)
	sub := c.router.subscribe(c.path, ifaceProperties, "PropertiesChanged", func(sig *dbus.Signal) {
		var (
			iface       string
			changed     map[string]dbus.Variant
			invalidated []string
		)
		if err := dbus.Store(sig.Body, &iface, &changed, &invalidated); err != nil || iface != ifaceCaptcha {
			return
		}
		if v, ok := changed["CaptchaStatus"].Value().(uint32); ok {
			select {
			case statuses <- v:
			default:
			}
		}
	})
	defer sub.Cancel()

	if err := c.call(ctx, ifaceCaptcha+".AnswerCaptchas", map[uint32]string{id: text}); err != nil {
		return channel.CaptchaFailed, err
	}

	// The status may already have settled before the first signal.
	if v, err := c.get(ctx, ifaceCaptcha, "CaptchaStatus"); err == nil {
		if s, ok := v.Value().(uint32); ok {
			if verdict, done := captchaVerdict(s); done {
				return verdict, nil
			}
		}
	}
	for {
		select {
		case s := <-statuses:
			if verdict, done := captchaVerdict(s); done {
				return verdict, nil
			}
		case <-ctx.Done():
			return channel.CaptchaFailed, fmt.Errorf("waiting for captcha verdict on %s: %w", c.path, ctx.Err())
		}
	}
}

func captchaVerdict(status uint32) (channel.CaptchaVerdict, bool) {
	switch status {
	case captchaSucceeded:
		return channel.CaptchaAccepted, true
	case captchaTryAgain:
		return channel.CaptchaTryAgain, true
	case captchaFailed:
		return channel.CaptchaFailed, true
	default:
		return 0, false
	}
}

func (c *captchaProxy) Cancel(ctx context.Context, reason channel.CaptchaCancelReason, message string) error {
	return c.call(ctx, ifaceCaptcha+".CancelCaptcha", uint32(reason), message)
}
