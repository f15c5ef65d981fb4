// Package twilio sends doorbell events as SMS or WhatsApp messages through
// the Twilio Messages API.
package twilio

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

const whatsappPrefix = "whatsapp:"

// Kind selects SMS or WhatsApp addressing.
type Kind int

const (
	SMS Kind = iota
	WhatsApp
)

// Channel creates one Twilio message per destination number.
type Channel struct {
	name   string
	kind   Kind
	cfg    config.TwilioConfig
	client channel.HTTPDoer
	accept channel.StatusMatcher
	logger logger.Logger
}

// New creates a Twilio channel from a validated config.
func New(name string, kind Kind, cfg config.TwilioConfig, client channel.HTTPDoer, log logger.Logger) *Channel {
	if log == nil {
		log = logger.Discard
	}
	return &Channel{
		name:   name,
		kind:   kind,
		cfg:    cfg,
		client: client,
		accept: channel.StatusOr(cfg.SuccessStatus, channel.Status(http.StatusCreated)),
		logger: log.With("channel", name),
	}
}

// Factory builds the twilio_sms or twilio_whatsapp section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	if name == config.ChannelTwilioWhatsApp {
		return New(name, WhatsApp, cfg.Channels.TwilioWhatsApp, deps.HTTP, deps.Logger), nil
	}
	return New(name, SMS, cfg.Channels.TwilioSMS, deps.HTTP, deps.Logger), nil
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send posts one message per destination number.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	endpoint := c.cfg.BaseURL + "/2010-04-01/Accounts/" + url.PathEscape(c.cfg.AccountSID) + "/Messages.json"
	from := c.address(c.cfg.FromNumber)

	return channel.SendEach(c.name, c.cfg.ToNumbers, func(to string) error {
		form := url.Values{}
		form.Set("From", from)
		form.Set("To", c.address(to))
		form.Set("Body", ev.Text)

		req := channel.NewFormRequest(http.MethodPost, endpoint, form.Encode())
		req.Username, req.Password = c.cfg.AccountSID, c.cfg.AuthToken

		target := channel.Redact(to)
		c.logger.Debug("Creating Twilio message", "to", target)
		if err := channel.Do(ctx, c.client, c.name, req, c.accept); err != nil {
			if ne, ok := errors.As(err); ok {
				ne.WithTarget(target)
			}
			return err
		}
		return nil
	})
}

func (c *Channel) address(number string) string {
	if c.kind == WhatsApp && !strings.HasPrefix(number, whatsappPrefix) {
		return whatsappPrefix + number
	}
	return number
}
