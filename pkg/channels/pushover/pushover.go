// Package pushover delivers doorbell events through the Pushover messages API.
package pushover

import (
	"context"
	"net/http"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// defaultTitle is used when the event has no title.
const defaultTitle = "Doorbell"

type payload struct {
	Token   string `json:"token"`
	User    string `json:"user"`
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}

// Channel sends one Pushover message per user key.
type Channel struct {
	name   string
	cfg    config.PushoverConfig
	client channel.HTTPDoer
	accept channel.StatusMatcher
	logger logger.Logger
}

// New creates a Pushover channel from a validated config.
func New(name string, cfg config.PushoverConfig, client channel.HTTPDoer, log logger.Logger) *Channel {
	if log == nil {
		log = logger.Discard
	}
	return &Channel{
		name:   name,
		cfg:    cfg,
		client: client,
		accept: channel.StatusOr(cfg.SuccessStatus, channel.Status(http.StatusOK)),
		logger: log.With("channel", name),
	}
}

// Factory builds the channel from the pushover section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	return New(name, cfg.Channels.Pushover, deps.HTTP, deps.Logger), nil
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send delivers ev to every user key.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	endpoint := c.cfg.BaseURL + "/1/messages.json"
	title := ev.TitleOr(defaultTitle)

	return channel.SendEach(c.name, c.cfg.UserKeys, func(user string) error {
		req, err := channel.NewJSONRequest(c.name, http.MethodPost, endpoint, payload{
			Token:   c.cfg.Token,
			User:    user,
			Message: ev.Text,
			Title:   title,
		})
		if err != nil {
			return err
		}
		target := channel.Redact(user)
		c.logger.Debug("Sending Pushover message", "user", target)
		if err := channel.Do(ctx, c.client, c.name, req, c.accept); err != nil {
			if ne, ok := errors.As(err); ok {
				ne.WithTarget(target)
			}
			return err
		}
		return nil
	})
}
