// Package webhook delivers doorbell events to incoming-webhook endpoints:
// Slack, Discord and generic JSON receivers.
package webhook

import (
	"context"
	"net/http"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// Flavor selects the payload shape and default success status.
type Flavor struct {
	// Field is the JSON key holding the message text.
	Field  string
	Accept channel.StatusMatcher
}

var (
	// Slack incoming webhooks take {"text": ...} and answer 200.
	Slack = Flavor{Field: "text", Accept: channel.Status(http.StatusOK)}
	// Discord webhooks take {"content": ...} and answer 204.
	Discord = Flavor{Field: "content", Accept: channel.Status(http.StatusNoContent)}
)

// Generic returns a flavor posting {field: text} and accepting any 2xx.
func Generic(field string) Flavor {
	if field == "" {
		field = "text"
	}
	return Flavor{Field: field, Accept: channel.Any2xx}
}

// Channel posts one JSON document per URL.
type Channel struct {
	name    string
	urls    []string
	flavor  Flavor
	headers map[string]string
	client  channel.HTTPDoer
	logger  logger.Logger
}

// New creates a webhook channel.
func New(name string, urls []string, flavor Flavor, headers map[string]string, client channel.HTTPDoer, log logger.Logger) *Channel {
	if log == nil {
		log = logger.Discard
	}
	return &Channel{
		name:    name,
		urls:    urls,
		flavor:  flavor,
		headers: headers,
		client:  client,
		logger:  log.With("channel", name),
	}
}

// Factory builds the slack, discord or webhook section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	switch name {
	case config.ChannelSlack:
		hc := cfg.Channels.Slack
		f := Slack
		f.Accept = channel.StatusOr(hc.SuccessStatus, f.Accept)
		return New(name, hc.WebhookURLs, f, nil, deps.HTTP, deps.Logger), nil
	case config.ChannelDiscord:
		hc := cfg.Channels.Discord
		f := Discord
		f.Accept = channel.StatusOr(hc.SuccessStatus, f.Accept)
		return New(name, hc.WebhookURLs, f, nil, deps.HTTP, deps.Logger), nil
	default:
		wc := cfg.Channels.Webhook
		f := Generic(wc.Field)
		f.Accept = channel.StatusOr(wc.SuccessStatus, f.Accept)
		return New(name, wc.URLs, f, wc.Headers, deps.HTTP, deps.Logger), nil
	}
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send posts ev.Text to every URL.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	payload := map[string]string{c.flavor.Field: ev.Text}

	return channel.SendEach(c.name, c.urls, func(u string) error {
		req, err := channel.NewJSONRequest(c.name, http.MethodPost, u, payload)
		if err != nil {
			return err
		}
		if len(c.headers) > 0 {
			req.Header = make(http.Header, len(c.headers))
			for k, v := range c.headers {
				req.Header.Set(k, v)
			}
		}
		target := channel.RedactURL(u)
		c.logger.Debug("Posting webhook", "target", target, "field", c.flavor.Field)
		if err := channel.Do(ctx, c.client, c.name, req, c.flavor.Accept); err != nil {
			if ne, ok := errors.As(err); ok {
				ne.WithTarget(target)
			}
			return err
		}
		return nil
	})
}
