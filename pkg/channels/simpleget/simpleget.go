// Package simpleget notifies a LAN endpoint with a single GET request whose
// query string carries the message.
package simpleget

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// Channel calls <protocol>://<host>[:port]/<path>?payload=..&title=..&tema=..
type Channel struct {
	name   string
	cfg    config.SimpleGetConfig
	client channel.HTTPDoer
	accept channel.StatusMatcher
	logger logger.Logger
}

// New creates a SimpleGet channel from a validated config.
func New(name string, cfg config.SimpleGetConfig, client channel.HTTPDoer, log logger.Logger) *Channel {
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

// Factory builds the channel from the simple_get section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	return New(name, cfg.Channels.SimpleGet, deps.HTTP, deps.Logger), nil
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send performs the GET request.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	req := &channel.Request{Method: http.MethodGet, URL: c.endpoint(ev)}
	return channel.SendEach(c.name, []string{c.cfg.Host}, func(host string) error {
		c.logger.Debug("Calling endpoint", "host", host)
		return channel.Do(ctx, c.client, c.name, req, c.accept)
	})
}

func (c *Channel) endpoint(ev *message.Event) string {
	host := c.cfg.Host
	if c.cfg.Port > 0 {
		host = net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	}

	q := url.Values{}
	q.Set("payload", ev.Text)
	if title := firstNonEmpty(c.cfg.Title, ev.Title); title != "" {
		q.Set("title", title)
	}
	if c.cfg.Subject != "" {
		q.Set("tema", c.cfg.Subject)
	}

	u := url.URL{
		Scheme:   c.cfg.Protocol,
		Host:     host,
		Path:     "/" + strings.TrimLeft(c.cfg.Path, "/"),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
