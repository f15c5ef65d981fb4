// Package telegram delivers doorbell events through the Telegram Bot API.
package telegram

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// Channel sends one sendMessage call per chat id.
type Channel struct {
	name   string
	cfg    config.TelegramConfig
	client channel.HTTPDoer
	accept channel.StatusMatcher
	logger logger.Logger
}

// sendMessagePayload is the JSON body of a sendMessage call.
type sendMessagePayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// New creates a Telegram channel from a validated config.
func New(name string, cfg config.TelegramConfig, client channel.HTTPDoer, log logger.Logger) *Channel {
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

// Factory builds the channel from the telegram config section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	return New(name, cfg.Channels.Telegram, deps.HTTP, deps.Logger), nil
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send delivers ev.Text to every configured chat.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	return channel.SendEach(c.name, c.cfg.ChatIDs, func(chatID string) error {
		c.logger.Debug("Sending Telegram message", "chat_id", chatID, "method", c.cfg.Method)
		req, err := c.request(chatID, ev.Text)
		if err != nil {
			return err
		}
		return channel.Do(ctx, c.client, c.name, req, c.accept)
	})
}

func (c *Channel) request(chatID, text string) (*channel.Request, error) {
	endpoint := c.cfg.BaseURL + "/bot" + c.cfg.Token + "/sendMessage"

	if c.cfg.Method == "get" {
		q := url.Values{}
		q.Set("chat_id", chatID)
		q.Set("text", text)
		return &channel.Request{Method: http.MethodGet, URL: endpoint + "?" + q.Encode()}, nil
	}
	return channel.NewJSONRequest(c.name, http.MethodPost, endpoint, sendMessagePayload{ChatID: chatID, Text: text})
}
