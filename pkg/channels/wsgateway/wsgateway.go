// Package wsgateway pushes doorbell events to a websocket gateway. Each event
// opens a connection, writes one JSON frame and closes it again, so nothing is
// held open between presses.
package wsgateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// Frame is the message written to the gateway.
type Frame struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
	TS    int64  `json:"ts"`
}

// Channel dials the gateway for every event.
type Channel struct {
	name   string
	url    string
	token  string
	dialer *websocket.Dialer
	logger logger.Logger
}

// New creates a gateway channel.
func New(name, url, token string, handshakeTimeout time.Duration, log logger.Logger) *Channel {
	if log == nil {
		log = logger.Discard
	}
	return &Channel{
		name:  name,
		url:   url,
		token: token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: log.With("channel", name),
	}
}

// Factory builds the channel from the websocket section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	wc := cfg.Channels.Websocket
	return New(name, wc.URL, wc.Token, wc.HandshakeTimeout.Std(), deps.Logger), nil
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send writes one frame for ev and closes the connection.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return errors.NewBadStatusError(c.name, resp.StatusCode, "").WithCause(err)
		}
		return errors.NewTransportError(c.name, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	frame := Frame{
		Type:  "doorbell",
		ID:    ev.ID,
		Text:  ev.Text,
		Title: ev.Title,
		TS:    ev.CreatedAt.UnixMilli(),
	}
	if err := conn.WriteJSON(frame); err != nil {
		return errors.NewTransportError(c.name, err)
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)); err != nil {
		c.logger.Debug("Close handshake failed", "error", err)
	}

	c.logger.Debug("Frame delivered", "id", ev.ID)
	return nil
}
