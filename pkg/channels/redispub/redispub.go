// Package redispub publishes doorbell events to a Redis pub/sub channel, for
// home-automation buses that already listen on Redis.
package redispub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// Publisher is the part of *redis.Client the channel uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Channel publishes the JSON-encoded event. Delivery succeeds once Redis
// accepts the PUBLISH, even with no subscribers.
type Channel struct {
	name   string
	topic  string
	client Publisher
	logger logger.Logger
}

// New creates a channel publishing to topic through client.
func New(name, topic string, client Publisher, log logger.Logger) *Channel {
	if log == nil {
		log = logger.Discard
	}
	return &Channel{
		name:   name,
		topic:  topic,
		client: client,
		logger: log.With("channel", name),
	}
}

// NewClient creates the Redis client for a validated config. No connection is
// made until the first publish.
func NewClient(cfg config.RedisConfig, timeout time.Duration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     1,
	})
}

// Factory builds the channel from the redis section.
func Factory(name string, cfg *config.Config, deps channel.Deps) (channel.Channel, error) {
	rc := cfg.Channels.Redis
	return New(name, rc.Channel, NewClient(rc, cfg.Dispatch.HTTPTimeout.Std()), deps.Logger), nil
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// Send publishes ev as JSON.
func (c *Channel) Send(ctx context.Context, ev *message.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.NewEncodingError(c.name, err)
	}

	receivers, err := c.client.Publish(ctx, c.topic, data).Result()
	if err != nil {
		return errors.NewTransportError(c.name, err).WithTarget(c.topic)
	}

	c.logger.Debug("Event published", "topic", c.topic, "receivers", receivers)
	return nil
}

// Close releases the Redis connection pool.
func (c *Channel) Close() error {
	return c.client.Close()
}
