package redispub

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/message"
)

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
	closed  bool
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, msg interface{}) *redis.IntCmd {
	f.topic = topic
	f.payload, _ = msg.([]byte)
	cmd := redis.NewIntCmd(ctx, "publish", topic, msg)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestSend(t *testing.T) {
	pub := &fakePublisher{}
	ch := New("redis", "porch", pub, nil)

	ev := message.New("¡Sonó el timbre!", "¡Timbre!", message.SourceEdge)
	require.NoError(t, ch.Send(context.Background(), ev))

	assert.Equal(t, "porch", pub.topic)
	var got message.Event
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Text, got.Text)
	assert.Equal(t, message.SourceEdge, got.Source)

	require.NoError(t, channel.Close(ch))
	assert.True(t, pub.closed)
}

func TestSend_PublishError(t *testing.T) {
	pub := &fakePublisher{err: stderrors.New("dial tcp 127.0.0.1:6379: connection refused")}
	ch := New("redis", "porch", pub, nil)

	err := ch.Send(context.Background(), message.New("ding", "", message.SourcePoll))
	require.Error(t, err)

	ne, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrDeliveryTransport, ne.Code)
	assert.Equal(t, "porch", ne.Target)
	assert.True(t, ne.IsRetryable())
}

func TestFactory(t *testing.T) {
	cfg := config.Default()
	cfg.Channels.Redis.Enabled = true
	require.NoError(t, cfg.ValidateChannel(config.ChannelRedis))

	ch, err := Factory(config.ChannelRedis, cfg, channel.Deps{})
	require.NoError(t, err)
	defer func() { _ = channel.Close(ch) }()

	rc, ok := ch.(*Channel)
	require.True(t, ok)
	assert.Equal(t, "doorbell", rc.topic)

	client, ok := rc.client.(*redis.Client)
	require.True(t, ok)
	assert.Equal(t, "localhost:6379", client.Options().Addr)
	assert.Equal(t, 10*time.Second, client.Options().DialTimeout)
}
