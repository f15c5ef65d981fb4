package channel

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/message"
)

func TestDo(t *testing.T) {
	var gotBody, gotType, gotUser, gotPass, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotAgent = r.Header.Get("User-Agent")
		gotUser, gotPass, _ = r.BasicAuth()
		switch r.URL.Path {
		case "/created":
			w.WriteHeader(http.StatusCreated)
		case "/fail":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("  boom  "))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	req, err := NewJSONRequest("test", http.MethodPost, srv.URL+"/ok", map[string]string{"text": "hi"})
	require.NoError(t, err)
	require.NoError(t, Do(ctx, srv.Client(), "test", req, Status(http.StatusOK)))
	assert.JSONEq(t, `{"text":"hi"}`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, UserAgent, gotAgent)

	form := NewFormRequest(http.MethodPost, srv.URL+"/created", "To=1")
	form.Username, form.Password = "sid", "token"
	require.NoError(t, Do(ctx, srv.Client(), "test", form, Status(http.StatusCreated)))
	assert.Equal(t, "sid", gotUser)
	assert.Equal(t, "token", gotPass)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)

	err = Do(ctx, srv.Client(), "test", &Request{Method: http.MethodGet, URL: srv.URL + "/created"}, Status(http.StatusOK))
	require.Error(t, err)
	assert.Equal(t, errors.ErrDeliveryBadStatus, errors.CodeOf(err))

	err = Do(ctx, srv.Client(), "test", &Request{Method: http.MethodGet, URL: srv.URL + "/fail"}, Any2xx)
	ne, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, ne.StatusCode())
	assert.Equal(t, "boom", ne.Metadata["body"])
	assert.True(t, ne.IsRetryable())
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := Do(context.Background(), http.DefaultClient, "test", &Request{Method: http.MethodGet, URL: url}, Any2xx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrDeliveryTransport, errors.CodeOf(err))

	err = Do(context.Background(), http.DefaultClient, "test", &Request{Method: "BAD METHOD", URL: url}, Any2xx)
	assert.Equal(t, errors.ErrDeliveryEncoding, errors.CodeOf(err))
}

func TestNewJSONRequest_EncodingFailure(t *testing.T) {
	_, err := NewJSONRequest("test", http.MethodPost, "http://x", map[string]interface{}{"c": make(chan int)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrDeliveryEncoding, errors.CodeOf(err))
}

func TestStatusMatchers(t *testing.T) {
	assert.True(t, Any2xx(204))
	assert.False(t, Any2xx(301))
	assert.True(t, Status(201)(201))
	assert.False(t, Status(201)(200))
	assert.True(t, StatusOr(0, Status(204))(204))
	assert.True(t, StatusOr(202, Status(204))(202))
	assert.False(t, StatusOr(202, Status(204))(204))
}

func TestSendEach(t *testing.T) {
	var calls []string
	err := SendEach("pushover", []string{"a", "b", "c"}, func(r string) error {
		calls = append(calls, r)
		switch r {
		case "a":
			return errors.NewBadStatusError("", 500, "")
		case "c":
			return stderrors.New("dial tcp: refused")
		}
		return nil
	})

	assert.Equal(t, []string{"a", "b", "c"}, calls, "one failure must not stop the others")
	require.Error(t, err)

	assert.Equal(t, errors.ErrDeliveryBadStatus, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "target: a")
	assert.Contains(t, err.Error(), "channel: pushover")
	assert.Contains(t, err.Error(), "DELIVERY_TRANSPORT_FAILURE")
	assert.Contains(t, err.Error(), "target: c")

	assert.NoError(t, SendEach("x", []string{"a"}, func(string) error { return nil }))
	assert.NoError(t, SendEach("x", nil, func(string) error { return stderrors.New("never") }))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "****", Redact("abc"))
	assert.Equal(t, "uQ****x9", Redact("uQiRzpo4DXx9"))

	assert.Equal(t, "https://hooks.slack.com/****", RedactURL("https://hooks.slack.com/services/T0/B0/secret"))
	assert.Equal(t, "****", RedactURL("::nope"))
}

type nopChannel struct {
	name string
}

func (n nopChannel) Name() string { return n.name }

func (n nopChannel) Send(context.Context, *message.Event) error { return nil }

func TestClose_WithoutCloser(t *testing.T) {
	ch := nopChannel{name: "slack"}
	assert.NoError(t, ch.Send(context.Background(), message.New("hi", "", message.SourceManual)))
	assert.NoError(t, Close(ch))
}

type closingChannel struct {
	Channel
	closed bool
}

func (c *closingChannel) Close() error {
	c.closed = true
	return nil
}

func TestClose(t *testing.T) {
	c := &closingChannel{Channel: nopChannel{name: "redis"}}
	require.NoError(t, Close(c))
	assert.True(t, c.closed)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(nil)

	built := func(name string, _ *config.Config, _ Deps) (Channel, error) {
		return nopChannel{name: name}, nil
	}
	require.NoError(t, reg.Register(config.ChannelTelegram, built))
	require.NoError(t, reg.Register(config.ChannelRedis, built))
	require.NoError(t, reg.Register(config.ChannelPushover, func(string, *config.Config, Deps) (Channel, error) {
		return nil, stderrors.New("constructor failed")
	}))
	assert.Error(t, reg.Register(config.ChannelTelegram, built))
	assert.True(t, reg.Has(config.ChannelRedis))
	assert.False(t, reg.Has(config.ChannelSlack))

	cfg := config.Default()
	cfg.Channels.Redis.Enabled = true
	cfg.Channels.Telegram = config.TelegramConfig{Enabled: true, Token: "t", ChatIDs: []string{"1"}}
	cfg.Channels.Pushover = config.PushoverConfig{Enabled: true, Token: "t", UserKeys: []string{"u"}}
	cfg.Channels.TwilioSMS = config.TwilioConfig{Enabled: true}                              // invalid
	cfg.Channels.Slack = config.HookConfig{Enabled: true, WebhookURLs: []string{"http://s/x"}} // no factory

	channels, skipped := reg.Build(cfg, Deps{HTTP: http.DefaultClient})

	var names []string
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	assert.Equal(t, []string{config.ChannelTelegram, config.ChannelRedis}, names)

	var skippedNames []string
	for _, s := range skipped {
		skippedNames = append(skippedNames, s.Name)
		require.Error(t, s.Err)
	}
	assert.Equal(t, []string{config.ChannelSlack, config.ChannelTwilioSMS, config.ChannelPushover}, skippedNames)
	assert.True(t, strings.Contains(skipped[1].Err.Error(), "account_sid is required"))
}

func TestRegistry_DisabledSectionsAreNotBuilt(t *testing.T) {
	reg := NewRegistry(nil)
	var constructed []string
	require.NoError(t, reg.Register(config.ChannelRedis, func(name string, _ *config.Config, _ Deps) (Channel, error) {
		constructed = append(constructed, name)
		return nopChannel{name: name}, nil
	}))

	cfg := config.Default()
	cfg.Channels.Redis.Enabled = false

	channels, skipped := reg.Build(cfg, Deps{})
	assert.Empty(t, channels)
	assert.Empty(t, skipped)
	assert.Empty(t, constructed)
}
