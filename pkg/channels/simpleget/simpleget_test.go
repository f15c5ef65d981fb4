package simpleget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/message"
)

func newChannel(t *testing.T, status int, mutate func(*config.SimpleGetConfig)) (*Channel, *[]*http.Request) {
	t.Helper()
	var got []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Channels.SimpleGet = config.SimpleGetConfig{
		Enabled: true,
		Host:    u.Hostname(),
		Port:    port,
		Path:    "notify",
	}
	if mutate != nil {
		mutate(&cfg.Channels.SimpleGet)
	}
	require.NoError(t, cfg.ValidateChannel(config.ChannelSimpleGet))

	ch, err := Factory(config.ChannelSimpleGet, cfg, channel.Deps{HTTP: srv.Client()})
	require.NoError(t, err)
	return ch.(*Channel), &got
}

func TestSend_PercentEncodingRoundTrip(t *testing.T) {
	ch, got := newChannel(t, http.StatusOK, func(c *config.SimpleGetConfig) {
		c.Title = "Timbre & Puerta"
		c.Subject = "casa/entrada"
	})

	require.NoError(t, ch.Send(context.Background(), message.New("Ding! ¿Quién es?", "", message.SourceManual)))

	require.Len(t, *got, 1)
	r := (*got)[0]
	assert.Equal(t, http.MethodGet, r.Method)
	assert.Equal(t, "/notify", r.URL.Path)
	assert.Equal(t, "Ding! ¿Quién es?", r.URL.Query().Get("payload"))
	assert.Equal(t, "Timbre & Puerta", r.URL.Query().Get("title"))
	assert.Equal(t, "casa/entrada", r.URL.Query().Get("tema"))
	assert.NotContains(t, r.URL.RawQuery, " ")
	assert.NotContains(t, r.URL.RawQuery, "¿")
}

func TestSend_TitleFallsBackToEvent(t *testing.T) {
	ch, got := newChannel(t, http.StatusOK, nil)

	require.NoError(t, ch.Send(context.Background(), message.New("ding", "¡Timbre!", message.SourcePoll)))
	require.Len(t, *got, 1)
	q := (*got)[0].URL.Query()
	assert.Equal(t, "¡Timbre!", q.Get("title"))
	assert.False(t, q.Has("tema"))
}

func TestSend_BadStatus(t *testing.T) {
	ch, _ := newChannel(t, http.StatusNotFound, nil)

	err := ch.Send(context.Background(), message.New("ding", "", message.SourcePoll))
	require.Error(t, err)
	ne, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrDeliveryBadStatus, ne.Code)
	assert.Equal(t, config.ChannelSimpleGet, ne.Channel)
	assert.Equal(t, "127.0.0.1", ne.Target)
}

func TestEndpoint(t *testing.T) {
	ch := New("simple_get", config.SimpleGetConfig{Protocol: "https", Host: "bell.lan", Path: "/a/b"}, http.DefaultClient, nil)
	got := ch.endpoint(message.New("a b", "", message.SourcePoll))
	assert.Equal(t, "https://bell.lan/a/b?payload=a+b", got)
}
