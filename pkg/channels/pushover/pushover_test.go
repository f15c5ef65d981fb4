package pushover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/message"
)

func TestSend(t *testing.T) {
	var got []payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1/messages.json", r.URL.Path)
		var p payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		got = append(got, p)
		if p.User == "ubadbadbad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"user":"invalid","status":0}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Channels.Pushover = config.PushoverConfig{
		Enabled:  true,
		Token:    "apptoken",
		UserKeys: []string{"ugoodgood", "ubadbadbad"},
		BaseURL:  srv.URL,
	}
	require.NoError(t, cfg.ValidateChannel(config.ChannelPushover))

	ch, err := Factory(config.ChannelPushover, cfg, channel.Deps{HTTP: srv.Client()})
	require.NoError(t, err)

	err = ch.Send(context.Background(), message.New("¡Sonó el timbre!", "", message.SourcePoll))
	require.Error(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, payload{Token: "apptoken", User: "ugoodgood", Message: "¡Sonó el timbre!", Title: defaultTitle}, got[0])

	ne, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrDeliveryBadStatus, ne.Code)
	assert.Equal(t, "ub****ad", ne.Target)
	assert.NotContains(t, err.Error(), "ubadbadbad")
}

func TestSend_EventTitle(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	ch := New("pushover", config.PushoverConfig{Token: "t", UserKeys: []string{"u1"}, BaseURL: srv.URL}, srv.Client(), nil)
	require.NoError(t, ch.Send(context.Background(), message.New("ding", "¡Timbre!", message.SourceEdge)))
	assert.Equal(t, "¡Timbre!", got.Title)
}
