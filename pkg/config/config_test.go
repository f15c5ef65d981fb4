package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/doorbell/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Dispatch.MaxRetries)
	assert.Equal(t, time.Second, cfg.Dispatch.RetryDelay.Std())
	assert.Equal(t, 2, cfg.Dispatch.QueueDepth)
	assert.Equal(t, 120, cfg.WiFi.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.WiFi.PollInterval.Std())
	assert.Equal(t, 3, cfg.Input.RequiredReads)
	assert.Equal(t, 15*time.Millisecond, cfg.Input.Debounce.Std())
	assert.Equal(t, "¡Sonó el timbre!", cfg.Message.Text)
	assert.True(t, cfg.LED.Enabled)
	assert.Empty(t, cfg.Channels.Enabled())
	assert.Zero(t, cfg.Input.RateLimit.Presses)

	cfg.Input.RateLimit.Presses = 4
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Minute, cfg.Input.RateLimit.Per.Std())
}

func TestLoad_YAMLWithCredentials(t *testing.T) {
	t.Setenv("DOORBELL_TEST_SSID", "casa")

	dir := t.TempDir()
	writeFile(t, dir, "credentials.toml", `
[wifi]
password = "hunter2"

[channels.telegram]
token = "123:abc"
chat_ids = ["42", "43"]
`)
	path := writeFile(t, dir, "doorbell.yaml", `
wifi:
  ssid: ${DOORBELL_TEST_SSID}
  poll_interval: 250ms
dispatch:
  max_retries: 3
  backoff: exponential
message:
  text: ${DOORBELL_TEST_UNSET:-Ding dong}
credentials_file: credentials.toml
channels:
  telegram:
    enabled: true
  redis:
    enabled: true
    channel: porch
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "casa", cfg.WiFi.SSID)
	assert.Equal(t, "hunter2", cfg.WiFi.Password)
	assert.Equal(t, 250*time.Millisecond, cfg.WiFi.PollInterval.Std())
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t, "Ding dong", cfg.Message.Text)
	assert.Equal(t, "123:abc", cfg.Channels.Telegram.Token)
	assert.Equal(t, []string{"42", "43"}, cfg.Channels.Telegram.ChatIDs)
	assert.Equal(t, []string{ChannelTelegram, ChannelRedis}, cfg.Channels.Enabled())

	// untouched keys keep their defaults
	assert.Equal(t, 2, cfg.Dispatch.QueueDepth)
	assert.Equal(t, 120, cfg.WiFi.MaxAttempts)

	_, ok := cfg.Dispatch.RetryPolicy().(*errors.ExponentialBackoffPolicy)
	assert.True(t, ok)
}

func TestLoad_EnvExpandsValuesOnly(t *testing.T) {
	t.Setenv("DOORBELL_TEST_PASS", `p"ss: w0rd #1`)
	t.Setenv("DOORBELL_TEST_HOOK_TOKEN", "tok")

	dir := t.TempDir()
	writeFile(t, dir, "credentials.toml", `
# rotate ${DOORBELL_TEST_NEVER_SET} yearly
[wifi]
password = "${DOORBELL_TEST_PASS}"
`)
	path := writeFile(t, dir, "doorbell.yaml", `
# set ${DOORBELL_TEST_NEVER_SET} before flashing
wifi:
  ssid: home
credentials_file: credentials.toml
channels:
  webhook:
    enabled: true
    urls: ["http://hooks.local/${DOORBELL_TEST_HOOK_TOKEN}"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, `p"ss: w0rd #1`, cfg.WiFi.Password)
	assert.Equal(t, []string{"http://hooks.local/tok"}, cfg.Channels.Webhook.URLs)
}

func TestExpandEnv_Map(t *testing.T) {
	t.Setenv("DOORBELL_TEST_A", "alpha")
	cfg := Default()
	cfg.Channels.Webhook.Headers = map[string]string{"X-Key": "${DOORBELL_TEST_A}"}

	require.NoError(t, ExpandEnv(cfg))
	assert.Equal(t, "alpha", cfg.Channels.Webhook.Headers["X-Key"])
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doorbell.toml", `
[input]
strategy = "edge"
debounce = "200ms"

[led]
enabled = false
heartbeat = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "edge", cfg.Input.Strategy)
	assert.Equal(t, 200*time.Millisecond, cfg.Input.Debounce.Std())
	assert.False(t, cfg.LED.Enabled)
	assert.True(t, cfg.LED.Heartbeat)

	_, ok := cfg.Dispatch.RetryPolicy().(*errors.FixedDelayPolicy)
	assert.True(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported extension", "doorbell.ini", "x=1"},
		{"unset variable", "a.yaml", "wifi:\n  ssid: ${DOORBELL_TEST_DEFINITELY_UNSET}\n"},
		{"unknown yaml key", "b.yaml", "wifii:\n  ssid: x\n"},
		{"unknown toml key", "c.toml", "[wifii]\nssid = \"x\"\n"},
		{"bad duration", "d.yaml", "dispatch:\n  retry_delay: soon\n"},
		{"missing credentials file", "e.yaml", "credentials_file: nope.toml\n"},
		{"debounce too long", "f.yaml", "input:\n  debounce: 2s\n"},
		{"bad strategy", "g.yaml", "input:\n  strategy: interrupt\n"},
		{"bad backoff", "h.yaml", "dispatch:\n  backoff: linear\n"},
		{"bad log level", "i.yaml", "logging:\n  level: chatty\n"},
		{"negative rate limit", "j.yaml", "input:\n  rate_limit:\n    presses: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err), "got %v", err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsConfigError(err))
}

func TestLoad_EmptyYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Dispatch.MaxRetries)
}

func TestOptions(t *testing.T) {
	cfg, err := New(
		WithMaxRetries(7),
		WithRetryDelay(50*time.Millisecond),
		WithQueueDepth(4),
		WithWiFi("net", "pw"),
		WithMessage("hi", "title"),
		WithTelegram(TelegramConfig{Token: "t", ChatIDs: []string{"1"}}),
	)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Dispatch.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Dispatch.RetryDelay.Std())
	assert.Equal(t, 4, cfg.Dispatch.QueueDepth)
	assert.Equal(t, "net", cfg.WiFi.SSID)
	assert.Equal(t, "hi", cfg.Message.Text)
	assert.True(t, cfg.Channels.Telegram.Enabled)

	_, err = New(WithMaxRetries(0))
	assert.True(t, errors.IsConfigError(err))
}

func TestWithEnvDefaults(t *testing.T) {
	t.Setenv("DOORBELL_WIFI_SSID", "envnet")
	t.Setenv("DOORBELL_MAX_RETRIES", "9")
	t.Setenv("DOORBELL_RETRY_DELAY", "nonsense")
	t.Setenv("DOORBELL_TELEGRAM_TOKEN", "tok")
	t.Setenv("DOORBELL_TELEGRAM_CHAT_IDS", "1,2")
	t.Setenv("DOORBELL_SERIAL_LOGS", "false")

	cfg, err := New(WithMaxRetries(3), WithEnvDefaults())
	require.NoError(t, err)

	assert.Equal(t, "envnet", cfg.WiFi.SSID)
	assert.Equal(t, 9, cfg.Dispatch.MaxRetries, "env wins over earlier options")
	assert.Equal(t, time.Second, cfg.Dispatch.RetryDelay.Std(), "bad duration ignored")
	assert.True(t, cfg.Channels.Telegram.Enabled)
	assert.Equal(t, []string{"1", "2"}, cfg.Channels.Telegram.ChatIDs)
	assert.False(t, cfg.Logging.Serial)
}

func TestValidateChannel(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *ChannelsConfig)
		channel  string
		wantCode errors.ErrorCode
	}{
		{
			name:     "telegram missing token",
			mutate:   func(c *ChannelsConfig) { c.Telegram.ChatIDs = []string{"1"} },
			channel:  ChannelTelegram,
			wantCode: errors.ErrConfigMissingCredentials,
		},
		{
			name:     "telegram blank chat ids",
			mutate:   func(c *ChannelsConfig) { c.Telegram.Token = "t"; c.Telegram.ChatIDs = []string{" ", ""} },
			channel:  ChannelTelegram,
			wantCode: errors.ErrConfigMissingCredentials,
		},
		{
			name: "telegram bad method",
			mutate: func(c *ChannelsConfig) {
				c.Telegram = TelegramConfig{Token: "t", ChatIDs: []string{"1"}, Method: "put"}
			},
			channel:  ChannelTelegram,
			wantCode: errors.ErrConfigInvalid,
		},
		{
			name:    "telegram ok",
			mutate:  func(c *ChannelsConfig) { c.Telegram = TelegramConfig{Token: "t", ChatIDs: []string{"1"}} },
			channel: ChannelTelegram,
		},
		{
			name:     "slack bad url",
			mutate:   func(c *ChannelsConfig) { c.Slack.WebhookURLs = []string{"not a url"} },
			channel:  ChannelSlack,
			wantCode: errors.ErrConfigInvalid,
		},
		{
			name:     "twilio missing auth token",
			mutate:   func(c *ChannelsConfig) { c.TwilioSMS = TwilioConfig{AccountSID: "AC1"} },
			channel:  ChannelTwilioSMS,
			wantCode: errors.ErrConfigMissingCredentials,
		},
		{
			name:     "simple get missing host",
			channel:  ChannelSimpleGet,
			wantCode: errors.ErrConfigMissingCredentials,
		},
		{
			name:     "websocket needs ws scheme",
			mutate:   func(c *ChannelsConfig) { c.Websocket.URL = "http://gateway" },
			channel:  ChannelWebsocket,
			wantCode: errors.ErrConfigInvalid,
		},
		{
			name:    "redis defaults",
			channel: ChannelRedis,
		},
		{
			name:     "unknown channel",
			channel:  "carrier_pigeon",
			wantCode: errors.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(&cfg.Channels)
			}
			err := cfg.ValidateChannel(tt.channel)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}
}

func TestValidateChannel_FillsDefaults(t *testing.T) {
	cfg := Default()
	cfg.Channels.Telegram = TelegramConfig{Token: "t", ChatIDs: []string{"1"}}
	cfg.Channels.Webhook = WebhookConfig{URLs: []string{"http://hook.local/x"}}
	cfg.Channels.SimpleGet = SimpleGetConfig{Host: "192.168.1.10"}

	require.NoError(t, cfg.ValidateChannel(ChannelTelegram))
	require.NoError(t, cfg.ValidateChannel(ChannelWebhook))
	require.NoError(t, cfg.ValidateChannel(ChannelSimpleGet))
	require.NoError(t, cfg.ValidateChannel(ChannelRedis))

	assert.Equal(t, "post", cfg.Channels.Telegram.Method)
	assert.Equal(t, "https://api.telegram.org", cfg.Channels.Telegram.BaseURL)
	assert.Equal(t, "text", cfg.Channels.Webhook.Field)
	assert.Equal(t, "http", cfg.Channels.SimpleGet.Protocol)
	assert.Equal(t, "localhost:6379", cfg.Channels.Redis.Addr)
	assert.Equal(t, "doorbell", cfg.Channels.Redis.Channel)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOORBELL_TEST_A", "alpha")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"${DOORBELL_TEST_A}", "alpha", false},
		{"x-${DOORBELL_TEST_A}-y", "x-alpha-y", false},
		{"${DOORBELL_TEST_NOPE:-fallback}", "fallback", false},
		{"${DOORBELL_TEST_NOPE:-}", "", false},
		{"${DOORBELL_TEST_NOPE}", "", true},
	}
	for _, tt := range tests {
		got, err := expandEnvVars(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("fast")))
}
