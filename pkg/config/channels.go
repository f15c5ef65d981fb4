package config

import (
	"net/url"
	"strings"

	"github.com/kart-io/doorbell/pkg/errors"
)

// Channel section names, in the order channels are built and notified.
const (
	ChannelTelegram       = "telegram"
	ChannelSlack          = "slack"
	ChannelDiscord        = "discord"
	ChannelWebhook        = "webhook"
	ChannelSimpleGet      = "simple_get"
	ChannelTwilioSMS      = "twilio_sms"
	ChannelTwilioWhatsApp = "twilio_whatsapp"
	ChannelPushover       = "pushover"
	ChannelRedis          = "redis"
	ChannelWebsocket      = "websocket"
)

// ChannelOrder lists every known channel section in notification order.
var ChannelOrder = []string{
	ChannelTelegram,
	ChannelSlack,
	ChannelDiscord,
	ChannelWebhook,
	ChannelSimpleGet,
	ChannelTwilioSMS,
	ChannelTwilioWhatsApp,
	ChannelPushover,
	ChannelRedis,
	ChannelWebsocket,
}

// ChannelsConfig groups the per-channel sections.
type ChannelsConfig struct {
	Telegram       TelegramConfig  `yaml:"telegram" toml:"telegram" json:"telegram"`
	Slack          HookConfig      `yaml:"slack" toml:"slack" json:"slack"`
	Discord        HookConfig      `yaml:"discord" toml:"discord" json:"discord"`
	Webhook        WebhookConfig   `yaml:"webhook" toml:"webhook" json:"webhook"`
	SimpleGet      SimpleGetConfig `yaml:"simple_get" toml:"simple_get" json:"simple_get"`
	TwilioSMS      TwilioConfig    `yaml:"twilio_sms" toml:"twilio_sms" json:"twilio_sms"`
	TwilioWhatsApp TwilioConfig    `yaml:"twilio_whatsapp" toml:"twilio_whatsapp" json:"twilio_whatsapp"`
	Pushover       PushoverConfig  `yaml:"pushover" toml:"pushover" json:"pushover"`
	Redis          RedisConfig     `yaml:"redis" toml:"redis" json:"redis"`
	Websocket      WebsocketConfig `yaml:"websocket" toml:"websocket" json:"websocket"`
}

// Section returns the config section for name, or nil for an unknown name.
func (c *ChannelsConfig) Section(name string) ChannelSection {
	switch name {
	case ChannelTelegram:
		return &c.Telegram
	case ChannelSlack:
		return &c.Slack
	case ChannelDiscord:
		return &c.Discord
	case ChannelWebhook:
		return &c.Webhook
	case ChannelSimpleGet:
		return &c.SimpleGet
	case ChannelTwilioSMS:
		return &c.TwilioSMS
	case ChannelTwilioWhatsApp:
		return &c.TwilioWhatsApp
	case ChannelPushover:
		return &c.Pushover
	case ChannelRedis:
		return &c.Redis
	case ChannelWebsocket:
		return &c.Websocket
	}
	return nil
}

// Enabled returns the names of enabled sections in notification order.
func (c *ChannelsConfig) Enabled() []string {
	var names []string
	for _, name := range ChannelOrder {
		if s := c.Section(name); s != nil && s.IsEnabled() {
			names = append(names, name)
		}
	}
	return names
}

// ChannelSection is implemented by every channel config.
type ChannelSection interface {
	IsEnabled() bool
	Validate(name string) error
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	Token   string   `yaml:"token" toml:"token" json:"token"`
	ChatIDs []string `yaml:"chat_ids" toml:"chat_ids" json:"chat_ids"`
	// Method is "post" (JSON body) or "get" (query string).
	Method        string `yaml:"method" toml:"method" json:"method"`
	BaseURL       string `yaml:"base_url" toml:"base_url" json:"base_url"`
	SuccessStatus int    `yaml:"success_status" toml:"success_status" json:"success_status"`
}

func (c *TelegramConfig) IsEnabled() bool { return c.Enabled }

// Validate checks required fields and fills defaults.
func (c *TelegramConfig) Validate(name string) error {
	if c.Token == "" {
		return errors.NewMissingCredentialError(name, "token")
	}
	if len(nonEmpty(c.ChatIDs)) == 0 {
		return errors.NewMissingCredentialError(name, "chat_ids")
	}
	c.ChatIDs = nonEmpty(c.ChatIDs)

	c.Method = strings.ToLower(c.Method)
	switch c.Method {
	case "":
		c.Method = "post"
	case "post", "get":
	default:
		return errors.NewConfigError("unsupported telegram method: " + c.Method).WithChannel(name)
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.telegram.org"
	}
	return validateURL(name, "base_url", c.BaseURL)
}

// HookConfig configures the Slack and Discord incoming-webhook channels.
type HookConfig struct {
	Enabled       bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	WebhookURLs   []string `yaml:"webhook_urls" toml:"webhook_urls" json:"webhook_urls"`
	SuccessStatus int      `yaml:"success_status" toml:"success_status" json:"success_status"`
}

func (c *HookConfig) IsEnabled() bool { return c.Enabled }

// Validate checks that at least one webhook URL is set.
func (c *HookConfig) Validate(name string) error {
	c.WebhookURLs = nonEmpty(c.WebhookURLs)
	if len(c.WebhookURLs) == 0 {
		return errors.NewMissingCredentialError(name, "webhook_urls")
	}
	for _, u := range c.WebhookURLs {
		if err := validateURL(name, "webhook_urls", u); err != nil {
			return err
		}
	}
	return nil
}

// WebhookConfig configures the generic JSON webhook channel.
type WebhookConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	URLs    []string `yaml:"urls" toml:"urls" json:"urls"`
	// Field is the JSON key carrying the message text.
	Field         string            `yaml:"field" toml:"field" json:"field"`
	Headers       map[string]string `yaml:"headers" toml:"headers" json:"headers"`
	SuccessStatus int               `yaml:"success_status" toml:"success_status" json:"success_status"`
}

func (c *WebhookConfig) IsEnabled() bool { return c.Enabled }

// Validate checks the URLs and defaults Field to "text".
func (c *WebhookConfig) Validate(name string) error {
	c.URLs = nonEmpty(c.URLs)
	if len(c.URLs) == 0 {
		return errors.NewMissingCredentialError(name, "urls")
	}
	for _, u := range c.URLs {
		if err := validateURL(name, "urls", u); err != nil {
			return err
		}
	}
	if c.Field == "" {
		c.Field = "text"
	}
	return nil
}

// SimpleGetConfig configures the plain HTTP GET channel.
type SimpleGetConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Protocol      string `yaml:"protocol" toml:"protocol" json:"protocol"`
	Host          string `yaml:"host" toml:"host" json:"host"`
	Port          int    `yaml:"port" toml:"port" json:"port"`
	Path          string `yaml:"path" toml:"path" json:"path"`
	Title         string `yaml:"title" toml:"title" json:"title"`
	Subject       string `yaml:"subject" toml:"subject" json:"subject"`
	SuccessStatus int    `yaml:"success_status" toml:"success_status" json:"success_status"`
}

func (c *SimpleGetConfig) IsEnabled() bool { return c.Enabled }

// Validate checks the endpoint parts.
func (c *SimpleGetConfig) Validate(name string) error {
	if c.Host == "" {
		return errors.NewMissingCredentialError(name, "host")
	}
	c.Protocol = strings.ToLower(c.Protocol)
	switch c.Protocol {
	case "":
		c.Protocol = "http"
	case "http", "https":
	default:
		return errors.NewConfigError("unsupported protocol: " + c.Protocol).WithChannel(name)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Newf(errors.ErrConfigInvalid, "port out of range: %d", c.Port).WithChannel(name)
	}
	return nil
}

// TwilioConfig configures the Twilio SMS and WhatsApp channels.
type TwilioConfig struct {
	Enabled       bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	AccountSID    string   `yaml:"account_sid" toml:"account_sid" json:"account_sid"`
	AuthToken     string   `yaml:"auth_token" toml:"auth_token" json:"auth_token"`
	FromNumber    string   `yaml:"from_number" toml:"from_number" json:"from_number"`
	ToNumbers     []string `yaml:"to_numbers" toml:"to_numbers" json:"to_numbers"`
	BaseURL       string   `yaml:"base_url" toml:"base_url" json:"base_url"`
	SuccessStatus int      `yaml:"success_status" toml:"success_status" json:"success_status"`
}

func (c *TwilioConfig) IsEnabled() bool { return c.Enabled }

// Validate checks the account credentials and numbers.
func (c *TwilioConfig) Validate(name string) error {
	switch {
	case c.AccountSID == "":
		return errors.NewMissingCredentialError(name, "account_sid")
	case c.AuthToken == "":
		return errors.NewMissingCredentialError(name, "auth_token")
	case c.FromNumber == "":
		return errors.NewMissingCredentialError(name, "from_number")
	}
	c.ToNumbers = nonEmpty(c.ToNumbers)
	if len(c.ToNumbers) == 0 {
		return errors.NewMissingCredentialError(name, "to_numbers")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.twilio.com"
	}
	return validateURL(name, "base_url", c.BaseURL)
}

// PushoverConfig configures the Pushover channel.
type PushoverConfig struct {
	Enabled       bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	Token         string   `yaml:"token" toml:"token" json:"token"`
	UserKeys      []string `yaml:"user_keys" toml:"user_keys" json:"user_keys"`
	BaseURL       string   `yaml:"base_url" toml:"base_url" json:"base_url"`
	SuccessStatus int      `yaml:"success_status" toml:"success_status" json:"success_status"`
}

func (c *PushoverConfig) IsEnabled() bool { return c.Enabled }

// Validate checks the application token and user keys.
func (c *PushoverConfig) Validate(name string) error {
	if c.Token == "" {
		return errors.NewMissingCredentialError(name, "token")
	}
	c.UserKeys = nonEmpty(c.UserKeys)
	if len(c.UserKeys) == 0 {
		return errors.NewMissingCredentialError(name, "user_keys")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.pushover.net"
	}
	return validateURL(name, "base_url", c.BaseURL)
}

// RedisConfig configures the Redis pub/sub channel.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Addr     string `yaml:"addr" toml:"addr" json:"addr"`
	Password string `yaml:"password" toml:"password" json:"password"`
	DB       int    `yaml:"db" toml:"db" json:"db"`
	Channel  string `yaml:"channel" toml:"channel" json:"channel"`
}

func (c *RedisConfig) IsEnabled() bool { return c.Enabled }

// Validate fills the default address and channel.
func (c *RedisConfig) Validate(name string) error {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.Channel == "" {
		c.Channel = "doorbell"
	}
	if c.DB < 0 {
		return errors.Newf(errors.ErrConfigInvalid, "db cannot be negative: %d", c.DB).WithChannel(name)
	}
	return nil
}

// WebsocketConfig configures the websocket gateway channel.
type WebsocketConfig struct {
	Enabled          bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	URL              string   `yaml:"url" toml:"url" json:"url"`
	Token            string   `yaml:"token" toml:"token" json:"token"`
	HandshakeTimeout Duration `yaml:"handshake_timeout" toml:"handshake_timeout" json:"handshake_timeout"`
}

func (c *WebsocketConfig) IsEnabled() bool { return c.Enabled }

// Validate requires a ws:// or wss:// URL.
func (c *WebsocketConfig) Validate(name string) error {
	if c.URL == "" {
		return errors.NewMissingCredentialError(name, "url")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return errors.NewConfigError("url must use ws:// or wss://").WithChannel(name)
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = Duration(defaultHTTPTimeout)
	}
	return nil
}

func validateURL(channel, field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf(errors.ErrConfigInvalid, "%s is not a valid URL: %q", field, raw).WithChannel(channel)
	}
	return nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
