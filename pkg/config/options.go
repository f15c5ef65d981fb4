// Functional options for doorbell configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
)

// Option defines a functional option for configuration
type Option func(*Config) error

// New creates a configuration from defaults and the given options, without a file.
func New(opts ...Option) (*Config, error) {
	return Load("", opts...)
}

// WithLogger sets the logger instance
func WithLogger(l logger.Logger) Option {
	return func(c *Config) error {
		c.LoggerInstance = l
		return nil
	}
}

// WithMaxRetries sets the maximum delivery attempts per channel
func WithMaxRetries(retries int) Option {
	return func(c *Config) error {
		if retries < 1 {
			return errors.Newf(errors.ErrConfigInvalid, "max_retries must be at least 1, got %d", retries)
		}
		c.Dispatch.MaxRetries = retries
		return nil
	}
}

// WithRetryDelay sets the wait between retry rounds
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) error {
		c.Dispatch.RetryDelay = Duration(delay)
		return nil
	}
}

// WithExponentialBackoff switches retries to exponential backoff capped at maxDelay
func WithExponentialBackoff(maxDelay time.Duration) Option {
	return func(c *Config) error {
		c.Dispatch.Backoff = "exponential"
		c.Dispatch.MaxDelay = Duration(maxDelay)
		return nil
	}
}

// WithQueueDepth sets how many presses may wait while a notification is sending
func WithQueueDepth(depth int) Option {
	return func(c *Config) error {
		c.Dispatch.QueueDepth = depth
		return nil
	}
}

// WithWiFi sets the network credentials
func WithWiFi(ssid, password string) Option {
	return func(c *Config) error {
		c.WiFi.SSID = ssid
		c.WiFi.Password = password
		return nil
	}
}

// WithMessage sets the notification text and title
func WithMessage(text, title string) Option {
	return func(c *Config) error {
		c.Message.Text = text
		c.Message.Title = title
		return nil
	}
}

// WithTelegram enables the Telegram channel
func WithTelegram(tc TelegramConfig) Option {
	return func(c *Config) error {
		tc.Enabled = true
		c.Channels.Telegram = tc
		return nil
	}
}

// WithTestDefaults applies test-friendly defaults
func WithTestDefaults() Option {
	return func(c *Config) error {
		c.WiFi.PollInterval = Duration(time.Millisecond)
		c.WiFi.MaxAttempts = 5
		c.WiFi.HardResetPause = Duration(time.Millisecond)
		c.Dispatch.RetryDelay = Duration(time.Millisecond)
		c.Dispatch.HTTPTimeout = Duration(time.Second)
		c.LED.Enabled = false
		c.Logging.Level = "debug"
		return nil
	}
}

// WithEnvDefaults applies DOORBELL_* environment overrides. Unparseable
// numeric or duration values are ignored.
func WithEnvDefaults() Option {
	return func(c *Config) error {
		if v := os.Getenv("DOORBELL_WIFI_SSID"); v != "" {
			c.WiFi.SSID = v
		}
		if v := os.Getenv("DOORBELL_WIFI_PASSWORD"); v != "" {
			c.WiFi.Password = v
		}
		if v := os.Getenv("DOORBELL_MESSAGE_TEXT"); v != "" {
			c.Message.Text = v
		}
		if v := os.Getenv("DOORBELL_LOG_LEVEL"); v != "" {
			c.Logging.Level = v
		}
		if v := os.Getenv("DOORBELL_SERIAL_LOGS"); v != "" {
			c.Logging.Serial = v == "true" || v == "1"
		}

		if v := os.Getenv("DOORBELL_MAX_RETRIES"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Dispatch.MaxRetries = n
			}
		}
		if v := os.Getenv("DOORBELL_RETRY_DELAY"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				c.Dispatch.RetryDelay = Duration(d)
			}
		}
		if v := os.Getenv("DOORBELL_QUEUE_DEPTH"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Dispatch.QueueDepth = n
			}
		}

		if v := os.Getenv("DOORBELL_TELEGRAM_TOKEN"); v != "" {
			c.Channels.Telegram.Token = v
			c.Channels.Telegram.Enabled = true
		}
		if v := os.Getenv("DOORBELL_TELEGRAM_CHAT_IDS"); v != "" {
			c.Channels.Telegram.ChatIDs = strings.Split(v, ",")
		}
		if v := os.Getenv("DOORBELL_REDIS_ADDR"); v != "" {
			c.Channels.Redis.Addr = v
			c.Channels.Redis.Enabled = true
		}

		if v := os.Getenv("DOORBELL_TELEMETRY_ENDPOINT"); v != "" {
			c.Telemetry.Endpoint = v
			c.Telemetry.Enabled = true
		}
		return nil
	}
}
