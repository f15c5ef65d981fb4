// Package config provides configuration validation functionality
package config

import (
	"strings"
	"time"

	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
)

// Validate fills defaults for zero values and rejects malformed global
// settings. Channel sections are validated separately by ValidateChannel so
// one bad channel does not stop the others.
func (c *Config) Validate() error {
	def := Default()

	c.Input.Strategy = strings.ToLower(c.Input.Strategy)
	switch c.Input.Strategy {
	case "":
		c.Input.Strategy = def.Input.Strategy
	case "poll", "edge":
	default:
		return invalid("input.strategy must be poll or edge, got %q", c.Input.Strategy)
	}
	if c.Input.SampleInterval <= 0 {
		c.Input.SampleInterval = def.Input.SampleInterval
	}
	if c.Input.RequiredReads <= 0 {
		c.Input.RequiredReads = def.Input.RequiredReads
	}
	if c.Input.Debounce < 0 || c.Input.Debounce.Std() > maxDebounce {
		return invalid("input.debounce must be between 0 and %s, got %s", maxDebounce, c.Input.Debounce)
	}
	if c.Input.RateLimit.Presses < 0 || c.Input.RateLimit.Per < 0 {
		return invalid("input.rate_limit must not be negative")
	}
	if c.Input.RateLimit.Presses > 0 && c.Input.RateLimit.Per == 0 {
		c.Input.RateLimit.Per = Duration(time.Minute)
	}

	if c.Message.Text == "" {
		c.Message.Text = def.Message.Text
	}

	if c.WiFi.MaxAttempts <= 0 {
		c.WiFi.MaxAttempts = def.WiFi.MaxAttempts
	}
	if c.WiFi.PollInterval <= 0 {
		c.WiFi.PollInterval = def.WiFi.PollInterval
	}
	if c.WiFi.HardResetEvery < 0 {
		return invalid("wifi.hard_reset_every cannot be negative")
	}

	if c.Dispatch.MaxRetries < 0 {
		return invalid("dispatch.max_retries cannot be negative")
	}
	if c.Dispatch.MaxRetries == 0 {
		c.Dispatch.MaxRetries = def.Dispatch.MaxRetries
	}
	if c.Dispatch.RetryDelay < 0 {
		return invalid("dispatch.retry_delay cannot be negative")
	}
	c.Dispatch.Backoff = strings.ToLower(c.Dispatch.Backoff)
	switch c.Dispatch.Backoff {
	case "":
		c.Dispatch.Backoff = def.Dispatch.Backoff
	case "fixed", "exponential":
	default:
		return invalid("dispatch.backoff must be fixed or exponential, got %q", c.Dispatch.Backoff)
	}
	if c.Dispatch.MaxDelay <= 0 {
		c.Dispatch.MaxDelay = def.Dispatch.MaxDelay
	}
	if c.Dispatch.QueueDepth < 0 {
		return invalid("dispatch.queue_depth cannot be negative")
	}
	if c.Dispatch.QueueDepth == 0 {
		c.Dispatch.QueueDepth = def.Dispatch.QueueDepth
	}
	if c.Dispatch.HTTPTimeout <= 0 {
		c.Dispatch.HTTPTimeout = def.Dispatch.HTTPTimeout
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, errors.ErrConfigInvalid, "logging.level")
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return invalid("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}

	return nil
}

// ValidateChannel validates one channel section and fills its defaults.
func (c *Config) ValidateChannel(name string) error {
	section := c.Channels.Section(name)
	if section == nil {
		return errors.Newf(errors.ErrConfigInvalid, "unknown channel %q", name)
	}
	return section.Validate(name)
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrConfigInvalid, format, args...)
}
