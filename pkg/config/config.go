// Package config provides the configuration system for the doorbell monitor
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxDebounce        = 500 * time.Millisecond
)

// Config is the root configuration, loaded from YAML or TOML.
type Config struct {
	Device    DeviceConfig    `yaml:"device" toml:"device" json:"device"`
	Input     InputConfig     `yaml:"input" toml:"input" json:"input"`
	Message   MessageConfig   `yaml:"message" toml:"message" json:"message"`
	WiFi      WiFiConfig      `yaml:"wifi" toml:"wifi" json:"wifi"`
	Dispatch  DispatchConfig  `yaml:"dispatch" toml:"dispatch" json:"dispatch"`
	LED       LEDConfig       `yaml:"led" toml:"led" json:"led"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry" json:"telemetry"`

	// CredentialsFile is merged over this file. Relative paths resolve
	// against the directory of the main config file.
	CredentialsFile string `yaml:"credentials_file" toml:"credentials_file" json:"credentials_file"`

	Channels ChannelsConfig `yaml:"channels" toml:"channels" json:"channels"`

	// Instance-level settings
	LoggerInstance logger.Logger `yaml:"-" toml:"-" json:"-"`
}

// DeviceConfig names the board pins.
type DeviceConfig struct {
	DoorbellPin int    `yaml:"doorbell_pin" toml:"doorbell_pin" json:"doorbell_pin"`
	LEDPin      string `yaml:"led_pin" toml:"led_pin" json:"led_pin"`
}

// InputConfig tunes press detection.
type InputConfig struct {
	// Strategy is "poll" or "edge".
	Strategy       string   `yaml:"strategy" toml:"strategy" json:"strategy"`
	SampleInterval Duration `yaml:"sample_interval" toml:"sample_interval" json:"sample_interval"`
	RequiredReads  int      `yaml:"required_reads" toml:"required_reads" json:"required_reads"`
	Debounce       Duration `yaml:"debounce" toml:"debounce" json:"debounce"`

	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig caps notifications per period. Presses 0 disables it.
type RateLimitConfig struct {
	Presses int      `yaml:"presses" toml:"presses" json:"presses"`
	Per     Duration `yaml:"per" toml:"per" json:"per"`
}

// MessageConfig is the notification content.
type MessageConfig struct {
	Text  string `yaml:"text" toml:"text" json:"text"`
	Title string `yaml:"title" toml:"title" json:"title"`
}

// WiFiConfig configures the network session.
type WiFiConfig struct {
	SSID           string   `yaml:"ssid" toml:"ssid" json:"ssid"`
	Password       string   `yaml:"password" toml:"password" json:"password"`
	MaxAttempts    int      `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
	PollInterval   Duration `yaml:"poll_interval" toml:"poll_interval" json:"poll_interval"`
	HardResetEvery int      `yaml:"hard_reset_every" toml:"hard_reset_every" json:"hard_reset_every"`
	HardResetPause Duration `yaml:"hard_reset_pause" toml:"hard_reset_pause" json:"hard_reset_pause"`
}

// DispatchConfig configures delivery retries and the sender queue.
type DispatchConfig struct {
	MaxRetries int      `yaml:"max_retries" toml:"max_retries" json:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay" toml:"retry_delay" json:"retry_delay"`
	// Backoff is "fixed" or "exponential".
	Backoff     string   `yaml:"backoff" toml:"backoff" json:"backoff"`
	MaxDelay    Duration `yaml:"max_delay" toml:"max_delay" json:"max_delay"`
	QueueDepth  int      `yaml:"queue_depth" toml:"queue_depth" json:"queue_depth"`
	HTTPTimeout Duration `yaml:"http_timeout" toml:"http_timeout" json:"http_timeout"`
}

// RetryPolicy builds the configured retry policy.
func (d DispatchConfig) RetryPolicy() errors.RetryPolicy {
	if d.Backoff == "exponential" {
		return errors.NewExponentialBackoffPolicy(d.RetryDelay.Std(), d.MaxDelay.Std(), d.MaxRetries)
	}
	return errors.NewFixedDelayPolicy(d.RetryDelay.Std(), d.MaxRetries)
}

// LEDConfig configures the status indicator.
type LEDConfig struct {
	Enabled   bool `yaml:"enabled" toml:"enabled" json:"enabled"`
	Heartbeat bool `yaml:"heartbeat" toml:"heartbeat" json:"heartbeat"`
}

// LoggingConfig configures logging behavior
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	// Serial turns all output off when false.
	Serial bool `yaml:"serial" toml:"serial" json:"serial"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	ServiceName string `yaml:"service_name" toml:"service_name" json:"service_name"`
	Insecure    bool   `yaml:"insecure" toml:"insecure" json:"insecure"`
}

// Default returns the configuration used when a key is absent.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			DoorbellPin: 21,
			LEDPin:      "LED",
		},
		Input: InputConfig{
			Strategy:       "poll",
			SampleInterval: Duration(time.Millisecond),
			RequiredReads:  3,
			Debounce:       Duration(15 * time.Millisecond),
		},
		Message: MessageConfig{
			Text:  "¡Sonó el timbre!",
			Title: "¡Timbre!",
		},
		WiFi: WiFiConfig{
			MaxAttempts:    120,
			PollInterval:   Duration(500 * time.Millisecond),
			HardResetEvery: 15,
			HardResetPause: Duration(time.Second),
		},
		Dispatch: DispatchConfig{
			MaxRetries:  5,
			RetryDelay:  Duration(time.Second),
			Backoff:     "fixed",
			MaxDelay:    Duration(10 * time.Second),
			QueueDepth:  2,
			HTTPTimeout: Duration(defaultHTTPTimeout),
		},
		LED: LEDConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Serial: true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "doorbell",
			Insecure:    true,
		},
	}
}

// Logger returns the configured logger instance, building one from Logging if unset.
func (c *Config) Logger() logger.Logger {
	if c.LoggerInstance != nil {
		return c.LoggerInstance
	}
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logger.Info
	}
	if !c.Logging.Serial {
		level = logger.Silent
	}
	c.LoggerInstance = logger.New().LogMode(level)
	return c.LoggerInstance
}

// Duration wraps time.Duration so it reads as "500ms" in YAML, TOML and JSON.
type Duration time.Duration

// Std returns the underlying time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler; used by TOML and JSON.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
