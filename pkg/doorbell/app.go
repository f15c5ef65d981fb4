// Package doorbell assembles the monitor: input, sender queue, dispatch,
// network session and status indicator, built from a single Config.
//
// Basic usage:
//
//	cfg, err := config.Load("doorbell.yaml", config.WithEnvDefaults())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	app, err := doorbell.New(cfg, doorbell.Devices{Pin: pin, LED: led, Radio: radio})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close(context.Background())
//
//	err = app.Run(ctx) // until ctx is cancelled
package doorbell

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/dispatch"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/hal"
	"github.com/kart-io/doorbell/pkg/indicator"
	"github.com/kart-io/doorbell/pkg/input"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
	"github.com/kart-io/doorbell/pkg/network"
	"github.com/kart-io/doorbell/pkg/observability"
	"github.com/kart-io/doorbell/pkg/queue"
)

const shutdownTimeout = 5 * time.Second

// Devices is the hardware the monitor drives.
type Devices struct {
	Pin   hal.Pin
	LED   hal.LED
	Radio hal.Radio
	// Edges feeds the edge strategy. It is required when input.strategy is
	// "edge"; the board's interrupt handler calls Edges.Fire.
	Edges *input.Edges
}

// Option customises App construction.
type Option func(*App)

// WithRegistry replaces the built-in channel registry.
func WithRegistry(r *channel.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithHTTPClient replaces the HTTP client shared by the HTTP channels.
func WithHTTPClient(c channel.HTTPDoer) Option {
	return func(a *App) { a.http = c }
}

// WithTelemetry replaces the provider built from the telemetry section.
func WithTelemetry(tp *observability.TelemetryProvider) Option {
	return func(a *App) { a.telemetry = tp }
}

// App is a fully wired doorbell monitor.
type App struct {
	cfg     *config.Config
	devices Devices
	logger  logger.Logger

	registry  *channel.Registry
	http      channel.HTTPDoer
	telemetry *observability.TelemetryProvider

	channels     []channel.Channel
	skipped      []channel.Skipped
	session      *network.Session
	indicator    *indicator.Indicator
	orchestrator *dispatch.Orchestrator
	sender       *queue.Sender

	closeOnce sync.Once
}

// New validates cfg and builds every component. Channels whose section is
// invalid are skipped and listed by Skipped; they do not fail construction.
func New(cfg *config.Config, devices Devices, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if devices.Radio == nil {
		return nil, errors.New(errors.ErrHardware, "radio is required")
	}

	a := &App{cfg: cfg, devices: devices, logger: cfg.Logger()}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		a.registry = DefaultRegistry(a.logger)
	}
	if a.http == nil {
		a.http = &http.Client{Timeout: cfg.Dispatch.HTTPTimeout.Std()}
	}
	if a.telemetry == nil {
		tp, err := observability.NewTelemetryProvider(cfg.Telemetry)
		if err != nil {
			return nil, err
		}
		a.telemetry = tp
	}

	a.channels, a.skipped = a.registry.Build(cfg, channel.Deps{HTTP: a.http, Logger: a.logger})
	if len(a.channels) == 0 {
		a.logger.Warn("No delivery channels enabled; presses will only be logged")
	}

	a.session = network.NewSession(devices.Radio, network.Options{
		SSID:           cfg.WiFi.SSID,
		Password:       cfg.WiFi.Password,
		MaxAttempts:    cfg.WiFi.MaxAttempts,
		PollInterval:   cfg.WiFi.PollInterval.Std(),
		HardResetEvery: cfg.WiFi.HardResetEvery,
		HardResetPause: cfg.WiFi.HardResetPause.Std(),
	}, a.logger)

	a.indicator = indicator.New(devices.LED, indicator.Options{
		Enabled:   cfg.LED.Enabled,
		Heartbeat: cfg.LED.Heartbeat,
	}, a.logger)

	orch, err := dispatch.New(a.channels, a.session, a.indicator,
		dispatch.OptionsFromConfig(cfg, a.telemetry), a.logger)
	if err != nil {
		return nil, err
	}
	a.orchestrator = orch

	a.sender = queue.NewSender(cfg.Dispatch.QueueDepth, a.handle, a.logger)
	return a, nil
}

// Channels returns the names of the channels that will be notified, in order.
func (a *App) Channels() []string {
	return a.orchestrator.Channels()
}

// Skipped returns the enabled channels that could not be built.
func (a *App) Skipped() []channel.Skipped {
	return a.skipped
}

// Session exposes the network session.
func (a *App) Session() *network.Session {
	return a.session
}

// Post queues a press as if it came from source.
func (a *App) Post(source message.Source) error {
	return a.sender.Post(message.New(a.cfg.Message.Text, a.cfg.Message.Title, source))
}

// Notify delivers text immediately, bypassing the queue. An empty text uses
// the configured message.
func (a *App) Notify(ctx context.Context, text string) *dispatch.Report {
	if text == "" {
		text = a.cfg.Message.Text
	}
	return a.orchestrator.Notify(ctx, message.New(text, a.cfg.Message.Title, message.SourceManual))
}

func (a *App) handle(ctx context.Context, ev *message.Event) {
	report := a.orchestrator.Notify(ctx, ev)
	a.logger.Debug("Dispatch finished", "id", ev.ID, "outcome", report.Outcome(),
		"attempts", report.Attempts, "duration", report.Duration)
}

// Run starts the indicator, the sender and the input monitor, and blocks
// until ctx is cancelled. Cancellation is a clean shutdown and returns nil.
// Run may be called once.
func (a *App) Run(ctx context.Context) error {
	if a.devices.Pin == nil && a.cfg.Input.Strategy == "poll" {
		return errors.New(errors.ErrHardware, "doorbell pin is required")
	}
	if a.devices.Edges == nil && a.cfg.Input.Strategy == "edge" {
		return errors.New(errors.ErrHardware, "edge source is required for the edge strategy")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.logger.Info("Doorbell monitor starting",
		"strategy", a.cfg.Input.Strategy,
		"channels", a.Channels(),
		"skipped", len(a.skipped),
		"queue_depth", a.cfg.Dispatch.QueueDepth,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := a.indicator.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("Indicator stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := a.sender.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("Sender stopped", "error", err)
		}
	}()

	err := a.monitor(ctx)
	cancel()
	a.sender.Close()
	a.indicator.Stop()
	wg.Wait()

	stats := a.sender.Stats()
	a.logger.Info("Doorbell monitor stopped",
		"presses", stats.Posted+stats.Dropped,
		"dropped", stats.Dropped,
		"handled", stats.Handled,
	)

	if err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (a *App) monitor(ctx context.Context) error {
	opts := input.OptionsFromConfig(a.cfg)
	poster := input.Limit(a.sender, input.LimiterFromConfig(a.cfg.Input.RateLimit))
	if a.cfg.Input.Strategy == "edge" {
		return input.NewEdgeMonitor(a.devices.Pin, poster, opts, a.logger).Run(ctx, a.devices.Edges.C())
	}
	return input.NewPollMonitor(a.devices.Pin, poster, opts, a.logger).Run(ctx)
}

// Close releases channel resources and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		for _, ch := range a.channels {
			if cerr := channel.Close(ch); cerr != nil {
				a.logger.Warn("Channel close failed", "channel", ch.Name(), "error", cerr)
			}
		}
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		err = a.telemetry.Shutdown(ctx)
	})
	return err
}
