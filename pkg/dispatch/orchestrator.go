// Package dispatch fans a doorbell event out to every delivery channel. It
// owns the connect, send, retry and disconnect sequence and keeps the status
// indicator in step with it.
package dispatch

import (
	"context"
	"time"

	"github.com/kart-io/doorbell/pkg/channel"
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/indicator"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
	"github.com/kart-io/doorbell/pkg/observability"
)

// Indicator receives state changes. *indicator.Indicator implements it.
type Indicator interface {
	SetState(indicator.State)
}

// Session is the network connection. *network.Session implements it.
type Session interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
}

type noIndicator struct{}

func (noIndicator) SetState(indicator.State) {}

// Options configure an Orchestrator.
type Options struct {
	// Policy decides retry delays and the attempt ceiling per channel.
	Policy    errors.RetryPolicy
	Telemetry *observability.TelemetryProvider
}

// OptionsFromConfig builds options from the dispatch section.
func OptionsFromConfig(cfg *config.Config, tel *observability.TelemetryProvider) Options {
	return Options{Policy: cfg.Dispatch.RetryPolicy(), Telemetry: tel}
}

// Orchestrator delivers events. Notify is not safe for concurrent use; the
// sender queue is its only caller.
type Orchestrator struct {
	channels  []channel.Channel
	session   Session
	indicator Indicator
	policy    errors.RetryPolicy
	telemetry *observability.TelemetryProvider
	logger    logger.Logger
}

// New creates an orchestrator over channels, which are tried in the given
// order every round. Channel names must be unique: they key the report.
func New(channels []channel.Channel, session Session, ind Indicator, opts Options, log logger.Logger) (*Orchestrator, error) {
	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if _, dup := seen[ch.Name()]; dup {
			return nil, errors.Newf(errors.ErrConfigInvalid, "duplicate channel name %q", ch.Name())
		}
		seen[ch.Name()] = struct{}{}
	}

	if log == nil {
		log = logger.Discard
	}
	if ind == nil {
		ind = noIndicator{}
	}
	if opts.Policy == nil {
		opts.Policy = errors.NewFixedDelayPolicy(time.Second, 5)
	}
	if opts.Telemetry == nil {
		opts.Telemetry = observability.Noop()
	}
	return &Orchestrator{
		channels:  channels,
		session:   session,
		indicator: ind,
		policy:    opts.Policy,
		telemetry: opts.Telemetry,
		logger:    log.With("component", "dispatch"),
	}, nil
}

// Channels returns the channel names in delivery order.
func (o *Orchestrator) Channels() []string {
	return names(o.channels)
}

// Notify delivers ev to every channel. It never returns an error: failures
// are logged and described by the report. The indicator is always left Idle.
func (o *Orchestrator) Notify(ctx context.Context, ev *message.Event) *Report {
	start := time.Now()
	report := newReport(ev.ID)

	ctx, span := o.telemetry.TraceNotify(ctx, ev.ID, len(o.channels))
	defer span.End()

	defer func() {
		report.Duration = time.Since(start)
		o.indicator.SetState(indicator.Idle)
		o.telemetry.RecordNotify(ctx, report.Outcome(), report.Duration)
	}()

	o.indicator.SetState(indicator.Connecting)
	if err := o.ensureConnected(ctx, report); err != nil {
		report.ConnectErr = err
		o.telemetry.SetSpanError(span, err)
		o.logger.Error("Network unavailable, notification dropped", "id", ev.ID, "error", err)
		return report
	}
	if report.Connected {
		defer o.disconnect()
	}

	o.indicator.SetState(indicator.Sending)
	ledger := NewLedger()
	o.deliver(ctx, ev, ledger)
	report.fill(ledger)

	for _, ch := range o.channels {
		name := ch.Name()
		if err := ledger.LastError(name); err != nil {
			report.Failed = append(report.Failed, Failure{Channel: name, Err: err})
			o.telemetry.RecordFailure(ctx, name, err)
			o.logger.Error("Notification failed", "id", ev.ID, "channel", name,
				"attempts", ledger.Attempts(name), "error", err)
		}
	}

	if len(report.Failed) > 0 {
		o.telemetry.SetSpanError(span, errors.Newf(errors.ErrDeliveryTransport,
			"%d of %d channels failed", len(report.Failed), len(o.channels)))
	} else {
		o.telemetry.SetSpanSuccess(span)
		o.logger.Info("Notification delivered", "id", ev.ID, "channels", len(o.channels),
			"duration", time.Since(start))
	}
	return report
}

func (o *Orchestrator) ensureConnected(ctx context.Context, report *Report) error {
	if o.session == nil || o.session.IsConnected() {
		return nil
	}

	ctx, span := o.telemetry.TraceConnect(ctx)
	defer span.End()

	err := o.session.Connect(ctx)
	o.telemetry.RecordConnect(ctx, err)
	if err != nil {
		o.telemetry.SetSpanError(span, err)
		return err
	}
	o.telemetry.SetSpanSuccess(span)
	report.Connected = true
	return nil
}

func (o *Orchestrator) disconnect() {
	if err := o.session.Disconnect(); err != nil {
		o.logger.Warn("Disconnect failed", "error", err)
	}
}

// deliver runs the first pass and the retry rounds, leaving each channel's
// last result in the ledger.
func (o *Orchestrator) deliver(ctx context.Context, ev *message.Event, ledger *Ledger) {
	pending := o.round(ctx, ev, o.channels, 1, ledger)

	for attempt := 1; len(pending) > 0; attempt++ {
		pending = o.retryable(pending, attempt, ledger)
		if len(pending) == 0 {
			return
		}

		delay := o.policy.RetryDelay(attempt)
		o.logger.Warn("Retrying failed channels", "id", ev.ID, "attempt", attempt+1,
			"channels", names(pending), "delay", delay)

		select {
		case <-ctx.Done():
			o.logger.Warn("Retries abandoned", "id", ev.ID, "error", ctx.Err())
			return
		case <-time.After(delay):
		}

		pending = o.round(ctx, ev, pending, attempt+1, ledger)
	}
}

// round sends ev once to each channel and returns those that failed.
func (o *Orchestrator) round(ctx context.Context, ev *message.Event, chans []channel.Channel, attempt int, ledger *Ledger) []channel.Channel {
	var failed []channel.Channel
	for _, ch := range chans {
		err := o.send(ctx, ch, ev, attempt)
		ledger.Record(ch.Name(), err)
		if err != nil {
			o.logger.Debug("Send failed", "channel", ch.Name(), "attempt", attempt, "error", err)
			failed = append(failed, ch)
		}
	}
	return failed
}

// retryable keeps the channels the policy allows another attempt.
func (o *Orchestrator) retryable(chans []channel.Channel, attempt int, ledger *Ledger) []channel.Channel {
	keep := chans[:0:0]
	for _, ch := range chans {
		if o.policy.ShouldRetry(ledger.LastError(ch.Name()), attempt) {
			keep = append(keep, ch)
		}
	}
	return keep
}

func (o *Orchestrator) send(ctx context.Context, ch channel.Channel, ev *message.Event, attempt int) (err error) {
	name := ch.Name()
	ctx, span := o.telemetry.TraceDelivery(ctx, name, attempt)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrDeliveryTransport, "channel panicked: %v", r).WithChannel(name)
		}
		o.telemetry.RecordAttempt(ctx, name, time.Since(start), err)
		if err != nil {
			o.telemetry.SetSpanError(span, err)
		} else {
			o.telemetry.SetSpanSuccess(span)
		}
		span.End()
	}()

	return ch.Send(ctx, ev)
}

func names(chans []channel.Channel) []string {
	out := make([]string, len(chans))
	for i, ch := range chans {
		out[i] = ch.Name()
	}
	return out
}
