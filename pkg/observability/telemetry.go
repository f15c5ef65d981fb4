// Package observability wires OpenTelemetry tracing and metrics around the
// delivery pipeline. With telemetry disabled every call is a no-op backed by
// the otel globals.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
)

const instrumentationName = "github.com/kart-io/doorbell"

// Version is reported as the instrumentation and service version.
var Version = "1.0.0"

// Option customises the provider.
type Option func(*TelemetryProvider)

// WithSpanProcessor routes spans to p instead of the OTLP exporter. The
// provider is then active even when telemetry is disabled in config.
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(tp *TelemetryProvider) {
		tp.processor = p
	}
}

// WithMeterProvider records metrics through mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(tp *TelemetryProvider) {
		tp.meterProvider = mp
	}
}

// TelemetryProvider provides observability features
type TelemetryProvider struct {
	config        config.TelemetryConfig
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider
	processor     sdktrace.SpanProcessor
	meterProvider metric.MeterProvider

	notifications    metric.Int64Counter
	deliveryAttempts metric.Int64Counter
	deliveryFailures metric.Int64Counter
	connects         metric.Int64Counter
	notifyDuration   metric.Float64Histogram
	attemptDuration  metric.Float64Histogram
}

// NewTelemetryProvider creates a provider from the telemetry section.
func NewTelemetryProvider(cfg config.TelemetryConfig, opts ...Option) (*TelemetryProvider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "doorbell"
	}
	tp := &TelemetryProvider{config: cfg}
	for _, opt := range opts {
		opt(tp)
	}

	if tp.meterProvider == nil {
		tp.meterProvider = otel.GetMeterProvider()
	}

	switch {
	case tp.processor != nil:
		if err := tp.initTracing(tp.processor, false); err != nil {
			return nil, err
		}
	case cfg.Enabled:
		exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(tp.exporterOptions()...))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigInvalid, "create trace exporter")
		}
		if err := tp.initTracing(sdktrace.NewBatchSpanProcessor(exporter), true); err != nil {
			return nil, err
		}
	default:
		tp.tracer = otel.Tracer(instrumentationName)
	}

	if err := tp.initMetrics(); err != nil {
		return nil, err
	}
	return tp, nil
}

// Noop returns a provider that records nothing.
func Noop() *TelemetryProvider {
	tp, err := NewTelemetryProvider(config.TelemetryConfig{})
	if err != nil {
		// unreachable: the disabled path cannot fail
		panic(err)
	}
	return tp
}

func (tp *TelemetryProvider) exporterOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(tp.config.Endpoint)}
	if tp.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

func (tp *TelemetryProvider) initTracing(processor sdktrace.SpanProcessor, global bool) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(tp.config.ServiceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %v", err)
	}

	tp.traceProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)

	if global {
		otel.SetTracerProvider(tp.traceProvider)
		otel.SetTextMapPropagator(propagation.TraceContext{})
	}

	tp.tracer = tp.traceProvider.Tracer(instrumentationName,
		trace.WithInstrumentationVersion(Version),
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

func (tp *TelemetryProvider) initMetrics() error {
	tp.meter = tp.meterProvider.Meter(instrumentationName,
		metric.WithInstrumentationVersion(Version),
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	var err error
	if tp.notifications, err = tp.meter.Int64Counter(
		"doorbell_notifications_total",
		metric.WithDescription("Presses dispatched, by outcome"),
	); err != nil {
		return fmt.Errorf("create notifications counter: %v", err)
	}

	if tp.deliveryAttempts, err = tp.meter.Int64Counter(
		"doorbell_delivery_attempts_total",
		metric.WithDescription("Channel send attempts"),
	); err != nil {
		return fmt.Errorf("create delivery_attempts counter: %v", err)
	}

	if tp.deliveryFailures, err = tp.meter.Int64Counter(
		"doorbell_delivery_failures_total",
		metric.WithDescription("Channels that failed after all retries"),
	); err != nil {
		return fmt.Errorf("create delivery_failures counter: %v", err)
	}

	if tp.connects, err = tp.meter.Int64Counter(
		"doorbell_network_connects_total",
		metric.WithDescription("Network connection attempts, by outcome"),
	); err != nil {
		return fmt.Errorf("create network_connects counter: %v", err)
	}

	if tp.notifyDuration, err = tp.meter.Float64Histogram(
		"doorbell_notify_duration_seconds",
		metric.WithDescription("Time from dispatch start to indicator idle"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("create notify_duration histogram: %v", err)
	}

	if tp.attemptDuration, err = tp.meter.Float64Histogram(
		"doorbell_delivery_attempt_duration_seconds",
		metric.WithDescription("Duration of a single channel send"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("create attempt_duration histogram: %v", err)
	}
	return nil
}

// TraceNotify starts the span covering one dispatched press.
func (tp *TelemetryProvider) TraceNotify(ctx context.Context, eventID string, channels int) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "doorbell.notify",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("doorbell.event.id", eventID),
			attribute.Int("doorbell.channels.count", channels),
		),
	)
}

// TraceConnect starts the span covering a network connect.
func (tp *TelemetryProvider) TraceConnect(ctx context.Context) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "doorbell.connect", trace.WithSpanKind(trace.SpanKindInternal))
}

// TraceDelivery starts the span for one channel send attempt.
func (tp *TelemetryProvider) TraceDelivery(ctx context.Context, channel string, attempt int) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "doorbell.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("doorbell.channel", channel),
			attribute.Int("doorbell.attempt", attempt),
		),
	)
}

// RecordAttempt records one channel send.
func (tp *TelemetryProvider) RecordAttempt(ctx context.Context, channel string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("status", status),
	)
	tp.deliveryAttempts.Add(ctx, 1, attrs)
	tp.attemptDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFailure records a channel that exhausted its retries.
func (tp *TelemetryProvider) RecordFailure(ctx context.Context, channel string, err error) {
	tp.deliveryFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("error_code", string(errors.CodeOf(err))),
	))
}

// RecordConnect records a connect attempt made on behalf of a press.
func (tp *TelemetryProvider) RecordConnect(ctx context.Context, err error) {
	outcome := "connected"
	if err != nil {
		outcome = string(errors.CodeOf(err))
	}
	tp.connects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordNotify records a finished dispatch. outcome is "delivered",
// "partial" or "not_connected".
func (tp *TelemetryProvider) RecordNotify(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	tp.notifications.Add(ctx, 1, attrs)
	tp.notifyDuration.Record(ctx, duration.Seconds(), attrs)
}

// SetSpanError sets an error on the current span
func (tp *TelemetryProvider) SetSpanError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("doorbell.error.code", string(errors.CodeOf(err))))
	}
}

// SetSpanSuccess marks the span as successful
func (tp *TelemetryProvider) SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// Shutdown flushes pending spans.
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if tp.traceProvider != nil {
		return tp.traceProvider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the tracer instance
func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}
