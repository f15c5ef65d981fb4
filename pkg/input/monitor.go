// Package input watches the doorbell pin and posts one event per press.
package input

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/hal"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// Poster accepts events without blocking. *queue.Sender implements it.
type Poster interface {
	Post(ev *message.Event) error
}

// Options configure a monitor.
type Options struct {
	Text           string
	Title          string
	SampleInterval time.Duration
	RequiredReads  int
	Window         time.Duration
}

// DefaultOptions returns the stock timing with the given message.
func DefaultOptions(text, title string) Options {
	return Options{
		Text:           text,
		Title:          title,
		SampleInterval: time.Millisecond,
		RequiredReads:  3,
		Window:         15 * time.Millisecond,
	}
}

// OptionsFromConfig maps the input and message sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Text:           cfg.Message.Text,
		Title:          cfg.Message.Title,
		SampleInterval: cfg.Input.SampleInterval.Std(),
		RequiredReads:  cfg.Input.RequiredReads,
		Window:         cfg.Input.Debounce.Std(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions(o.Text, o.Title)
	if o.SampleInterval <= 0 {
		o.SampleInterval = def.SampleInterval
	}
	if o.RequiredReads <= 0 {
		o.RequiredReads = def.RequiredReads
	}
	if o.Window < 0 {
		o.Window = def.Window
	}
	return o
}

type monitor struct {
	poster  Poster
	opts    Options
	source  message.Source
	logger  logger.Logger
	presses atomic.Int64
}

func (m *monitor) post() {
	ev := message.New(m.opts.Text, m.opts.Title, m.source)
	m.presses.Add(1)
	m.logger.Info("Doorbell pressed", "id", ev.ID, "source", ev.Source)

	if err := m.poster.Post(ev); err != nil {
		switch errors.CodeOf(err) {
		case errors.ErrQueueFull:
			m.logger.Debug("Press dropped", "id", ev.ID)
			return
		case errors.ErrRateLimited:
			m.logger.Info("Press ignored, rate limit reached", "id", ev.ID)
			return
		}
		m.logger.Warn("Failed to queue press", "id", ev.ID, "error", err)
	}
}

// Presses returns how many presses were accepted.
func (m *monitor) Presses() int64 {
	return m.presses.Load()
}

// PollMonitor samples the pin on a fixed interval.
type PollMonitor struct {
	monitor
	pin       hal.Pin
	debouncer *Debouncer
}

// NewPollMonitor creates a polling monitor.
func NewPollMonitor(pin hal.Pin, poster Poster, opts Options, log logger.Logger) *PollMonitor {
	if log == nil {
		log = logger.Discard
	}
	opts = opts.withDefaults()
	return &PollMonitor{
		monitor: monitor{
			poster: poster,
			opts:   opts,
			source: message.SourcePoll,
			logger: log.With("component", "input", "strategy", "poll"),
		},
		pin:       pin,
		debouncer: NewDebouncer(opts.RequiredReads, opts.Window),
	}
}

// Run samples until ctx is cancelled. Read errors are logged once per outage
// and treated as "not pressed".
func (m *PollMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.SampleInterval)
	defer ticker.Stop()

	m.logger.Info("Monitoring doorbell", "interval", m.opts.SampleInterval, "debounce", m.opts.Window)
	failing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			level, err := m.pin.Read()
			if err != nil {
				if !failing {
					m.logger.Error("Pin read failed", "error", err)
					failing = true
				}
				level = true
			} else if failing {
				m.logger.Info("Pin read recovered")
				failing = false
			}
			if m.debouncer.Sample(level, now) {
				m.post()
			}
		}
	}
}

// EdgeMonitor consumes falling-edge timestamps pushed by an interrupt handler.
type EdgeMonitor struct {
	monitor
	pin       hal.Pin
	debouncer *Debouncer
}

// NewEdgeMonitor creates an edge monitor. When pin is non-nil every edge is
// confirmed by RequiredReads low samples before it counts.
func NewEdgeMonitor(pin hal.Pin, poster Poster, opts Options, log logger.Logger) *EdgeMonitor {
	if log == nil {
		log = logger.Discard
	}
	opts = opts.withDefaults()
	return &EdgeMonitor{
		monitor: monitor{
			poster: poster,
			opts:   opts,
			source: message.SourceEdge,
			logger: log.With("component", "input", "strategy", "edge"),
		},
		pin:       pin,
		debouncer: NewDebouncer(opts.RequiredReads, opts.Window),
	}
}

// Run handles edges until ctx is cancelled or edges is closed.
func (m *EdgeMonitor) Run(ctx context.Context, edges <-chan time.Time) error {
	m.logger.Info("Monitoring doorbell", "debounce", m.opts.Window)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-edges:
			if !ok {
				m.logger.Info("Edge source closed")
				return nil
			}
			if !m.debouncer.Edge(t) {
				m.logger.Debug("Edge ignored", "at", t)
				continue
			}
			if !m.confirm(ctx) {
				m.logger.Debug("Edge not confirmed", "at", t)
				continue
			}
			m.post()
		}
	}
}

func (m *EdgeMonitor) confirm(ctx context.Context) bool {
	if m.pin == nil {
		return true
	}
	for i := 0; i < m.opts.RequiredReads; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(m.opts.SampleInterval):
			}
		}
		level, err := m.pin.Read()
		if err != nil || level {
			return false
		}
	}
	return true
}

// Edges is a buffered edge source for interrupt handlers.
type Edges struct {
	ch      chan time.Time
	dropped atomic.Int64
}

// NewEdges creates an edge source buffering up to size edges.
func NewEdges(size int) *Edges {
	if size < 1 {
		size = 1
	}
	return &Edges{ch: make(chan time.Time, size)}
}

// Fire records a falling edge now. It never blocks; edges arriving while the
// buffer is full are counted and discarded.
func (e *Edges) Fire() {
	select {
	case e.ch <- time.Now():
	default:
		e.dropped.Add(1)
	}
}

// C returns the channel EdgeMonitor.Run consumes.
func (e *Edges) C() <-chan time.Time {
	return e.ch
}

// Dropped returns the number of discarded edges.
func (e *Edges) Dropped() int64 {
	return e.dropped.Load()
}
