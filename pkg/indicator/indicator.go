// Package indicator drives the status LED from a small set of blink patterns.
package indicator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/doorbell/pkg/hal"
	"github.com/kart-io/doorbell/pkg/logger"
)

// State selects the blink pattern.
type State int32

const (
	Idle State = iota
	Connecting
	Sending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Sending:
		return "sending"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s >= Idle && s <= Sending
}

// Step is one segment of a pattern.
type Step struct {
	On       bool
	Duration time.Duration
}

// Pattern is played start to finish before the state is read again.
type Pattern []Step

// Duration is the length of one full cycle.
func (p Pattern) Duration() time.Duration {
	var d time.Duration
	for _, s := range p {
		d += s.Duration
	}
	return d
}

var (
	slowBlink = Pattern{{On: true, Duration: 500 * time.Millisecond}, {On: false, Duration: 500 * time.Millisecond}}
	fastBlink = Pattern{{On: true, Duration: 100 * time.Millisecond}, {On: false, Duration: 100 * time.Millisecond}}
	solid     = Pattern{{On: true, Duration: 100 * time.Millisecond}}
	heartbeat = Pattern{
		{On: false, Duration: 10 * time.Millisecond},
		{On: true, Duration: 10 * time.Millisecond},
		{On: true, Duration: 10 * time.Millisecond},
		{On: false, Duration: 10 * time.Millisecond},
		{On: true, Duration: 100 * time.Millisecond},
		{On: false, Duration: 400 * time.Millisecond},
	}
)

// DefaultPatterns returns the built-in pattern set. With heartbeat the idle
// state uses a double-pulse instead of the even blink.
func DefaultPatterns(useHeartbeat bool) map[State]Pattern {
	idle := slowBlink
	if useHeartbeat {
		idle = heartbeat
	}
	return map[State]Pattern{
		Idle:       idle,
		Connecting: fastBlink,
		Sending:    solid,
	}
}

// Options configures an Indicator.
type Options struct {
	Enabled   bool
	Heartbeat bool
	// Patterns overrides individual entries of DefaultPatterns.
	Patterns map[State]Pattern
}

// Indicator plays the pattern for the current state on an LED.
type Indicator struct {
	led      hal.LED
	enabled  bool
	patterns map[State]Pattern
	logger   logger.Logger

	state atomic.Int32

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	running  atomic.Bool
}

// New creates an indicator in the Idle state. It does nothing until Run is called.
func New(led hal.LED, opts Options, log logger.Logger) *Indicator {
	if log == nil {
		log = logger.Discard
	}
	patterns := DefaultPatterns(opts.Heartbeat)
	for st, p := range opts.Patterns {
		if st.Valid() && len(p) > 0 {
			patterns[st] = p
		}
	}
	return &Indicator{
		led:      led,
		enabled:  opts.Enabled && led != nil,
		patterns: patterns,
		logger:   log.With("component", "indicator"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetState switches the pattern from the next cycle on. Unknown states are ignored.
func (i *Indicator) SetState(s State) {
	if !s.Valid() {
		i.logger.Warn("Ignoring unknown indicator state", "state", int(s))
		return
	}
	if old := State(i.state.Swap(int32(s))); old != s {
		i.logger.Debug("Indicator state changed", "from", old, "to", s)
	}
}

// State returns the current state.
func (i *Indicator) State() State {
	return State(i.state.Load())
}

// Run plays patterns until ctx is cancelled or Stop is called, then turns the LED off.
func (i *Indicator) Run(ctx context.Context) error {
	if !i.running.CompareAndSwap(false, true) {
		return nil
	}
	defer close(i.done)
	defer i.Off()

	if !i.enabled {
		select {
		case <-ctx.Done():
		case <-i.stop:
		}
		return nil
	}

	for {
		pattern := i.patterns[i.State()]
		for _, step := range pattern {
			i.set(step.On)
			if !i.wait(ctx, step.Duration) {
				return nil
			}
		}
	}
}

func (i *Indicator) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-i.stop:
		return false
	case <-t.C:
		return true
	}
}

func (i *Indicator) set(on bool) {
	if err := i.led.Set(on); err != nil {
		i.logger.Debug("LED write failed", "error", err)
	}
}

// Off forces the LED off. The running loop may turn it on again at its next step.
func (i *Indicator) Off() {
	if !i.enabled {
		return
	}
	i.set(false)
}

// Stop ends Run and leaves the LED off. Safe to call more than once.
func (i *Indicator) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
	if i.running.Load() {
		<-i.done
	}
	i.Off()
}
