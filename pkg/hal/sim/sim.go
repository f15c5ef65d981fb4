// Package sim provides in-memory implementations of the hal primitives, used by
// tests and by `doorbell run --simulate` on a development machine.
package sim

import (
	"sync"
	"time"

	"github.com/kart-io/doorbell/pkg/hal"
)

// Pin is a settable input that idles high (pull-up).
type Pin struct {
	mu    sync.Mutex
	level bool
	err   error
}

// NewPin returns a pin reading high.
func NewPin() *Pin {
	return &Pin{level: true}
}

// Read implements hal.Pin.
func (p *Pin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, p.err
}

// Set drives the simulated level.
func (p *Pin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

// SetError makes subsequent reads fail with err (nil clears it).
func (p *Pin) SetError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Press holds the pin low for d, then releases it.
func (p *Pin) Press(d time.Duration) {
	p.Set(false)
	time.Sleep(d)
	p.Set(true)
}

// LED records every level written to it.
type LED struct {
	mu      sync.Mutex
	on      bool
	changes int
	history []bool
}

// NewLED returns an LED that is off.
func NewLED() *LED {
	return &LED{}
}

// Set implements hal.LED.
func (l *LED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on != l.on {
		l.changes++
	}
	l.on = on
	l.history = append(l.history, on)
	return nil
}

// On reports the current level.
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Changes reports how many times the level flipped.
func (l *LED) Changes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changes
}

// History returns a copy of every written level.
func (l *LED) History() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.history...)
}

// Radio is a scriptable wireless interface. After Associate it walks through
// Script one entry per Status call; the last entry repeats. An empty script
// connects on the first poll.
type Radio struct {
	mu         sync.Mutex
	active     bool
	associated bool
	connected  bool
	script     []hal.RadioStatus
	pos        int
	assocErrs  []error

	Associations    int
	Disassociations int
	Activations     int
	Deactivations   int
}

// NewRadio returns an inactive radio following script.
func NewRadio(script ...hal.RadioStatus) *Radio {
	return &Radio{script: script}
}

// SetScript replaces the status script and rewinds it.
func (r *Radio) SetScript(script ...hal.RadioStatus) {
	r.mu.Lock()
	r.script = script
	r.pos = 0
	r.mu.Unlock()
}

// FailAssociate makes the next len(errs) Associate calls return errs in order.
func (r *Radio) FailAssociate(errs ...error) {
	r.mu.Lock()
	r.assocErrs = append(r.assocErrs, errs...)
	r.mu.Unlock()
}

// Active reports whether the radio is powered.
func (r *Radio) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ForceConnected marks the radio associated with an address, as if it had
// joined before the caller looked.
func (r *Radio) ForceConnected() {
	r.mu.Lock()
	r.active, r.associated, r.connected = true, true, true
	r.mu.Unlock()
}

// SetActive implements hal.Radio.
func (r *Radio) SetActive(active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active {
		r.Activations++
	} else {
		r.Deactivations++
		r.associated, r.connected = false, false
	}
	r.active = active
	return nil
}

// Associate implements hal.Radio. Only successful calls are counted.
func (r *Radio) Associate(string, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.assocErrs) > 0 {
		err := r.assocErrs[0]
		r.assocErrs = r.assocErrs[1:]
		return err
	}
	r.Associations++
	r.associated = true
	return nil
}

// Disassociate implements hal.Radio.
func (r *Radio) Disassociate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Disassociations++
	r.associated, r.connected = false, false
	return nil
}

// Status implements hal.Radio.
func (r *Radio) Status() hal.RadioStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected {
		return hal.StatusGotIP
	}
	if !r.active || !r.associated {
		return hal.StatusIdle
	}
	st := hal.StatusGotIP
	if len(r.script) > 0 {
		idx := r.pos
		if idx >= len(r.script) {
			idx = len(r.script) - 1
		}
		st = r.script[idx]
		r.pos++
	}
	if st == hal.StatusGotIP {
		r.connected = true
	}
	return st
}

// IsConnected implements hal.Radio.
func (r *Radio) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

var (
	_ hal.Pin   = (*Pin)(nil)
	_ hal.LED   = (*LED)(nil)
	_ hal.Radio = (*Radio)(nil)
)
