package input

import "time"

// Debouncer turns raw pin samples into presses. The input is active-low: a
// press is accepted after RequiredReads consecutive low samples, and the
// debouncer re-arms only once the pin has stayed high for the whole window.
// Contact bounce on press or release therefore never yields a second press.
//
// A Debouncer is not safe for concurrent use; each monitor owns one.
type Debouncer struct {
	requiredReads int
	window        time.Duration

	armed     bool
	lows      int
	highSince time.Time
	lastEdge  time.Time
}

// NewDebouncer creates a debouncer. It starts disarmed, so a pin held low at
// boot is not reported as a press.
func NewDebouncer(requiredReads int, window time.Duration) *Debouncer {
	if requiredReads < 1 {
		requiredReads = 1
	}
	if window < 0 {
		window = 0
	}
	return &Debouncer{requiredReads: requiredReads, window: window}
}

// Sample feeds one pin reading taken at now and reports whether it completes
// a press.
func (d *Debouncer) Sample(level bool, now time.Time) bool {
	if level {
		d.lows = 0
		if d.highSince.IsZero() {
			d.highSince = now
		}
		if !d.armed && now.Sub(d.highSince) >= d.window {
			d.armed = true
		}
		return false
	}

	d.highSince = time.Time{}
	if !d.armed {
		return false
	}
	d.lows++
	if d.lows < d.requiredReads {
		return false
	}
	d.armed = false
	d.lows = 0
	return true
}

// Edge reports whether a falling edge at t starts a new press. Edges closer
// than the window to the previous edge, accepted or not, are bounce.
func (d *Debouncer) Edge(t time.Time) bool {
	quiet := d.lastEdge.IsZero() || t.Sub(d.lastEdge) >= d.window
	d.lastEdge = t
	return quiet
}

// Armed reports whether the next low run can be accepted.
func (d *Debouncer) Armed() bool {
	return d.armed
}
