package dispatch

import (
	"time"
)

// Outcomes reported to telemetry and logs.
const (
	OutcomeDelivered    = "delivered"
	OutcomePartial      = "partial"
	OutcomeNotConnected = "not_connected"
)

// Entry is the ledger line for one channel.
type Entry struct {
	Attempts int
	LastErr  error
}

// Ledger tracks attempts per channel for a single Notify call.
type Ledger struct {
	entries map[string]*Entry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// Record notes one attempt on channel and its result.
func (l *Ledger) Record(channel string, err error) {
	e, ok := l.entries[channel]
	if !ok {
		e = &Entry{}
		l.entries[channel] = e
	}
	e.Attempts++
	e.LastErr = err
}

// Attempts returns how often channel was tried.
func (l *Ledger) Attempts(channel string) int {
	if e, ok := l.entries[channel]; ok {
		return e.Attempts
	}
	return 0
}

// LastError returns the error of the most recent attempt on channel.
func (l *Ledger) LastError(channel string) error {
	if e, ok := l.entries[channel]; ok {
		return e.LastErr
	}
	return nil
}

// Failure is a channel that never succeeded.
type Failure struct {
	Channel string
	Err     error
}

// Report summarises one Notify call.
type Report struct {
	EventID  string
	Attempts map[string]int
	Failed   []Failure

	// Connected is true when this call brought the network up.
	Connected  bool
	ConnectErr error
	Duration   time.Duration
}

func newReport(eventID string) *Report {
	return &Report{EventID: eventID, Attempts: make(map[string]int)}
}

func (r *Report) fill(l *Ledger) {
	for name, e := range l.entries {
		r.Attempts[name] = e.Attempts
	}
}

// Delivered reports whether every channel succeeded.
func (r *Report) Delivered() bool {
	return r.ConnectErr == nil && len(r.Failed) == 0
}

// FailedChannels returns the names of the failed channels in channel order.
func (r *Report) FailedChannels() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Channel)
	}
	return names
}

// Outcome classifies the report.
func (r *Report) Outcome() string {
	switch {
	case r.ConnectErr != nil:
		return OutcomeNotConnected
	case len(r.Failed) > 0:
		return OutcomePartial
	default:
		return OutcomeDelivered
	}
}
