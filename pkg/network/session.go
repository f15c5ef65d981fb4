// Package network owns the single wireless connection shared by every delivery channel.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/hal"
	"github.com/kart-io/doorbell/pkg/logger"
)

// State is the session lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Options tunes the connect loop.
type Options struct {
	SSID     string
	Password string

	// MaxAttempts bounds the status polls of one Connect call.
	MaxAttempts int
	// PollInterval is the wait between status polls.
	PollInterval time.Duration
	// HardResetEvery power-cycles the radio every N attempts; 0 disables it.
	HardResetEvery int
	// HardResetPause is each of the three pauses inside a hard reset.
	HardResetPause time.Duration
}

// DefaultOptions mirrors the firmware defaults: 120 polls at 500ms, hard reset every 15.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    120,
		PollInterval:   500 * time.Millisecond,
		HardResetEvery: 15,
		HardResetPause: time.Second,
	}
}

// Session manages the radio's connect/disconnect lifecycle.
// Only one connection attempt runs at a time; concurrent callers wait for it.
type Session struct {
	radio  hal.Radio
	opts   Options
	logger logger.Logger

	attemptMu sync.Mutex

	mu    sync.RWMutex
	state State
	// active is true from SetActive(true) until the radio is powered down.
	active bool
}

// NewSession creates a session around radio. Zero option fields take defaults.
func NewSession(radio hal.Radio, opts Options, log logger.Logger) *Session {
	if log == nil {
		log = logger.Discard
	}
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.HardResetEvery < 0 {
		opts.HardResetEvery = 0
	}
	if opts.HardResetPause < 0 {
		opts.HardResetPause = 0
	}

	return &Session{
		radio:  radio,
		opts:   opts,
		logger: log.With("component", "network"),
	}
}

// IsConnected is a cheap, non-blocking status query.
func (s *Session) IsConnected() bool {
	return s.radio.IsConnected()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Connect activates the radio and waits for an address, bounded by MaxAttempts.
// WrongPassword and NoAPFound end the attempt immediately. A failed Connect
// leaves the radio powered down.
func (s *Session) Connect(ctx context.Context) error {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()

	if s.radio.IsConnected() {
		s.setState(Connected)
		s.logger.Debug("Already connected")
		return nil
	}

	s.setState(Connecting)
	start := time.Now()
	s.logger.Info("Connecting to WiFi", "ssid", s.opts.SSID)

	err := s.connect(ctx)
	if err != nil {
		if perr := s.powerDown(); perr != nil {
			s.logger.Warn("Power down after failed connect", "error", perr)
		}
		s.logger.Error("WiFi connection failed", "error", err, "elapsed", time.Since(start))
		return err
	}

	s.setState(Connected)
	s.logger.Info("WiFi connected", "elapsed", time.Since(start))
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	if err := s.radio.SetActive(true); err != nil {
		return errors.Wrap(err, errors.ErrHardware, "activate radio")
	}
	s.active = true

	associated := s.associate(0)
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if s.radio.IsConnected() {
			return nil
		}

		if s.opts.HardResetEvery > 0 && attempt%s.opts.HardResetEvery == 0 {
			s.logger.Warn("Periodic hard reset of radio", "attempt", attempt)
			ok, err := s.hardReset(ctx, attempt)
			if err != nil {
				return err
			}
			associated = ok
			continue
		}

		if !associated {
			associated = s.associate(attempt)
		} else {
			status := s.radio.Status()
			s.logger.Debug("Connection attempt", "attempt", attempt, "max", s.opts.MaxAttempts, "status", status)

			switch status {
			case hal.StatusGotIP:
				return nil
			case hal.StatusWrongPassword:
				return errors.New(errors.ErrConnectWrongCredentials, "access point rejected the password").
					WithAttemptCount(attempt)
			case hal.StatusNoAPFound:
				return errors.Newf(errors.ErrConnectNetworkNotFound, "network %q not found", s.opts.SSID).
					WithAttemptCount(attempt)
			case hal.StatusConnectFailed:
				s.logger.Warn("Association failed, retrying", "attempt", attempt)
				associated = s.associate(attempt)
			}
		}

		if err := sleep(ctx, s.opts.PollInterval); err != nil {
			return errors.Wrap(err, errors.ErrConnectTimeout, "connect cancelled").WithAttemptCount(attempt)
		}
	}

	if s.radio.IsConnected() {
		return nil
	}
	if !associated {
		return errors.Newf(errors.ErrConnectTransient, "radio never associated in %d attempts", s.opts.MaxAttempts).
			WithAttemptCount(s.opts.MaxAttempts)
	}
	return errors.Newf(errors.ErrConnectTimeout, "no connection after %d attempts", s.opts.MaxAttempts).
		WithAttemptCount(s.opts.MaxAttempts).
		WithMetadata("status", s.radio.Status().String())
}

// associate starts joining the network. A driver error is logged and left to
// the poll loop to retry.
func (s *Session) associate(attempt int) bool {
	if err := s.radio.Associate(s.opts.SSID, s.opts.Password); err != nil {
		s.logger.Warn("Associate failed, will retry", "attempt", attempt, "error", err)
		return false
	}
	return true
}

// hardReset power-cycles the radio to recover a wedged driver and reports
// whether the fresh association was accepted.
func (s *Session) hardReset(ctx context.Context, attempt int) (bool, error) {
	_ = s.radio.Disassociate()
	if err := s.radio.SetActive(false); err != nil {
		s.logger.Warn("Deactivate during hard reset failed", "error", err)
	}
	if err := sleep(ctx, s.opts.HardResetPause); err != nil {
		return false, errors.Wrap(err, errors.ErrConnectTimeout, "connect cancelled")
	}
	if err := s.radio.SetActive(true); err != nil {
		return false, errors.Wrap(err, errors.ErrHardware, "reactivate radio")
	}
	if err := sleep(ctx, s.opts.HardResetPause); err != nil {
		return false, errors.Wrap(err, errors.ErrConnectTimeout, "connect cancelled")
	}
	associated := s.associate(attempt)
	if err := sleep(ctx, s.opts.HardResetPause); err != nil {
		return false, errors.Wrap(err, errors.ErrConnectTimeout, "connect cancelled")
	}
	return associated, nil
}

// Disconnect leaves the network and powers the radio down. Safe to call when
// already disconnected.
func (s *Session) Disconnect() error {
	s.attemptMu.Lock()
	defer s.attemptMu.Unlock()

	if !s.radio.IsConnected() && !s.active && s.State() == Disconnected {
		return nil
	}

	if err := s.powerDown(); err != nil {
		s.logger.Warn("WiFi disconnect error", "error", err)
		return err
	}
	s.logger.Info("WiFi disconnected")
	return nil
}

// powerDown leaves the network and switches the radio off. Callers hold attemptMu.
func (s *Session) powerDown() error {
	var firstErr error
	if err := s.radio.Disassociate(); err != nil {
		firstErr = errors.Wrap(err, errors.ErrHardware, "disassociate")
	}
	if err := s.radio.SetActive(false); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, errors.ErrHardware, "deactivate radio")
	}
	s.active = false
	s.setState(Disconnected)
	return firstErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
