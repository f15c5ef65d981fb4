// Package queue provides the bounded single-consumer queue that feeds presses
// to the dispatcher one at a time.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/logger"
	"github.com/kart-io/doorbell/pkg/message"
)

// DefaultDepth is how many presses may wait behind the one being sent.
const DefaultDepth = 2

// Handler processes one event. The sender never runs two handlers at once.
type Handler func(ctx context.Context, ev *message.Event)

// Stats counts events through the sender.
type Stats struct {
	Posted  int64 `json:"posted"`
	Dropped int64 `json:"dropped"`
	Handled int64 `json:"handled"`
}

// Sender is a bounded FIFO drained by a single Run loop. Post never blocks:
// when the queue is full the newest event is dropped.
type Sender struct {
	events  chan *message.Event
	handler Handler
	logger  logger.Logger

	mu     sync.RWMutex
	closed bool

	busy    atomic.Bool
	posted  atomic.Int64
	dropped atomic.Int64
	handled atomic.Int64
}

// NewSender creates a sender holding up to depth waiting events.
func NewSender(depth int, handler Handler, log logger.Logger) *Sender {
	if log == nil {
		log = logger.Discard
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Sender{
		events:  make(chan *message.Event, depth),
		handler: handler,
		logger:  log.With("component", "queue"),
	}
}

// Post enqueues ev without blocking. It returns a QUEUE_FULL error when the
// event was dropped and QUEUE_CLOSED after Close.
func (s *Sender) Post(ev *message.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.New(errors.ErrQueueClosed, "sender is closed")
	}

	select {
	case s.events <- ev:
		s.posted.Add(1)
		s.logger.Debug("Event queued", "id", ev.ID, "pending", len(s.events))
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("Queue full, dropping press", "id", ev.ID, "capacity", cap(s.events))
		return errors.Newf(errors.ErrQueueFull, "queue full (capacity %d)", cap(s.events)).
			WithMetadata("event_id", ev.ID)
	}
}

// Run handles events in order until ctx is cancelled or the sender is closed
// and drained.
func (s *Sender) Run(ctx context.Context) error {
	s.logger.Info("Sender started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sender stopping", "pending", len(s.events))
			return ctx.Err()
		case ev, ok := <-s.events:
			if !ok {
				s.logger.Info("Sender drained and closed")
				return nil
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Sender) handle(ctx context.Context, ev *message.Event) {
	s.busy.Store(true)
	defer s.busy.Store(false)

	s.logger.Debug("Handling event", "id", ev.ID, "waited", ev.Age())
	s.handler(ctx, ev)
	s.handled.Add(1)
}

// Close stops accepting events. Run finishes the events already queued.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Busy reports whether a handler is running.
func (s *Sender) Busy() bool {
	return s.busy.Load()
}

// Pending returns the number of queued events.
func (s *Sender) Pending() int {
	return len(s.events)
}

// Stats returns a snapshot of the counters.
func (s *Sender) Stats() Stats {
	return Stats{
		Posted:  s.posted.Load(),
		Dropped: s.dropped.Load(),
		Handled: s.handled.Load(),
	}
}
