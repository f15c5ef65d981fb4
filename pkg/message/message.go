// Package message provides the notification event passed from the input monitor to the dispatcher
package message

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies what produced an event.
type Source string

const (
	SourcePoll   Source = "poll"
	SourceEdge   Source = "edge"
	SourceManual Source = "manual"
)

// Event is one doorbell press turned into a notification.
// Events are immutable once created; channels only read them.
type Event struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Title     string    `json:"title,omitempty"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates an event stamped with a fresh id and the current time.
func New(text, title string, source Source) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Text:      text,
		Title:     title,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// TitleOr returns the event title, or fallback when the event has none.
func (e *Event) TitleOr(fallback string) string {
	if e.Title != "" {
		return e.Title
	}
	return fallback
}

// Age reports how long ago the event was created.
func (e *Event) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
