// Package channel defines the delivery channel contract shared by every
// notification backend, plus the helpers HTTP-based channels build on.
package channel

import (
	"context"
	"net/http"

	"github.com/kart-io/doorbell/pkg/message"
)

// Channel delivers one event to one external service. Send returns nil only
// when every recipient of the channel accepted the event.
type Channel interface {
	Name() string
	Send(ctx context.Context, ev *message.Event) error
}

// Closer is implemented by channels holding connections.
type Closer interface {
	Close() error
}

// HTTPDoer is the slice of *http.Client that channels use.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Close closes ch if it holds resources.
func Close(ch Channel) error {
	if c, ok := ch.(Closer); ok {
		return c.Close()
	}
	return nil
}
