package channel

import (
	stderrors "errors"
	"net/url"

	"github.com/kart-io/doorbell/pkg/errors"
)

// SendEach calls send once per recipient, never stopping early, and joins the
// failures. Each failure is tagged with its channel and recipient.
func SendEach(channel string, recipients []string, send func(recipient string) error) error {
	var errs []error
	for _, r := range recipients {
		if err := send(r); err != nil {
			errs = append(errs, tag(err, channel, r))
		}
	}
	return stderrors.Join(errs...)
}

func tag(err error, channel, recipient string) error {
	if ne, ok := errors.As(err); ok {
		if ne.Channel == "" {
			ne.WithChannel(channel)
		}
		if ne.Target == "" {
			ne.WithTarget(recipient)
		}
		return ne
	}
	return errors.NewTransportError(channel, err).WithTarget(recipient)
}

// Redact shortens a credential-like recipient for logs.
func Redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

// RedactURL keeps only the scheme and host of a URL whose path may hold a secret.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "****"
	}
	return u.Scheme + "://" + u.Host + "/****"
}
