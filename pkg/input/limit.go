package input

import (
	"github.com/kart-io/doorbell/pkg/config"
	"github.com/kart-io/doorbell/pkg/errors"
	"github.com/kart-io/doorbell/pkg/message"
	"github.com/kart-io/doorbell/pkg/ratelimit"
)

// Limiter decides whether one more press may be posted.
type Limiter interface {
	Allow() bool
}

type limitedPoster struct {
	next    Poster
	limiter Limiter
}

// Limit returns a Poster that refuses presses the limiter denies with a
// PRESS_RATE_LIMITED error. A nil limiter returns next unchanged.
func Limit(next Poster, limiter Limiter) Poster {
	if limiter == nil {
		return next
	}
	return &limitedPoster{next: next, limiter: limiter}
}

func (p *limitedPoster) Post(ev *message.Event) error {
	if !p.limiter.Allow() {
		return errors.New(errors.ErrRateLimited, "too many presses").WithMetadata("event_id", ev.ID)
	}
	return p.next.Post(ev)
}

// LimiterFromConfig returns the configured press limiter, or nil when the
// limit is disabled. The bucket starts full so a burst of presses up to the
// limit goes through.
func LimiterFromConfig(cfg config.RateLimitConfig) Limiter {
	if cfg.Presses <= 0 || cfg.Per <= 0 {
		return nil
	}
	return ratelimit.NewTokenBucket(ratelimit.Per(cfg.Presses, cfg.Per.Std()), cfg.Presses)
}
