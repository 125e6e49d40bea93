// Package limiter gates outbound calls to one LLM provider: at most one
// call in flight, and a minimum fixed delay between the start of
// successive calls, regardless of which user triggered them.
//
// This is a correctness requirement imposed by the providers' own abuse
// limits, not a performance knob; violating the spacing risks hard
// provider-side throttling.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter serializes calls to a single provider and spaces their starts.
type Limiter struct {
	// mu enforces the one-in-flight bound: a call holds it for its full
	// duration, so queued callers wait end-to-end.
	mu sync.Mutex

	// spacing enforces the minimum delay between call starts. Burst 1:
	// tokens refill at one per interval and never accumulate.
	spacing *rate.Limiter
}

// New creates a Limiter with the given minimum delay between call starts.
func New(minDelay time.Duration) *Limiter {
	return &Limiter{
		spacing: rate.NewLimiter(rate.Every(minDelay), 1),
	}
}

// Do runs fn once scheduling permits: after any in-flight call finishes
// and the inter-call spacing has elapsed. The error returned is fn's own,
// or ctx's if the wait is abandoned before fn starts.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.spacing.Wait(ctx); err != nil {
		return err
	}
	return fn()
}
