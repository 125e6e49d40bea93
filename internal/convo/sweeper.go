package convo

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts idle sessions from a Store. The sweep
// period equals the inactivity window, so a session is dropped between
// one and two windows after its last activity.
type Sweeper struct {
	store  *Store
	window time.Duration

	// active reports whether a user currently has a typing indicator or
	// a queued/in-flight job; such sessions are never evicted.
	active func(userID string) bool

	logger *slog.Logger
}

// NewSweeper creates a Sweeper. active may be nil, in which case every
// idle session is eligible.
func NewSweeper(store *Store, window time.Duration, active func(string) bool, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		window: window,
		active: active,
		logger: logger,
	}
}

// Run sweeps until ctx is canceled. Eviction is pure memory reclamation;
// a failing pass never terminates the loop.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweep()
		}
	}
}

func (sw *Sweeper) sweep() {
	// A panic in the active callback must not kill the periodic task.
	defer func() {
		if r := recover(); r != nil {
			sw.logger.Error("session sweep panicked", "panic", r)
		}
	}()

	if n := sw.store.Sweep(sw.window, sw.active); n > 0 {
		sw.logger.Info("evicted idle sessions", "count", n, "window", sw.window)
	}
}
