// Package presence maintains the per-user "a reply is being composed"
// state and drives the repeating typing keep-alive toward the chat
// platform. The platform indicator expires after a few seconds, so it is
// re-sent on a fixed interval until stopped.
package presence

import (
	"log/slog"
	"sync"
	"time"
)

// Signaler emits one transient typing indicator to a channel.
// Fire-and-forget: failures are cosmetic and are logged, not propagated.
type Signaler interface {
	SignalTyping(channelID string) error
}

// Tracker tracks which users have a reply in flight and keeps their
// typing indicator alive. Safe for concurrent use.
type Tracker struct {
	signaler Signaler
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*typingState
}

type typingState struct {
	channelID string
	stop      chan struct{}
	done      chan struct{}
}

// NewTracker creates a Tracker that re-signals typing every interval.
func NewTracker(signaler Signaler, interval time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		signaler: signaler,
		interval: interval,
		logger:   logger,
		active:   make(map[string]*typingState),
	}
}

// StartTyping transitions the user to Typing and begins the keep-alive
// loop. Starting an already-typing user restarts the loop on the given
// channel.
func (t *Tracker) StartTyping(userID, channelID string) {
	t.mu.Lock()
	if prev, ok := t.active[userID]; ok {
		close(prev.stop)
		<-prev.done
	}
	st := &typingState{
		channelID: channelID,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	t.active[userID] = st
	t.mu.Unlock()

	go t.keepAlive(userID, st)
}

// keepAlive signals immediately and then on every tick until stopped.
func (t *Tracker) keepAlive(userID string, st *typingState) {
	defer close(st.done)

	t.signal(userID, st.channelID)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			t.signal(userID, st.channelID)
		}
	}
}

func (t *Tracker) signal(userID, channelID string) {
	if err := t.signaler.SignalTyping(channelID); err != nil {
		// Presence is cosmetic; never let a failed indicator surface.
		t.logger.Debug("typing signal failed",
			"user_id", userID,
			"channel_id", channelID,
			"error", err)
	}
}

// StopTyping transitions the user back to Idle and cancels the
// keep-alive. Idempotent: stopping an idle user is a no-op.
func (t *Tracker) StopTyping(userID string) {
	t.mu.Lock()
	st, ok := t.active[userID]
	if ok {
		delete(t.active, userID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	close(st.stop)
	<-st.done
}

// IsTyping reports whether the user currently has a reply being composed.
func (t *Tracker) IsTyping(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[userID]
	return ok
}

// TypingInChannel returns the users currently typing in channelID.
// Used for gateway housekeeping when a channel is deleted.
func (t *Tracker) TypingInChannel(channelID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var users []string
	for userID, st := range t.active {
		if st.channelID == channelID {
			users = append(users, userID)
		}
	}
	return users
}

// StopAll cancels every keep-alive loop. Called on shutdown.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	states := make([]*typingState, 0, len(t.active))
	for _, st := range t.active {
		states = append(states, st)
	}
	t.active = make(map[string]*typingState)
	t.mu.Unlock()

	for _, st := range states {
		close(st.stop)
		<-st.done
	}
}
