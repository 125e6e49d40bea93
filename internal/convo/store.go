package convo

import (
	"sync"
	"time"
)

// Store is the session table: per-user history, preferences, and
// last-activity bookkeeping, keyed by Discord user ID.
//
// Store is safe for concurrent use. Reads return point-in-time snapshots;
// mutation is confined to the dispatcher/renderer path and the command
// handlers.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	defaults Preferences

	// now is replaceable in tests.
	now func() time.Time
}

// NewStore creates a Store with the given process-wide preference defaults.
func NewStore(defaults Preferences) *Store {
	return &Store{
		sessions: make(map[string]*session),
		defaults: defaults,
		now:      time.Now,
	}
}

// lockedSession returns the session for userID, creating it with default
// preferences if absent. Caller must hold s.mu.
func (s *Store) lockedSession(userID string) *session {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{
			prefs:      s.defaults,
			lastActive: s.now(),
		}
		s.sessions[userID] = sess
	}
	return sess
}

// History returns a copy of the user's conversation turns, oldest first.
// Empty slice if the user has no history.
func (s *Store) History(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	turns := make([]Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns
}

// AppendTurn appends one turn to the user's history.
func (s *Store) AppendTurn(userID string, t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lockedSession(userID)
	sess.turns = append(sess.turns, t)
	sess.lastActive = s.now()
}

// AppendExchange commits a completed user/assistant exchange in order.
func (s *Store) AppendExchange(userID, userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lockedSession(userID)
	sess.turns = append(sess.turns,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant, Content: assistantText},
	)
	sess.lastActive = s.now()
}

// ClearHistory drops the user's turns but preserves preferences.
func (s *Store) ClearHistory(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return
	}
	sess.turns = nil
	sess.lastActive = s.now()
}

// Preferences returns the user's preferences, creating a default-backed
// record if absent.
func (s *Store) Preferences(userID string) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedSession(userID).prefs
}

// SetPreferences merges the non-empty fields of u into the user's
// preferences.
func (s *Store) SetPreferences(userID string, u Update) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lockedSession(userID)
	if u.Model != "" {
		sess.prefs.Model = u.Model
	}
	if u.Prompt != "" {
		sess.prefs.Prompt = u.Prompt
	}
	sess.lastActive = s.now()
	return sess.prefs
}

// ResetPreferences restores the process-wide defaults.
func (s *Store) ResetPreferences(userID string) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lockedSession(userID)
	sess.prefs = s.defaults
	sess.lastActive = s.now()
	return sess.prefs
}

// IsNewConversation reports whether the user's history is empty.
// Callers deciding whether an exchange opened a conversation must read
// this before appending that exchange.
func (s *Store) IsNewConversation(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	return !ok || len(sess.turns) == 0
}

// Touch updates the user's last-activity timestamp and owning channel.
func (s *Store) Touch(userID, channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lockedSession(userID)
	sess.lastActive = s.now()
	if channelID != "" {
		sess.channelID = channelID
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes every session whose last activity is older than window,
// except those active reports as busy (typing or queued/in-flight);
// those are deferred to a later pass. Returns the number evicted.
func (s *Store) Sweep(window time.Duration, active func(userID string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	evicted := 0
	for userID, sess := range s.sessions {
		if sess.lastActive.After(cutoff) {
			continue
		}
		if active != nil && active(userID) {
			continue
		}
		delete(s.sessions, userID)
		evicted++
	}
	return evicted
}
