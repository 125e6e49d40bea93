// Package channels tracks which guild channels the bot listens in.
// Direct messages bypass the allow list entirely; callers only consult
// it for guild traffic.
package channels

import (
	"slices"
	"sync"
)

// Store is an in-memory channel allow list. An empty store allows
// nothing, so a fresh deployment stays silent until an operator adds
// channels through the admin API.
type Store struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewStore(initial ...string) *Store {
	ids := make(map[string]struct{}, len(initial))
	for _, id := range initial {
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return &Store{ids: ids}
}

// Allowed reports whether the channel is on the list.
func (s *Store) Allowed(channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[channelID]
	return ok
}

// Add puts the channel on the list. Returns false if it was already
// present.
func (s *Store) Add(channelID string) bool {
	if channelID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[channelID]; ok {
		return false
	}
	s.ids[channelID] = struct{}{}
	return true
}

// Remove takes the channel off the list. Returns false if it was not
// present.
func (s *Store) Remove(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[channelID]; !ok {
		return false
	}
	delete(s.ids, channelID)
	return true
}

// List returns the allowed channel IDs in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of allowed channels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
