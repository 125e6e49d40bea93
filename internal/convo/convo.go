// Package convo owns all per-user conversational state: history turns,
// preferences, and activity timestamps.
//
// The [Store] is the only owner of session records; other components
// borrow state through its operations and never hold long-lived
// references. All operations are synchronous and in-memory; absent users
// resolve to defaults, never to errors.
package convo

import (
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation, in causal order.
type Turn struct {
	Role    string
	Content string
}

// Preferences are a user's model and system prompt selections.
// Fields are always fully resolved; an absent user gets the process-wide
// defaults, never a partially undefined record.
type Preferences struct {
	Model  string
	Prompt string
}

// Update carries a partial preference change. Empty fields are left
// unchanged, so set merges rather than replaces.
type Update struct {
	Model  string
	Prompt string
}

// session aggregates one user's in-memory state. Owned exclusively by
// Store; never escapes the package.
type session struct {
	turns      []Turn
	prefs      Preferences
	channelID  string
	lastActive time.Time
}
