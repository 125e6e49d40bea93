// Package provider adapts the two LLM backends behind one behavioral
// contract: a request goes in, and either a complete text payload or a
// lazy stream of text increments comes out.
package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"iter"

	"github.com/llegomark/neko/internal/convo"
)

// Request is one reply request built from a user's session.
type Request struct {
	Model   string
	System  string
	History []convo.Turn
	Content string

	// MessageID is the triggering platform message ID. It is the stable
	// routing key for credential pools: repeated calls for the same
	// conceptual event route to the same credential.
	MessageID string
}

// Reply is the tagged result variant: Complete for turn-based providers,
// Stream for incremental ones. The renderer dispatches on the concrete
// type.
type Reply interface {
	isReply()
}

// Complete is a one-shot, fully materialized reply.
type Complete struct {
	Text string
}

func (Complete) isReply() {}

// Stream is a lazy, finite, non-restartable sequence of text increments.
// Iteration stops at the first non-nil error; a Stream must be consumed
// at most once.
type Stream struct {
	Chunks iter.Seq2[string, error]
}

func (Stream) isReply() {}

// Client is one provider backend.
type Client interface {
	// Reply performs or opens the provider call for req. For turn-based
	// providers the call has fully completed when Reply returns; for
	// streaming providers the returned Stream is consumed afterwards
	// and may yield an error mid-sequence.
	Reply(ctx context.Context, req Request) (Reply, error)
}

// StatusError is a provider failure carrying the numeric status code the
// provider reported, for mapping to a user-facing failure notice.
type StatusError struct {
	Provider string
	Status   int
	Err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s provider: status %d: %v", e.Provider, e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the provider-reported status.
func (e *StatusError) StatusCode() int { return e.Status }

// routeKey picks a credential index for messageID in a pool of size n
// using FNV-1a. Deterministic, not load-aware: the same message always
// routes to the same credential.
func routeKey(messageID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(messageID))
	return int(h.Sum32() % uint32(n))
}
