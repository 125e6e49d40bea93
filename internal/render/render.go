// Package render turns a provider reply, complete or streaming, into
// exactly one outbound message that is created once and edited toward
// the final text, respecting the platform's edit-rate and message-length
// limits.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/llegomark/neko/internal/provider"
)

// Sink is the outbound message surface of the chat platform.
type Sink interface {
	// Send posts a new message and returns its handle.
	Send(channelID, content string) (messageID string, err error)

	// Edit replaces the content of an existing message.
	Edit(channelID, messageID, content string) error
}

// fallbackReply replaces an empty final text; editing a platform message
// to empty content is rejected.
const fallbackReply = "> `*Neko stares blankly...* I couldn't come up with a reply, meow. Please try again.`"

// Renderer incrementally renders replies into a placeholder message.
// Safe for use by a single job at a time; the dispatcher serializes jobs.
type Renderer struct {
	sink           Sink
	editInterval   time.Duration
	flushThreshold int
	maxLength      int
	logger         *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// Config for a Renderer.
type Config struct {
	Sink Sink

	// EditInterval is the minimum time between successive edits.
	EditInterval time.Duration

	// FlushThreshold is the number of accumulated characters that
	// triggers an intermediate edit during streaming.
	FlushThreshold int

	// MaxLength is the platform's single-message length limit.
	MaxLength int

	Logger *slog.Logger
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	return &Renderer{
		sink:           cfg.Sink,
		editInterval:   cfg.EditInterval,
		flushThreshold: cfg.FlushThreshold,
		maxLength:      cfg.MaxLength,
		logger:         cfg.Logger,
		now:            time.Now,
	}
}

// Render converges the placeholder message onto the reply's full text
// and returns that text. For a Stream it coalesces increments, editing
// at most once per edit interval, and always performs one final flush.
// Text longer than the message limit is split on line boundaries: the
// first chunk edits the placeholder, the rest are sent as follow-ups in
// order.
//
// On error the placeholder is left with whatever progress was rendered;
// the caller owns replacing it with a failure notice.
func (r *Renderer) Render(ctx context.Context, channelID, messageID string, reply provider.Reply) (string, error) {
	switch rep := reply.(type) {
	case provider.Complete:
		text := rep.Text
		if text == "" {
			text = fallbackReply
		}
		return text, r.finalize(channelID, messageID, text)

	case provider.Stream:
		return r.renderStream(ctx, channelID, messageID, rep)

	default:
		return "", fmt.Errorf("unknown reply variant %T", reply)
	}
}

func (r *Renderer) renderStream(ctx context.Context, channelID, messageID string, stream provider.Stream) (string, error) {
	var buf strings.Builder
	pending := 0
	lastEdit := r.now()

	for chunk, err := range stream.Chunks {
		if err != nil {
			return buf.String(), err
		}
		if err := ctx.Err(); err != nil {
			return buf.String(), err
		}

		buf.WriteString(chunk)
		pending += len(chunk)

		// Coalesce: flush only when enough accumulated since the last
		// edit and the edit-rate limit allows it. Once the buffer
		// outgrows a single message, intermediate edits stop and the
		// final split handles everything.
		if pending < r.flushThreshold || r.now().Sub(lastEdit) < r.editInterval {
			continue
		}
		if len([]rune(buf.String())) > r.maxLength {
			continue
		}
		if err := r.sink.Edit(channelID, messageID, buf.String()); err != nil {
			return buf.String(), fmt.Errorf("editing streamed reply: %w", err)
		}
		pending = 0
		lastEdit = r.now()
	}

	text := buf.String()
	if text == "" {
		text = fallbackReply
	}
	return text, r.finalize(channelID, messageID, text)
}

// finalize writes the complete text: one edit of the placeholder, plus
// follow-up messages for any overflow chunks, preserving line order.
func (r *Renderer) finalize(channelID, messageID, text string) error {
	chunks := SplitMessage(text, r.maxLength)

	if err := r.sink.Edit(channelID, messageID, chunks[0]); err != nil {
		return fmt.Errorf("final edit: %w", err)
	}
	for _, chunk := range chunks[1:] {
		if _, err := r.sink.Send(channelID, chunk); err != nil {
			return fmt.Errorf("sending overflow chunk: %w", err)
		}
	}

	if len(chunks) > 1 {
		r.logger.Debug("reply split across messages",
			"channel_id", channelID,
			"messages", len(chunks),
			"chars", len(text))
	}
	return nil
}

// SplitMessage splits text into chunks of at most maxLength characters,
// breaking only on line boundaries and preserving line order. A single
// line longer than maxLength is the one exception: it is hard-wrapped,
// since it cannot fit any message whole.
func SplitMessage(text string, maxLength int) []string {
	if len([]rune(text)) <= maxLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)

		// Oversized single line: flush and hard-wrap it.
		if len(runes) > maxLength {
			flush()
			for len(runes) > maxLength {
				chunks = append(chunks, string(runes[:maxLength]))
				runes = runes[maxLength:]
			}
			current.WriteString(string(runes))
			currentLen = len(runes)
			continue
		}

		// +1 for the joining newline when the chunk is non-empty.
		need := len(runes)
		if currentLen > 0 {
			need++
		}
		if currentLen+need > maxLength {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n")
			currentLen++
		}
		current.WriteString(line)
		currentLen += len(runes)
	}
	flush()

	return chunks
}
