package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/llegomark/neko/internal/log"
	"github.com/llegomark/neko/internal/provider"
)

// mockSink records sends and edits.
type mockSink struct {
	sends   []string
	edits   []string
	editErr error
	sendErr error
}

func (m *mockSink) Send(channelID, content string) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sends = append(m.sends, content)
	return fmt.Sprintf("m%d", len(m.sends)), nil
}

func (m *mockSink) Edit(channelID, messageID, content string) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, content)
	return nil
}

func newTestRenderer(sink Sink, flushThreshold, maxLength int) *Renderer {
	return New(Config{
		Sink:           sink,
		EditInterval:   0, // no rate limiting in unit tests unless stated
		FlushThreshold: flushThreshold,
		MaxLength:      maxLength,
		Logger:         log.NewNop(),
	})
}

func streamOf(chunks ...string) provider.Stream {
	return provider.Stream{Chunks: func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}}
}

func TestRender_Complete_SingleEdit(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	r := newTestRenderer(sink, 10, 2000)

	got, err := r.Render(context.Background(), "c1", "m1", provider.Complete{Text: "hello"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "hello" {
		t.Errorf("final text = %q, want hello", got)
	}
	if len(sink.edits) != 1 || sink.edits[0] != "hello" {
		t.Errorf("edits = %v, want exactly [hello]", sink.edits)
	}
	if len(sink.sends) != 0 {
		t.Errorf("sends = %v, want none", sink.sends)
	}
}

func TestRender_Stream_ConvergesToFullText(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	r := newTestRenderer(sink, 3, 2000)

	got, err := r.Render(context.Background(), "c1", "m1", streamOf("Hel", "lo wo", "rld"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("final text = %q, want %q", got, "Hello world")
	}

	// The last edit always carries the complete buffer.
	last := sink.edits[len(sink.edits)-1]
	if last != "Hello world" {
		t.Errorf("last edit = %q, want full text", last)
	}

	// Edit bound: at most ceil(total/threshold)+1.
	maxEdits := (len("Hello world")+2)/3 + 1
	if len(sink.edits) > maxEdits {
		t.Errorf("edits = %d, want <= %d", len(sink.edits), maxEdits)
	}

	// Edits are monotone prefixes of the final text: increment order
	// preserved, nothing reordered or dropped.
	for i, edit := range sink.edits {
		if !strings.HasPrefix("Hello world", edit) {
			t.Errorf("edit %d = %q is not a prefix of the final text", i, edit)
		}
	}
}

func TestRender_Stream_CoalescesBelowThreshold(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	r := newTestRenderer(sink, 1000, 2000)

	_, err := r.Render(context.Background(), "c1", "m1", streamOf("a", "b", "c"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// Everything below the threshold: only the final flush edits.
	if len(sink.edits) != 1 || sink.edits[0] != "abc" {
		t.Errorf("edits = %v, want exactly [abc]", sink.edits)
	}
}

func TestRender_Stream_RespectsEditInterval(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	r := New(Config{
		Sink:           sink,
		EditInterval:   time.Hour,
		FlushThreshold: 1,
		MaxLength:      2000,
		Logger:         log.NewNop(),
	})

	_, err := r.Render(context.Background(), "c1", "m1", streamOf("a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// The interval never elapses, so only the final flush runs.
	if len(sink.edits) != 1 {
		t.Errorf("edits = %d, want 1 (final flush only)", len(sink.edits))
	}
}

func TestRender_Stream_MidStreamError(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	r := newTestRenderer(sink, 3, 2000)
	cause := errors.New("stream broke")

	stream := provider.Stream{Chunks: func(yield func(string, error) bool) {
		if !yield("partial", nil) {
			return
		}
		yield("", cause)
	}}

	partial, err := r.Render(context.Background(), "c1", "m1", stream)
	if !errors.Is(err, cause) {
		t.Fatalf("Render err = %v, want %v", err, cause)
	}
	if partial != "partial" {
		t.Errorf("partial text = %q, want %q", partial, "partial")
	}
}

func TestRender_LongReplySplitsOnLineBoundaries(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	r := newTestRenderer(sink, 10, 100)

	// 50 lines of 99 chars: every chunk is exactly one line here, since
	// two lines plus a newline exceed the limit.
	line := strings.Repeat("x", 99)
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, line)
	}
	text := strings.Join(lines, "\n")

	got, err := r.Render(context.Background(), "c1", "m1", provider.Complete{Text: text})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != text {
		t.Error("final text altered by splitting")
	}

	if len(sink.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(sink.edits))
	}
	all := append([]string{sink.edits[0]}, sink.sends...)
	for i, msg := range all {
		if n := len([]rune(msg)); n > 100 {
			t.Errorf("message %d length %d exceeds limit", i, n)
		}
	}
	if rejoined := strings.Join(all, "\n"); rejoined != text {
		t.Error("content or order lost across split messages")
	}
}

func TestRender_EmptyReplyUsesFallback(t *testing.T) {
	t.Parallel()

	for _, reply := range []provider.Reply{
		provider.Complete{Text: ""},
		streamOf(),
	} {
		sink := &mockSink{}
		r := newTestRenderer(sink, 10, 2000)

		got, err := r.Render(context.Background(), "c1", "m1", reply)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if got != fallbackReply {
			t.Errorf("final text = %q, want fallback", got)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		maxLength int
		want      []string
	}{
		{
			name:      "fits in one message",
			text:      "short",
			maxLength: 100,
			want:      []string{"short"},
		},
		{
			name:      "splits between lines",
			text:      "aaaa\nbbbb\ncccc",
			maxLength: 9,
			want:      []string{"aaaa\nbbbb", "cccc"},
		},
		{
			name:      "never splits a line that fits",
			text:      "aaaa\nbbbbbbbb",
			maxLength: 8,
			want:      []string{"aaaa", "bbbbbbbb"},
		},
		{
			name:      "hard wraps a single oversized line",
			text:      strings.Repeat("y", 25),
			maxLength: 10,
			want:      []string{strings.Repeat("y", 10), strings.Repeat("y", 10), strings.Repeat("y", 5)},
		},
		{
			name:      "preserves interior blank lines",
			text:      "a\n\nb",
			maxLength: 100,
			want:      []string{"a\n\nb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := SplitMessage(tt.text, tt.maxLength)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitMessage() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitMessage_SpecSizedReply(t *testing.T) {
	t.Parallel()

	// A 5000-char reply whose first line is 50 chars must produce
	// multiple messages, all within the limit, order preserved.
	first := strings.Repeat("a", 50)
	var sb strings.Builder
	sb.WriteString(first)
	for sb.Len() < 5000 {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("b", 80))
	}
	text := sb.String()

	chunks := SplitMessage(text, 2000)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want multiple", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 2000 {
			t.Errorf("chunk %d exceeds limit: %d", i, len([]rune(c)))
		}
	}
	if !strings.HasPrefix(chunks[0], first) {
		t.Error("first line not at the start of the first chunk")
	}
	if strings.Join(chunks, "\n") != text {
		t.Error("content or order lost")
	}
}
