package discord

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/llegomark/neko/internal/config"
	"github.com/llegomark/neko/internal/convo"
)

func newStore() *convo.Store {
	return convo.NewStore(convo.Preferences{
		Model:  "claude-3-5-haiku-latest",
		Prompt: "helpful_assistant",
	})
}

func TestClearResponse(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.AppendExchange("alice", "hi", "hello")

	clearResponse(store, "alice")

	if len(store.History("alice")) != 0 {
		t.Fatal("history survived /clear")
	}
}

func TestResetResponse_RestoresDefaults(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.SetPreferences("alice", convo.Update{Model: "gemini-2.5-flash", Prompt: "neko_cat"})
	store.AppendExchange("alice", "hi", "hello")

	got := resetResponse(store, "alice")

	prefs := store.Preferences("alice")
	if prefs.Model != "claude-3-5-haiku-latest" || prefs.Prompt != "helpful_assistant" {
		t.Fatalf("preferences not reset: %+v", prefs)
	}
	if len(store.History("alice")) != 0 {
		t.Fatal("history survived /reset")
	}
	if !strings.Contains(got, "claude-3-5-haiku-latest") {
		t.Fatalf("response does not name the default model: %q", got)
	}
}

func TestSetModelResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   string
		wantSet bool
	}{
		{name: "anthropic model", model: "claude-sonnet-4-5", wantSet: true},
		{name: "google model", model: "gemini-2.5-flash", wantSet: true},
		{name: "unknown model", model: "gpt-oss", wantSet: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newStore()
			setModelResponse(store, "alice", tt.model, "gemini-2.5-flash")

			got := store.Preferences("alice").Model
			if tt.wantSet && got != tt.model {
				t.Fatalf("model = %q, want %q", got, tt.model)
			}
			if !tt.wantSet && got == tt.model {
				t.Fatal("unknown model was accepted")
			}
		})
	}
}

func TestSetPromptResponse(t *testing.T) {
	t.Parallel()

	store := newStore()

	setPromptResponse(store, "alice", "neko_cat")
	if got := store.Preferences("alice").Prompt; got != "neko_cat" {
		t.Fatalf("prompt = %q, want neko_cat", got)
	}

	setPromptResponse(store, "alice", "no_such_prompt")
	if got := store.Preferences("alice").Prompt; got != "neko_cat" {
		t.Fatalf("unknown prompt overwrote preference: %q", got)
	}
}

func TestSettingsResponse(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.AppendExchange("alice", "hi", "hello")

	got := settingsResponse(store, "alice")
	if !strings.Contains(got, "claude-3-5-haiku-latest") {
		t.Fatalf("missing model: %q", got)
	}
	if !strings.Contains(got, "helpful_assistant") {
		t.Fatalf("missing prompt: %q", got)
	}
	if !strings.Contains(got, "2 turns") {
		t.Fatalf("missing turn count: %q", got)
	}
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	store := newStore()

	if got := transcript(store, "alice", 2000); got != nil {
		t.Fatalf("empty history produced a transcript: %v", got)
	}

	store.AppendExchange("alice", "what is Go?", "A programming language.")
	chunks := transcript(store, "alice", 2000)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0], "**You:** what is Go?") {
		t.Fatalf("missing user turn: %q", chunks[0])
	}
	if !strings.Contains(chunks[0], "**Neko:** A programming language.") {
		t.Fatalf("missing assistant turn: %q", chunks[0])
	}
}

func TestTranscript_ChunksLongHistory(t *testing.T) {
	t.Parallel()

	store := newStore()
	long := strings.Repeat("x", 500)
	for range 5 {
		store.AppendExchange("alice", long, long)
	}

	chunks := transcript(store, "alice", 2000)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 2000 {
			t.Fatalf("chunk %d exceeds limit: %d", i, len(c))
		}
	}
}

func TestCommandDefinitions(t *testing.T) {
	t.Parallel()

	cmds := commandDefinitions("gemini-2.5-flash")

	byName := make(map[string]*discordgo.ApplicationCommand, len(cmds))
	for _, c := range cmds {
		byName[c.Name] = c
	}
	for _, want := range []string{"help", "clear", "save", "reset", "settings", "model", "prompt"} {
		if _, ok := byName[want]; !ok {
			t.Fatalf("command %q not defined", want)
		}
	}

	prompt := byName["prompt"]
	if len(prompt.Options) != 1 {
		t.Fatalf("prompt options = %d, want 1", len(prompt.Options))
	}
	if got, want := len(prompt.Options[0].Choices), len(config.PromptNames()); got != want {
		t.Fatalf("prompt choices = %d, want %d", got, want)
	}

	model := byName["model"]
	foundGemini := false
	for _, c := range model.Options[0].Choices {
		if c.Value == "gemini-2.5-flash" {
			foundGemini = true
		}
	}
	if !foundGemini {
		t.Fatal("google model missing from /model choices")
	}
}

func TestCommandDefinitions_NoGoogleModel(t *testing.T) {
	t.Parallel()

	cmds := commandDefinitions("")
	for _, c := range cmds {
		if c.Name != "model" {
			continue
		}
		for _, choice := range c.Options[0].Choices {
			if strings.HasPrefix(choice.Value.(string), "gemini") {
				t.Fatal("gemini offered without a configured google model")
			}
		}
	}
}
