package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/llegomark/neko/internal/convo"
)

// safetySettings disable Gemini's blocking for all four harm categories;
// moderation is left to the chat platform.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// Gemini is the streaming provider: a chat session seeded with history
// yields a lazy sequence of text increments.
//
// It holds one client per credential in the pool; a request's credential
// is chosen by hashing its message ID, so routing is deterministic but
// load spreads statistically across keys.
type Gemini struct {
	clients []*genai.Client
	logger  *slog.Logger
}

// NewGemini creates one genai client per API key. At least one key is
// required.
func NewGemini(ctx context.Context, apiKeys []string, logger *slog.Logger) (*Gemini, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("gemini provider: at least one API key is required")
	}

	clients := make([]*genai.Client, 0, len(apiKeys))
	for i, key := range apiKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini provider: creating client %d: %w", i+1, err)
		}
		clients = append(clients, client)
	}

	logger.Info("gemini credential pool ready", "keys", len(clients))
	return &Gemini{clients: clients, logger: logger}, nil
}

// Reply opens a chat session seeded with the user's history and returns
// the streaming reply. Errors may surface mid-stream through the Stream's
// iterator.
func (g *Gemini) Reply(ctx context.Context, req Request) (Reply, error) {
	client := g.clients[routeKey(req.MessageID, len(g.clients))]

	cfg := &genai.GenerateContentConfig{SafetySettings: safetySettings}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	history := make([]*genai.Content, 0, len(req.History))
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == convo.RoleAssistant {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(turn.Content, role))
	}

	chat, err := client.Chats.Create(ctx, req.Model, cfg, history)
	if err != nil {
		return nil, wrapGeminiError(err)
	}

	seq := chat.SendMessageStream(ctx, genai.Part{Text: req.Content})
	chunks := func(yield func(string, error) bool) {
		for resp, err := range seq {
			if err != nil {
				yield("", wrapGeminiError(err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}

	g.logger.Debug("gemini chat session opened",
		"model", req.Model,
		"history_turns", len(req.History),
		"credential", routeKey(req.MessageID, len(g.clients)))

	return Stream{Chunks: chunks}, nil
}

// wrapGeminiError extracts the API status code for notice mapping.
func wrapGeminiError(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return &StatusError{Provider: "gemini", Status: apierr.Code, Err: err}
	}
	return fmt.Errorf("gemini provider: %w", err)
}
