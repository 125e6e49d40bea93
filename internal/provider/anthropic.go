package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/llegomark/neko/internal/convo"
)

// Anthropic is the turn-based provider: one request carrying the full
// history, one complete response.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropic creates the Anthropic adapter. baseURL may be empty; a
// non-empty value routes requests through a gateway (e.g. Cloudflare AI
// Gateway) instead of the default endpoint.
func NewAnthropic(apiKey, baseURL string, maxTokens int, logger *slog.Logger) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		maxTokens: int64(maxTokens),
		logger:    logger,
	}
}

// Reply calls the Messages API and returns the reply as a single
// Complete payload.
func (a *Anthropic) Reply(ctx context.Context, req Request) (Reply, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, turn := range req.History {
		switch turn.Role {
		case convo.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		case convo.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Content)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: a.maxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	a.logger.Debug("anthropic reply completed",
		"model", req.Model,
		"history_turns", len(req.History),
		"reply_chars", sb.Len())

	return Complete{Text: sb.String()}, nil
}

// wrapAnthropicError extracts the HTTP status from SDK errors so the
// dispatcher can map it to a user-facing notice.
func wrapAnthropicError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &StatusError{Provider: "anthropic", Status: apierr.StatusCode, Err: err}
	}
	return fmt.Errorf("anthropic provider: %w", err)
}
