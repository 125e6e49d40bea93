package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/llegomark/neko/internal/config"
	"github.com/llegomark/neko/internal/convo"
	"github.com/llegomark/neko/internal/render"
)

const helpText = "Meow! Here's what I can do:\n" +
	"- Just send a message (or mention me) and I'll reply.\n" +
	"- `/model` picks which brain answers you.\n" +
	"- `/prompt` picks my personality.\n" +
	"- `/settings` shows your current setup.\n" +
	"- `/clear` wipes our conversation history.\n" +
	"- `/save` DMs you a transcript of our conversation.\n" +
	"- `/reset` puts everything back to the defaults."

// commandDefinitions builds the slash commands registered on startup.
// Prompt choices come from the prompt catalog so the two never drift.
func commandDefinitions(googleModel string) []*discordgo.ApplicationCommand {
	modelChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Claude Haiku", Value: "claude-3-5-haiku-latest"},
		{Name: "Claude Sonnet", Value: "claude-sonnet-4-5"},
	}
	if googleModel != "" {
		modelChoices = append(modelChoices, &discordgo.ApplicationCommandOptionChoice{
			Name: "Gemini", Value: googleModel,
		})
	}

	promptChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(config.PromptNames()))
	for _, name := range config.PromptNames() {
		promptChoices = append(promptChoices, &discordgo.ApplicationCommandOptionChoice{
			Name: name, Value: name,
		})
	}

	return []*discordgo.ApplicationCommand{
		{Name: "help", Description: "Show what the bot can do"},
		{Name: "clear", Description: "Clear your conversation history"},
		{Name: "save", Description: "Receive a transcript of your conversation via DM"},
		{Name: "reset", Description: "Reset model, prompt, and history to the defaults"},
		{Name: "settings", Description: "Show your current model and prompt"},
		{
			Name:        "model",
			Description: "Choose which model answers you",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Model to use",
				Required:    true,
				Choices:     modelChoices,
			}},
		},
		{
			Name:        "prompt",
			Description: "Choose the system prompt personality",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Personality to use",
				Required:    true,
				Choices:     promptChoices,
			}},
		},
	}
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions(b.googleModel))
	if err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}

	data := i.ApplicationCommandData()
	var response string
	switch data.Name {
	case "help":
		response = helpText
	case "clear":
		response = clearResponse(b.store, user.ID)
	case "reset":
		response = resetResponse(b.store, user.ID)
	case "settings":
		response = settingsResponse(b.store, user.ID)
	case "model":
		response = setModelResponse(b.store, user.ID, optionValue(data, "name"), b.googleModel)
	case "prompt":
		response = setPromptResponse(b.store, user.ID, optionValue(data, "name"))
	case "save":
		response = b.sendTranscript(user.ID)
	default:
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: response,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("responding to interaction failed", "command", data.Name, "error", err)
	}
}

// interactionUser resolves the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func optionValue(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func clearResponse(store *convo.Store, userID string) string {
	store.ClearHistory(userID)
	return "Conversation history cleared. We start fresh, meow!"
}

func resetResponse(store *convo.Store, userID string) string {
	store.ResetPreferences(userID)
	store.ClearHistory(userID)
	prefs := store.Preferences(userID)
	return fmt.Sprintf("Back to the defaults: model `%s`, prompt `%s`, history cleared.", prefs.Model, prefs.Prompt)
}

func settingsResponse(store *convo.Store, userID string) string {
	prefs := store.Preferences(userID)
	turns := len(store.History(userID))
	return fmt.Sprintf("Model: `%s`\nPrompt: `%s`\nHistory: %d turns", prefs.Model, prefs.Prompt, turns)
}

func setModelResponse(store *convo.Store, userID, model, googleModel string) string {
	if !config.UsesAnthropic(model) && (googleModel == "" || model != googleModel) {
		return fmt.Sprintf("I don't know the model `%s`. Pick one from the menu, meow.", model)
	}
	store.SetPreferences(userID, convo.Update{Model: model})
	return fmt.Sprintf("From now on I'll think with `%s`.", model)
}

func setPromptResponse(store *convo.Store, userID, prompt string) string {
	if config.Prompt(prompt) == "" {
		return fmt.Sprintf("I don't know the prompt `%s`. Pick one from the menu, meow.", prompt)
	}
	store.SetPreferences(userID, convo.Update{Prompt: prompt})
	return fmt.Sprintf("Personality switched to `%s`.", prompt)
}

// transcript renders the user's history as message-sized chunks, oldest
// first. Returns nil when there is no history.
func transcript(store *convo.Store, userID string, maxLen int) []string {
	turns := store.History(userID)
	if len(turns) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, t := range turns {
		label := "You"
		if t.Role == convo.RoleAssistant {
			label = "Neko"
		}
		fmt.Fprintf(&sb, "**%s:** %s\n", label, t.Content)
	}
	return render.SplitMessage(strings.TrimRight(sb.String(), "\n"), maxLen)
}

// sendTranscript DMs the user their conversation history and returns
// the ephemeral acknowledgement.
func (b *Bot) sendTranscript(userID string) string {
	chunks := transcript(b.store, userID, b.maxMessageLength)
	if chunks == nil {
		return "There's nothing to save yet. Talk to me first, meow!"
	}

	dm, err := b.session.UserChannelCreate(userID)
	if err != nil {
		b.logger.Error("creating DM channel failed", "user_id", userID, "error", err)
		return "I couldn't open a DM with you. Check your privacy settings and try again."
	}
	for _, chunk := range chunks {
		if _, err := b.session.ChannelMessageSend(dm.ID, chunk); err != nil {
			b.logger.Error("sending transcript chunk failed", "user_id", userID, "error", err)
			return "I couldn't deliver the whole transcript. Please try again later."
		}
	}
	return fmt.Sprintf("Transcript sent! Check your DMs for %d message(s).", len(chunks))
}
