// Package discord is the gateway layer: it connects the bot to Discord,
// funnels inbound messages into the dispatcher, and exposes the outbound
// surface (messages, edits, typing) the rest of the system renders
// through.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/llegomark/neko/internal/channels"
	"github.com/llegomark/neko/internal/config"
	"github.com/llegomark/neko/internal/convo"
	"github.com/llegomark/neko/internal/dispatch"
	"github.com/llegomark/neko/internal/presence"
)

// Enqueuer accepts inbound events for dispatch.
type Enqueuer interface {
	Enqueue(ev dispatch.Event) bool
}

// Config wires a Bot. The dispatcher and presence tracker are attached
// later via Bind because both are constructed on top of the bot's
// outbound surface.
type Config struct {
	Token    string
	Store    *convo.Store
	Channels *channels.Store

	// GoogleModel is accepted by /model alongside Anthropic model names.
	GoogleModel string

	// MaxMessageLength bounds transcript chunks for /save.
	MaxMessageLength int

	// ActivityInterval is how often the presence activity rotates.
	ActivityInterval time.Duration

	Logger *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Token == "" {
		return errors.New("bot token is required")
	}
	if cfg.Store == nil {
		return errors.New("conversation store is required")
	}
	if cfg.Channels == nil {
		return errors.New("channel store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Bot owns the Discord session. It implements the renderer's Sink, the
// dispatcher's Messenger, and the presence tracker's Signaler.
type Bot struct {
	session    *discordgo.Session
	store      *convo.Store
	channels   *channels.Store
	dispatcher Enqueuer
	presence   *presence.Tracker

	googleModel      string
	maxMessageLength int
	activityInterval time.Duration

	logger *slog.Logger
}

// New creates a Bot and registers its gateway handlers. Call Run to
// connect.
func New(cfg Config) (*Bot, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	maxLen := cfg.MaxMessageLength
	if maxLen <= 0 {
		maxLen = 2000
	}
	interval := cfg.ActivityInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	b := &Bot{
		session:          session,
		store:            cfg.Store,
		channels:         cfg.Channels,
		googleModel:      cfg.GoogleModel,
		maxMessageLength: maxLen,
		activityInterval: interval,
		logger:           cfg.Logger,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onChannelDelete)
	session.AddHandler(b.onGuildMemberRemove)

	return b, nil
}

// Bind attaches the dispatcher and presence tracker. Must be called
// before Run.
func (b *Bot) Bind(dispatcher Enqueuer, tracker *presence.Tracker) {
	b.dispatcher = dispatcher
	b.presence = tracker
}

// Run opens the gateway connection and blocks until ctx is canceled,
// then disconnects.
func (b *Bot) Run(ctx context.Context) error {
	if b.dispatcher == nil || b.presence == nil {
		return errors.New("bot is not bound to a dispatcher and presence tracker")
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening gateway connection: %w", err)
	}
	b.logger.Info("connected to discord", "user", b.session.State.User.Username)

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}

	go b.rotateActivity(ctx)

	<-ctx.Done()
	b.presence.StopAll()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing gateway connection: %w", err)
	}
	return nil
}

// Send posts a message and returns its ID.
func (b *Bot) Send(channelID, content string) (string, error) {
	msg, err := b.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	return msg.ID, nil
}

// Edit replaces a message's content.
func (b *Bot) Edit(channelID, messageID, content string) error {
	if _, err := b.session.ChannelMessageEdit(channelID, messageID, content); err != nil {
		return fmt.Errorf("editing message: %w", err)
	}
	return nil
}

// Reply posts a threaded reply to an existing message and returns the
// new message's ID.
func (b *Bot) Reply(channelID, replyToID, content string) (string, error) {
	ref := &discordgo.MessageReference{ChannelID: channelID, MessageID: replyToID}
	msg, err := b.session.ChannelMessageSendReply(channelID, content, ref)
	if err != nil {
		return "", fmt.Errorf("sending reply: %w", err)
	}
	return msg.ID, nil
}

// SignalTyping fires one typing indicator in the channel.
func (b *Bot) SignalTyping(channelID string) error {
	if err := b.session.ChannelTyping(channelID); err != nil {
		return fmt.Errorf("signaling typing: %w", err)
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("gateway ready", "guilds", len(r.Guilds))
}

// onMessageCreate funnels user messages into the dispatch queue.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	ev, ok := inboundEvent(m, botID, b.channels)
	if !ok {
		return
	}
	if !b.dispatcher.Enqueue(ev) {
		b.logger.Warn("event dropped by dispatcher", "user_id", ev.UserID, "channel_id", ev.ChannelID)
	}
}

// inboundEvent decides whether a gateway message becomes a dispatch
// event. Bots are ignored, DMs are always accepted, and guild traffic
// must come from an allowed channel. A mention of the bot is stripped
// from the content and remembered on the event.
func inboundEvent(m *discordgo.MessageCreate, botID string, allowed *channels.Store) (dispatch.Event, bool) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == botID {
		return dispatch.Event{}, false
	}
	isDM := m.GuildID == ""
	if !isDM && !allowed.Allowed(m.ChannelID) {
		return dispatch.Event{}, false
	}

	mentioned := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			mentioned = true
			break
		}
	}

	content := m.Content
	if mentioned {
		content = strings.ReplaceAll(content, "<@"+botID+">", "")
		content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return dispatch.Event{}, false
	}

	return dispatch.Event{
		UserID:      m.Author.ID,
		ChannelID:   m.ChannelID,
		MessageID:   m.ID,
		Content:     content,
		MentionsBot: mentioned,
	}, true
}

// onChannelDelete stops typing loops pointed at a channel that no
// longer exists.
func (b *Bot) onChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	for _, userID := range b.presence.TypingInChannel(c.ID) {
		b.presence.StopTyping(userID)
	}
}

// onGuildMemberRemove clears presence state for users who leave.
func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User != nil {
		b.presence.StopTyping(m.User.ID)
	}
}

// rotateActivity cycles the bot's presence activity until ctx is done.
func (b *Bot) rotateActivity(ctx context.Context) {
	ticker := time.NewTicker(b.activityInterval)
	defer ticker.Stop()

	b.setRandomActivity()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.setRandomActivity()
		}
	}
}

func (b *Bot) setRandomActivity() {
	a := config.Activities[rand.IntN(len(config.Activities))]
	err := b.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{{
			Name: a.Name,
			Type: activityType(a.Kind),
		}},
	})
	if err != nil {
		b.logger.Debug("updating activity failed", "error", err)
	}
}

func activityType(kind config.ActivityKind) discordgo.ActivityType {
	switch kind {
	case config.ActivityListening:
		return discordgo.ActivityTypeListening
	case config.ActivityWatching:
		return discordgo.ActivityTypeWatching
	default:
		return discordgo.ActivityTypeGame
	}
}
