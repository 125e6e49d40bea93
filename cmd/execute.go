// Package cmd contains the application entry point: flag handling,
// configuration loading, and wiring of every runtime component.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/llegomark/neko/internal/api"
	"github.com/llegomark/neko/internal/channels"
	"github.com/llegomark/neko/internal/config"
	"github.com/llegomark/neko/internal/convo"
	"github.com/llegomark/neko/internal/discord"
	"github.com/llegomark/neko/internal/dispatch"
	"github.com/llegomark/neko/internal/limiter"
	"github.com/llegomark/neko/internal/log"
	"github.com/llegomark/neko/internal/presence"
	"github.com/llegomark/neko/internal/provider"
	"github.com/llegomark/neko/internal/render"
	"github.com/llegomark/neko/internal/report"
)

// Execute is the main entry point for the bot.
//
// Design: Following the pattern used by kubectl, hugo, and other
// standard Go CLI tools, all application logic is contained in the cmd
// package, leaving main.go as a minimal entry point.
func Execute() error {
	// Handle special flags before full initialization so --version and
	// --help work even when the configuration is invalid.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersionInfo()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}

	// Local development convenience; in production the environment is
	// already populated.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, logger)
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func initLogger() *slog.Logger {
	return log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("LOG_FORMAT") == "json",
	})
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// run wires all components and blocks until ctx is canceled.
//
// Construction order matters: the bot is the outbound surface, so the
// presence tracker, renderer, and dispatcher are all built on top of it
// and bound back before the gateway opens.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reporter := report.New(report.Config{
		WebhookURL: cfg.ErrorWebhookURL,
		LogDir:     cfg.ErrorLogDir,
		Logger:     logger,
	})

	store := convo.NewStore(convo.Preferences{
		Model:  cfg.DefaultModel,
		Prompt: cfg.DefaultPrompt,
	})
	channelStore := channels.NewStore(cfg.AllowedChannels...)

	bot, err := discord.New(discord.Config{
		Token:            cfg.BotToken,
		Store:            store,
		Channels:         channelStore,
		GoogleModel:      cfg.GoogleModel,
		MaxMessageLength: cfg.MaxMessageLength,
		ActivityInterval: cfg.ActivityInterval,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("creating discord bot: %w", err)
	}

	tracker := presence.NewTracker(bot, cfg.TypingInterval, logger)

	renderer := render.New(render.Config{
		Sink:           bot,
		EditInterval:   cfg.EditInterval,
		FlushThreshold: cfg.FlushThreshold,
		MaxLength:      cfg.MaxMessageLength,
		Logger:         logger,
	})

	var anthropicClient, geminiClient provider.Client
	if cfg.AnthropicAPIKey != "" {
		anthropicClient = provider.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.MaxTokens, logger)
	}
	if len(cfg.GoogleAPIKeys) > 0 {
		geminiClient, err = provider.NewGemini(ctx, cfg.GoogleAPIKeys, logger)
		if err != nil {
			return fmt.Errorf("creating gemini provider: %w", err)
		}
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Store:            store,
		Presence:         tracker,
		Renderer:         renderer,
		Messenger:        bot,
		Reporter:         reporter,
		Anthropic:        anthropicClient,
		AnthropicLimiter: limiter.New(cfg.ProviderSpacing),
		Gemini:           geminiClient,
		GeminiLimiter:    limiter.New(cfg.ProviderSpacing),
		GoogleModel:      cfg.GoogleModel,
		QueueSize:        cfg.QueueSize,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	bot.Bind(dispatcher, tracker)

	// Idle sessions are evicted unless the user is typing or has a job
	// queued or running.
	sweeper := convo.NewSweeper(store, cfg.InactivityWindow, func(userID string) bool {
		return tracker.IsTyping(userID) || dispatcher.Busy(userID)
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})
	g.Go(func() error {
		dispatcher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(ctx)
		return nil
	})
	if cfg.AdminAddr != "" {
		adminSrv, err := api.NewServer(api.ServerConfig{
			APIKey:   cfg.AdminAPIKey,
			Channels: channelStore,
			Sessions: store,
			Queue:    dispatcher,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("creating admin server: %w", err)
		}
		g.Go(func() error {
			return adminSrv.Run(ctx, cfg.AdminAddr)
		})
	}

	logger.Info("neko is up",
		"default_model", cfg.DefaultModel,
		"google_model", cfg.GoogleModel,
		"anthropic", anthropicClient != nil,
		"gemini", geminiClient != nil,
		"admin_api", cfg.AdminAddr != "")

	return g.Wait()
}
