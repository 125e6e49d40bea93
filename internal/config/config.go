// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, secrets)
//  2. Config file (./config.yaml)
//  3. Default values
//
// Security: secrets (bot token, API keys) are only ever read from the
// environment and are never logged. Validation is fail-fast with sentinel
// errors suitable for errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingBotToken indicates DISCORD_BOT_TOKEN is not set.
	ErrMissingBotToken = errors.New("missing Discord bot token")

	// ErrNoProviderKeys indicates neither provider has credentials.
	ErrNoProviderKeys = errors.New("no LLM provider credentials configured")

	// ErrMissingAdminKey indicates the admin API is enabled without an API key.
	ErrMissingAdminKey = errors.New("missing admin API key")

	// ErrInvalidDuration indicates a duration setting is zero or negative.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidPrompt indicates the default prompt name is unknown.
	ErrInvalidPrompt = errors.New("unknown prompt name")
)

// Provider model-name conventions. The dispatcher branches on these.
const (
	// AnthropicModelPrefix marks models served by the turn-based provider.
	AnthropicModelPrefix = "claude"
)

// Config stores application configuration.
// SECURITY: secret fields must never be logged; there is no MarshalJSON
// on purpose; log individual non-secret fields instead.
type Config struct {
	// Discord gateway
	BotToken string `mapstructure:"-"` // DISCORD_BOT_TOKEN, env only

	// Turn-based provider (Anthropic Messages API)
	AnthropicAPIKey  string `mapstructure:"-"` // ANTHROPIC_API_KEY, env only
	AnthropicBaseURL string `mapstructure:"anthropic_base_url"`

	// Streaming provider (Gemini chat sessions)
	GoogleAPIKeys []string `mapstructure:"-"` // GOOGLE_API_KEY_1..n, env only
	GoogleModel   string   `mapstructure:"google_model"`

	// Per-user defaults
	DefaultModel  string `mapstructure:"default_model"`
	DefaultPrompt string `mapstructure:"default_prompt"`
	MaxTokens     int    `mapstructure:"max_tokens"`

	// Dispatch and rendering
	QueueSize        int           `mapstructure:"queue_size"`
	ProviderSpacing  time.Duration `mapstructure:"provider_spacing"`
	EditInterval     time.Duration `mapstructure:"edit_interval"`
	FlushThreshold   int           `mapstructure:"flush_threshold"`
	MaxMessageLength int           `mapstructure:"max_message_length"`

	// Presence
	TypingInterval   time.Duration `mapstructure:"typing_interval"`
	ActivityInterval time.Duration `mapstructure:"activity_interval"`

	// Session eviction
	InactivityWindow time.Duration `mapstructure:"inactivity_window"`

	// Error reporting
	ErrorWebhookURL string `mapstructure:"-"` // ERROR_NOTIFICATION_WEBHOOK, env only
	ErrorLogDir     string `mapstructure:"error_log_dir"`

	// Channels the bot listens in at startup; the admin API can change
	// the set at runtime.
	AllowedChannels []string `mapstructure:"allowed_channels"`

	// Admin HTTP API (empty addr disables it)
	AdminAddr   string `mapstructure:"admin_addr"`
	AdminAPIKey string `mapstructure:"-"` // API_KEY, env only
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Secrets come straight from the environment, never through files.
	cfg.BotToken = strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN"))
	cfg.AnthropicAPIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.ErrorWebhookURL = strings.TrimSpace(os.Getenv("ERROR_NOTIFICATION_WEBHOOK"))
	cfg.AdminAPIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	if gw := strings.TrimSpace(os.Getenv("CLOUDFLARE_AI_GATEWAY_URL")); gw != "" {
		cfg.AnthropicBaseURL = gw
	}
	cfg.GoogleAPIKeys = loadGoogleAPIKeys()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// loadGoogleAPIKeys collects the Gemini credential pool from numbered
// environment variables (GOOGLE_API_KEY_1, GOOGLE_API_KEY_2, ...).
// The numbering must be contiguous starting at 1; the first gap ends the
// pool so key ordering stays stable across restarts.
func loadGoogleAPIKeys() []string {
	var keys []string
	for i := 1; ; i++ {
		key := strings.TrimSpace(os.Getenv(fmt.Sprintf("GOOGLE_API_KEY_%d", i)))
		if key == "" {
			break
		}
		keys = append(keys, key)
	}
	return keys
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("anthropic_base_url", "")
	viper.SetDefault("google_model", "gemini-1.5-pro")

	viper.SetDefault("default_model", "claude-3-5-haiku-latest")
	viper.SetDefault("default_prompt", "helpful_assistant")
	viper.SetDefault("max_tokens", 4096)

	viper.SetDefault("queue_size", 128)
	viper.SetDefault("provider_spacing", "2s")
	viper.SetDefault("edit_interval", "1500ms")
	viper.SetDefault("flush_threshold", 80)
	viper.SetDefault("max_message_length", 2000)

	viper.SetDefault("typing_interval", "8s")
	viper.SetDefault("activity_interval", "30s")

	viper.SetDefault("inactivity_window", "3h")

	viper.SetDefault("error_log_dir", "logs")

	viper.SetDefault("allowed_channels", []string{})

	viper.SetDefault("admin_addr", "")
}

// bindEnvVariables binds non-secret overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("google_model", "GOOGLE_MODEL_NAME")
	mustBind("default_model", "NEKO_DEFAULT_MODEL")
	mustBind("default_prompt", "NEKO_DEFAULT_PROMPT")
	mustBind("inactivity_window", "CONVERSATION_INACTIVITY_DURATION")
	mustBind("admin_addr", "NEKO_ADMIN_ADDR")
	mustBind("error_log_dir", "NEKO_ERROR_LOG_DIR")
}

// Validate checks the configuration, fail-fast.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.AnthropicAPIKey == "" && len(c.GoogleAPIKeys) == 0 {
		return ErrNoProviderKeys
	}
	if c.AdminAddr != "" && c.AdminAPIKey == "" {
		return fmt.Errorf("%w: API_KEY is required when admin_addr is set", ErrMissingAdminKey)
	}
	if Prompt(c.DefaultPrompt) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPrompt, c.DefaultPrompt)
	}

	for name, d := range map[string]time.Duration{
		"provider_spacing":  c.ProviderSpacing,
		"edit_interval":     c.EditInterval,
		"typing_interval":   c.TypingInterval,
		"activity_interval": c.ActivityInterval,
		"inactivity_window": c.InactivityWindow,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidDuration, name, d)
		}
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.FlushThreshold <= 0 {
		return fmt.Errorf("flush_threshold must be positive, got %d", c.FlushThreshold)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be positive, got %d", c.MaxMessageLength)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	return nil
}

// UsesAnthropic reports whether model is served by the turn-based provider.
func UsesAnthropic(model string) bool {
	return strings.HasPrefix(model, AnthropicModelPrefix)
}
