package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// printVersionInfo displays version information.
func printVersionInfo() {
	fmt.Printf("Neko v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

// printHelp displays usage information.
func printHelp() {
	fmt.Fprintf(os.Stdout, `Neko - a conversational Discord bot

Usage:
  neko            Start the bot
  neko version    Show version information
  neko help       Show this help

Environment:
  DISCORD_BOT_TOKEN            Discord bot token (required)
  ANTHROPIC_API_KEY            Anthropic API key
  GOOGLE_API_KEY_1..n          Gemini credential pool
  CLOUDFLARE_AI_GATEWAY_URL    Optional Anthropic base URL override
  ERROR_NOTIFICATION_WEBHOOK   Webhook for failure notifications
  API_KEY                      Admin API key (required when admin_addr is set)
  DEBUG                        Enable debug logging
  LOG_FORMAT=json              Emit JSON logs

Configuration beyond secrets is read from ./config.yaml; see the
repository README for the full list of settings.
`)
}
