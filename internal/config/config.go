package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DiscordBotToken  string
	DiscordChannelId string

	GeminiAPIKey string
	GeminiModel  string

	DBPath         string
	ResolveTimeout time.Duration
	HealthAddr     string

	Debug    bool
	DebugDir string
}

func Load() (*Config, error) {
	botToken := os.Getenv("DISCORD_BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("Bot token is not set")
	}
	channelID := os.Getenv("DISCORD_CHANNEL_ID")
	if channelID == "" {
		return nil, fmt.Errorf("Channel ID is not set")
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is not set")
	}

	timeout := 30 * time.Second
	if raw := os.Getenv("AI_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AI_TIMEOUT: %w", err)
		}
		timeout = d
	}

	return &Config{
		DiscordBotToken:  botToken,
		DiscordChannelId: channelID,
		GeminiAPIKey:     apiKey,
		GeminiModel:      getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		DBPath:           getenv("DB_PATH", "data/finance.db"),
		ResolveTimeout:   timeout,
		HealthAddr:       getenv("HEALTH_ADDR", ":8080"),
		Debug:            os.Getenv("DEBUG") == "true",
		DebugDir:         getenv("DEBUG_DIR", "debug"),
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
