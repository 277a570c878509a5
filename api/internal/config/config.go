package config

import (
	"log"
	"os"
)

type Config struct {
	Port string

	// InferenceBaseURL points at the remote tutoring pipeline; empty
	// disables the remote engine.
	InferenceBaseURL string

	GeminiAPIKey string
	GeminiModel  string

	TelegramBotToken string

	// WebhookURL switches the bot from long polling to webhook mode.
	WebhookURL string

	// DatabaseURL enables durable keyed storage; empty falls back to
	// the in-memory store.
	DatabaseURL string

	// DefaultEngine selects which engine serves requests that do not
	// name one ("remote" or "gemini").
	DefaultEngine string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	c := &Config{
		Port: getEnv("PORT", "8000"),

		InferenceBaseURL: getEnv("INFERENCE_BASE_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		DefaultEngine: getEnv("DEFAULT_ENGINE", "remote"),
	}
	if c.InferenceBaseURL == "" && c.GeminiAPIKey == "" {
		log.Fatal("need INFERENCE_BASE_URL or GEMINI_API_KEY, got neither")
	}
	return c
}

// LoadBot is Load plus the bot token requirement.
func LoadBot() *Config {
	c := Load()
	c.TelegramBotToken = mustEnv("TELEGRAM_BOT_TOKEN")
	return c
}
