package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBPath        string
	TelegramToken string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	AppURL string

	// ReminderCooldown is the minimum gap before a pending task is reminded
	// again; it must exceed the 0-2 minute dispatch window.
	ReminderCooldown time.Duration
	// ReflectionAt is the local wall-clock time of the evening prompt.
	ReflectionAt string

	LogMode string
}

func Load() (Config, error) {
	token := botToken()
	if token == "" {
		return Config{}, errors.New("telegram bot token missing: set TELEGRAM_BOT_TOKEN or the docker secret")
	}
	return Config{
		DBPath:           envOr("DB_PATH", "planner.db"),
		TelegramToken:    token,
		SMTPHost:         envOr("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         envIntOr("SMTP_PORT", 587),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		SMTPFrom:         envOr("SMTP_FROM", os.Getenv("SMTP_USER")),
		AppURL:           envOr("APP_URL", "http://localhost:3000"),
		ReminderCooldown: time.Duration(envIntOr("REMINDER_COOLDOWN_MIN", 10)) * time.Minute,
		ReflectionAt:     envOr("REFLECTION_AT", "21:00"),
		LogMode:          envOr("LOG_MODE", "dev"),
	}, nil
}

// botToken prefers the docker secret over the environment variable.
func botToken() string {
	if data, err := os.ReadFile("/run/secrets/telegram_bot_token"); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
