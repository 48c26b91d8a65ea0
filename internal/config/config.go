package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the server and CLI.
type Config struct {
	DatabaseURL        string
	// DatabaseConfigured is false when DatabaseURL is only the local default.
	DatabaseConfigured bool
	HTTPAddr           string
	DigestAPIKey       string
	ResendAPIKey       string
	DigestFrom         string
	TelegramToken      string
	FollowUpPoll       time.Duration
	ToastDuration      time.Duration
	DigestCustomPolicy string
	Timezone           *time.Location
}

// Load reads configuration from environment variables, optionally layered
// over the file named by TASKSTACK_CONFIG (yaml, toml or json).
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("database_url", "task_stack.db")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("digest_api_key", "")
	v.SetDefault("resend_api_key", "")
	v.SetDefault("digest_from", "")
	v.SetDefault("telegram_token", "")
	v.SetDefault("followup_poll_seconds", 30)
	v.SetDefault("toast_seconds", 10)
	v.SetDefault("digest_custom_policy", "skip")
	v.SetDefault("timezone", "Local")
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("TASKSTACK_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		HTTPAddr:           strings.TrimSpace(v.GetString("http_addr")),
		DigestAPIKey:       strings.TrimSpace(v.GetString("digest_api_key")),
		ResendAPIKey:       strings.TrimSpace(v.GetString("resend_api_key")),
		DigestFrom:         strings.TrimSpace(v.GetString("digest_from")),
		TelegramToken:      strings.TrimSpace(v.GetString("telegram_token")),
		FollowUpPoll:       seconds(v.GetInt("followup_poll_seconds"), 30),
		ToastDuration:      seconds(v.GetInt("toast_seconds"), 10),
		DigestCustomPolicy: strings.ToLower(strings.TrimSpace(v.GetString("digest_custom_policy"))),
	}

	cfg.DatabaseConfigured = strings.TrimSpace(os.Getenv("DATABASE_URL")) != "" || v.InConfig("database_url")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_stack.db"
		cfg.DatabaseConfigured = false
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	switch cfg.DigestCustomPolicy {
	case "", "skip":
		cfg.DigestCustomPolicy = "skip"
	case "cron":
	default:
		return cfg, fmt.Errorf("DIGEST_CUSTOM_POLICY must be skip or cron, got %q", cfg.DigestCustomPolicy)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("timezone")))
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	return cfg, nil
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
