package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "HTTP_ADDR", "DIGEST_API_KEY", "RESEND_API_KEY", "DIGEST_FROM",
		"TELEGRAM_TOKEN", "FOLLOWUP_POLL_SECONDS", "TOAST_SECONDS", "DIGEST_CUSTOM_POLICY",
		"TIMEZONE", "TASKSTACK_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "task_stack.db" || cfg.HTTPAddr != ":8080" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.FollowUpPoll != 30*time.Second || cfg.ToastDuration != 10*time.Second {
		t.Errorf("Unexpected durations: %s %s", cfg.FollowUpPoll, cfg.ToastDuration)
	}
	if cfg.DigestCustomPolicy != "skip" {
		t.Errorf("Expected skip policy, got %q", cfg.DigestCustomPolicy)
	}
	if cfg.DatabaseConfigured {
		t.Error("Expected the default database to count as not configured")
	}
	if cfg.Timezone == nil {
		t.Error("Expected a timezone")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/taskstack")
	t.Setenv("DIGEST_API_KEY", " secret ")
	t.Setenv("FOLLOWUP_POLL_SECONDS", "5")
	t.Setenv("DIGEST_CUSTOM_POLICY", "CRON")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/taskstack" || !cfg.DatabaseConfigured {
		t.Errorf("Unexpected database url %q (configured=%v)", cfg.DatabaseURL, cfg.DatabaseConfigured)
	}
	if cfg.DigestAPIKey != "secret" {
		t.Errorf("Expected trimmed key, got %q", cfg.DigestAPIKey)
	}
	if cfg.FollowUpPoll != 5*time.Second {
		t.Errorf("Expected 5s poll, got %s", cfg.FollowUpPoll)
	}
	if cfg.DigestCustomPolicy != "cron" {
		t.Errorf("Expected cron policy, got %q", cfg.DigestCustomPolicy)
	}
	if cfg.Timezone != time.UTC {
		t.Errorf("Expected UTC, got %s", cfg.Timezone)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIGEST_CUSTOM_POLICY", "sometimes")
	if _, err := Load(); err == nil {
		t.Error("Expected an error for an unknown policy")
	}

	clearEnv(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Error("Expected an error for an unknown timezone")
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "taskstack.yaml")
	content := "http_addr: \":9090\"\ntoast_seconds: 3\ndatabase_url: data/ts.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKSTACK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.ToastDuration != 3*time.Second {
		t.Errorf("Expected file values, got %s %s", cfg.HTTPAddr, cfg.ToastDuration)
	}
	if cfg.DatabaseURL != "data/ts.db" || !cfg.DatabaseConfigured {
		t.Errorf("Expected the file database to count as configured, got %q (%v)", cfg.DatabaseURL, cfg.DatabaseConfigured)
	}
}
