package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "APP_NAME", "APP_PORT", "LOG_LEVEL", "PROFILES_PATH",
		"HTTP_TIMEOUT_SECONDS", "HTTP_MIN_INTERVAL_MS", "FILTER_FETCH_ATTEMPTS",
		"WARMUP_ENABLED", "WARMUP_MINUTES", "NOTIFY_WEBHOOK_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.ProfilesPath != "./profiles" || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.HTTPTimeout != 15*time.Second || cfg.HTTPMinInterval != 0 || cfg.FilterFetchAttempts != 3 {
		t.Fatalf("unexpected http defaults %+v", cfg)
	}
	if !cfg.WarmupEnabled || cfg.WarmupMinutes != 60 || cfg.NotifyWebhookURL != "" {
		t.Fatalf("unexpected warmup defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("HTTP_MIN_INTERVAL_MS", "250")
	t.Setenv("HTTP_USER_AGENT", " sourcebot/1.0 ")
	t.Setenv("FILTER_FETCH_ATTEMPTS", "-1")
	t.Setenv("WARMUP_ENABLED", "false")
	t.Setenv("WARMUP_MINUTES", "abc")
	t.Setenv("NOTIFY_WEBHOOK_URL", " https://hooks.example.com/x ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.WarmupEnabled || cfg.WarmupMinutes != 60 || cfg.FilterFetchAttempts != 3 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.NotifyWebhookURL != "https://hooks.example.com/x" {
		t.Fatalf("unexpected webhook url %q", cfg.NotifyWebhookURL)
	}

	opts := cfg.FetchOptions()
	if opts.Timeout != 5*time.Second || opts.MinInterval != 250*time.Millisecond || opts.UserAgent != "sourcebot/1.0" {
		t.Fatalf("unexpected fetch options %+v", opts)
	}
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "LOUD")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid log level to fail")
	}
}
