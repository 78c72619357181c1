package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gabriel/source-connectors/internal/fetch"
)

type Config struct {
	Environment    string
	AppName        string
	Port           string
	LogLevel       slog.Level
	SQLitePath     string
	MigrationsPath string
	ProfilesPath   string

	HTTPTimeout     time.Duration
	HTTPUserAgent   string
	HTTPMinInterval time.Duration

	FilterFetchAttempts int
	WarmupEnabled       bool
	WarmupMinutes       int
	NotifyWebhookURL    string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:         getEnv("APP_ENV", "development"),
		AppName:             getEnv("APP_NAME", "source-connectors"),
		Port:                getEnv("APP_PORT", "8080"),
		SQLitePath:          getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:      getEnv("MIGRATIONS_PATH", "./migrations"),
		ProfilesPath:        getEnv("PROFILES_PATH", "./profiles"),
		HTTPTimeout:         time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		HTTPUserAgent:       strings.TrimSpace(os.Getenv("HTTP_USER_AGENT")),
		HTTPMinInterval:     time.Duration(getEnvAsInt("HTTP_MIN_INTERVAL_MS", 0)) * time.Millisecond,
		FilterFetchAttempts: getEnvAsInt("FILTER_FETCH_ATTEMPTS", 3),
		WarmupEnabled:       getEnvAsBool("WARMUP_ENABLED", true),
		WarmupMinutes:       getEnvAsInt("WARMUP_MINUTES", 60),
		NotifyWebhookURL:    strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if cfg.HTTPMinInterval < 0 {
		cfg.HTTPMinInterval = 0
	}
	if cfg.FilterFetchAttempts <= 0 {
		cfg.FilterFetchAttempts = 3
	}
	if cfg.WarmupMinutes <= 0 {
		cfg.WarmupMinutes = 60
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

// FetchOptions builds the shared HTTP client settings.
func (c Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:     c.HTTPTimeout,
		UserAgent:   c.HTTPUserAgent,
		MinInterval: c.HTTPMinInterval,
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
