package config

import (
	"os"
	"strconv"
	"time"
)

// Accrual service targets. The target selects the default endpoint; an
// explicit ACCRUAL_API_URL always wins.
const (
	TargetSandbox    = "sandbox"
	TargetProduction = "production"

	sandboxURL    = "https://sandbox.accruals.example.com"
	productionURL = "https://api.accruals.example.com"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Accrual service (fixed credentials, selected once at process start)
	AccrualTarget     string
	AccrualAPIURL     string
	AccrualAPIKey     string
	AccrualNamespace  string
	AccrualCompany    string
	AccrualUser       string
	AccrualPassword   string
	AccrualClientName string
	AccrualAPIVersion string
	AccrualReadLimit  int

	// Chat platform
	ChatAPIURL   string
	ChatBotToken string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience (reply delivery retries, concurrent retrieval cap)
	MaxRetries     int
	InitialBackoff time.Duration
	MaxRetrievals  int

	// Identity cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	target := getEnv("ACCRUAL_TARGET", TargetSandbox)

	defaultURL := sandboxURL
	if target == TargetProduction {
		defaultURL = productionURL
	}

	return &Config{
		Port:     getEnvInt("PORT", 7177),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AccrualTarget:     target,
		AccrualAPIURL:     getEnv("ACCRUAL_API_URL", defaultURL),
		AccrualAPIKey:     getEnv("ACCRUAL_API_KEY", ""),
		AccrualNamespace:  getEnv("ACCRUAL_NAMESPACE", "default"),
		AccrualCompany:    getEnv("ACCRUAL_COMPANY", ""),
		AccrualUser:       getEnv("ACCRUAL_USER", ""),
		AccrualPassword:   getEnv("ACCRUAL_PASSWORD", ""),
		AccrualClientName: getEnv("ACCRUAL_CLIENT_NAME", "timeoff-assistant"),
		AccrualAPIVersion: getEnv("ACCRUAL_API_VERSION", "1.0"),
		AccrualReadLimit:  getEnvInt("ACCRUAL_READ_LIMIT", 100),

		ChatAPIURL:   getEnv("CHAT_API_URL", "https://slack.com/api"),
		ChatBotToken: getEnv("CHAT_BOT_TOKEN", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxRetrievals:  getEnvInt("MAX_RETRIEVALS", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 15*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// ServerName is the human-readable name of the accrual backend used in
// user-facing messages ("X seems to be down right now").
func (c *Config) ServerName() string {
	if c.AccrualTarget == TargetProduction {
		return "the time-tracking system"
	}
	return "the time-tracking sandbox"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
