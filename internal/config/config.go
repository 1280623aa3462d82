package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Database
	DBDriver    string // sqlite | postgres
	DatabaseURL string
	SeedData    bool

	// Chat assistant
	FAQPath       string
	OpenAIAPIKey  string // empty disables remote completion; fallbacks answer
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret      string
	JWTAccessTTL   time.Duration
	JWTRememberTTL time.Duration

	// Rate limiting on POST /v1/chat
	ChatRateLimit int // requests per minute per IP, 0 disables
	ChatRateBurst int
}

const defaultJWTSecret = "shop-default-dev-secret-change-me"

// Load reads configuration from environment variables with defaults and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),

		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		SeedData:    v.GetBool("SEED_DATA"),

		FAQPath:       v.GetString("FAQ_PATH"),
		OpenAIAPIKey:  v.GetString("OPENAI_API_KEY"),
		OpenAIModel:   v.GetString("OPENAI_MODEL"),
		OpenAIBaseURL: v.GetString("OPENAI_BASE_URL"),
		OpenAITimeout: v.GetDuration("OPENAI_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		CacheTTL: v.GetDuration("CACHE_TTL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTAccessTTL:   v.GetDuration("JWT_ACCESS_TTL"),
		JWTRememberTTL: v.GetDuration("JWT_REMEMBER_TTL"),

		ChatRateLimit: v.GetInt("CHAT_RATE_LIMIT"),
		ChatRateBurst: v.GetInt("CHAT_RATE_BURST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "file:shop.db")
	v.SetDefault("SEED_DATA", true)

	v.SetDefault("FAQ_PATH", "data/faqs.json")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_TIMEOUT", 30*time.Second)

	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("INITIAL_BACKOFF", 100*time.Millisecond)
	v.SetDefault("MAX_CONCURRENCY", 20)

	v.SetDefault("CACHE_TTL", 5*time.Minute)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ACCESS_TTL", 7*24*time.Hour)
	v.SetDefault("JWT_REMEMBER_TTL", 30*24*time.Hour)

	v.SetDefault("CHAT_RATE_LIMIT", 30)
	v.SetDefault("CHAT_RATE_BURST", 5)
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be 1..65535, got %d", c.Port))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug|info|warn|error, got %q", c.LogLevel))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite|postgres, got %q", c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.FAQPath == "" {
		errs = append(errs, errors.New("FAQ_PATH is required"))
	}
	if c.OpenAITimeout <= 0 {
		errs = append(errs, errors.New("OPENAI_TIMEOUT must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}
	if c.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENCY must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRememberTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL and JWT_REMEMBER_TTL must be positive"))
	}
	if c.ChatRateLimit < 0 || c.ChatRateBurst < 0 {
		errs = append(errs, errors.New("CHAT_RATE_LIMIT and CHAT_RATE_BURST must not be negative"))
	}

	return errors.Join(errs...)
}

// UsesDefaultSecret reports whether JWT_SECRET was left at the development value.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}
