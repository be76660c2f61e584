package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	DBPath string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	LLMTemperature float64
	LLMTimeout     time.Duration

	HistoryLimit     int
	MaxMessageLength int

	CookieSecret string
	CookieSecure bool
	CookieMaxAge time.Duration

	AdminUser         string
	AdminPasswordHash string

	StaticDir string
	LogLevel  string
}

// Load reads an optional .env file (existing environment variables win) and
// builds the configuration from the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}

	cfg := Config{
		Port:   envOrDefault("PORT", "8100"),
		DBPath: envOrDefault("DB_PATH", "bizchat.db"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTemperature: envFloatOrDefault("LLM_TEMPERATURE", 0.2),
		LLMTimeout:     envDurationOrDefault("LLM_TIMEOUT", 30*time.Second),

		HistoryLimit:     envIntOrDefault("HISTORY_LIMIT", 10),
		MaxMessageLength: envIntOrDefault("MAX_MESSAGE_LENGTH", 2000),

		CookieSecret: os.Getenv("COOKIE_SECRET"),
		CookieSecure: envBoolOrDefault("COOKIE_SECURE", false),
		CookieMaxAge: envDurationOrDefault("COOKIE_MAX_AGE", 720*time.Hour),

		AdminUser:         envOrDefault("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		StaticDir: os.Getenv("STATIC_DIR"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.CookieSecret == "" {
		errs = append(errs, errors.New("COOKIE_SECRET must be set"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be within [0, 2], got %v", c.LLMTemperature))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ExportEnabled reports whether admin credentials for /export are configured.
func (c Config) ExportEnabled() bool {
	return c.AdminUser != "" && c.AdminPasswordHash != ""
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloatOrDefault(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBoolOrDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
