package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// LLM provider configuration. An empty API key is not an error: the
	// deterministic fallback provider is selected instead.
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	LLMTimeout        time.Duration
	LLMMaxRetries     int
	LLMMaxTokens      int
	LLMTemperature    float64
	LLMAssistedSetup  bool // ask the LLM to generate the query plan itself
	DefaultPlan       string
	ScanCooldown      time.Duration
	AutoRescan        bool
	RescanSchedule    string // cron spec for the automatic re-scan pass
	TimeZone          string

	// Document store. Empty address selects the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional Azure Blob archive for completed scan records.
	StorageAccount   string
	StorageContainer string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		LLMTimeout:       getDurationEnv("LLM_TIMEOUT", 45*time.Second),
		LLMMaxRetries:    getIntEnv("LLM_MAX_RETRIES", 2),
		LLMMaxTokens:     getIntEnv("LLM_MAX_TOKENS", 800),
		LLMTemperature:   getFloatEnv("LLM_TEMPERATURE", 0.7),
		LLMAssistedSetup: getBoolEnv("LLM_ASSISTED_QUERIES", true),

		DefaultPlan:    getEnv("DEFAULT_PLAN", "free"),
		ScanCooldown:   getDurationEnv("SCAN_COOLDOWN", 7*24*time.Hour),
		AutoRescan:     getBoolEnv("AUTO_RESCAN", false),
		RescanSchedule: getEnv("RESCAN_SCHEDULE", "0 0 9 * * MON"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "scan-records"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	if c.ScanCooldown <= 0 {
		return fmt.Errorf("SCAN_COOLDOWN must be positive")
	}

	valid := false
	for _, id := range []string{"free", "starter", "pro", "enterprise"} {
		if c.DefaultPlan == id {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("DEFAULT_PLAN must be one of free, starter, pro, enterprise")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}
