package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AppEnv             string
	AppURL             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	SessionSecret      string
	PrivilegedUsername string
	MaxMessageLength   int
	SeedAdminUsername  string
	SeedAdminPassword  string
	PublishRate        float64
	PublishBurst       int
	LogLevel           string
	LogFormat          string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		AppURL:             getEnv("APP_URL", ""),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		PrivilegedUsername: getEnv("PRIVILEGED_USERNAME", ""),
		SeedAdminUsername:  getEnv("SEED_ADMIN_USERNAME", ""),
		SeedAdminPassword:  getEnv("SEED_ADMIN_PASSWORD", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	maxLen, err := getEnvInt("MAX_MESSAGE_LENGTH", 500)
	if err != nil {
		return nil, err
	}
	if maxLen <= 0 {
		return nil, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", maxLen)
	}
	cfg.MaxMessageLength = maxLen

	rate, err := getEnvFloat("PUBLISH_RATE", 5)
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, fmt.Errorf("PUBLISH_RATE must be positive, got %v", rate)
	}
	cfg.PublishRate = rate

	burst, err := getEnvInt("PUBLISH_BURST", 10)
	if err != nil {
		return nil, err
	}
	if burst <= 0 {
		return nil, fmt.Errorf("PUBLISH_BURST must be positive, got %d", burst)
	}
	cfg.PublishBurst = burst

	// Seed credentials: both or neither
	if (cfg.SeedAdminUsername == "") != (cfg.SeedAdminPassword == "") {
		return nil, fmt.Errorf("SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return value, nil
}
