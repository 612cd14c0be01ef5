package config

import (
	"os"
	"strconv"
)

// Config holds service configuration
type Config struct {
	Port                   string
	DBPath                 string
	JWTSecret              string
	LogLevel               string
	SnapshotWindowHours    int
	SnapshotRebuildMinutes int
	SubscriberBuffer       int
	IngestRateLimit        int // requests per minute per client
}

// Load reads configuration from the environment with defaults
func Load() *Config {
	return &Config{
		Port:                   getEnv("PORT", ":8080"),
		DBPath:                 getEnv("DB_PATH", "./data/tracking/tracking.db"),
		JWTSecret:              getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		SnapshotWindowHours:    getEnvInt("SNAPSHOT_WINDOW_HOURS", 24),
		SnapshotRebuildMinutes: getEnvInt("SNAPSHOT_REBUILD_MINUTES", 10),
		SubscriberBuffer:       getEnvInt("SUBSCRIBER_BUFFER", 64),
		IngestRateLimit:        getEnvInt("INGEST_RATE_LIMIT", 120),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
