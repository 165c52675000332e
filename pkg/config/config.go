package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Application settings
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Tracker TrackerConfig
	Report  ReportConfig
}

// Server settings
type ServerConfig struct {
	Port string
}

// Tracker admin API settings
type TrackerConfig struct {
	BaseURL            string
	APIKey             string
	RequestTimeout     time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	RateLimitPerSecond int
	PageSize           int
	FetchConcurrency   int
}

// Report semantics settings
type ReportConfig struct {
	LocalUTCOffset  time.Duration
	GoogleSourceIDs []string
	CatalogTTL      time.Duration
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Tracker: TrackerConfig{
			BaseURL:            getEnv("TRACKER_BASE_URL", ""),
			APIKey:             getEnv("TRACKER_API_KEY", ""),
			RequestTimeout:     getDurationEnv("TRACKER_REQUEST_TIMEOUT", "30s"),
			MaxRetries:         getIntEnv("TRACKER_MAX_RETRIES", 3),
			RetryBackoff:       getDurationEnv("TRACKER_RETRY_BACKOFF", "500ms"),
			RateLimitPerSecond: getIntEnv("TRACKER_RATE_LIMIT_PER_SECOND", 10),
			PageSize:           getIntEnv("TRACKER_PAGE_SIZE", 500),
			FetchConcurrency:   getIntEnv("TRACKER_FETCH_CONCURRENCY", 4),
		},
		Report: ReportConfig{
			LocalUTCOffset:  getDurationEnv("REPORT_LOCAL_UTC_OFFSET", "3h"),
			GoogleSourceIDs: getListEnv("REPORT_GOOGLE_SOURCE_IDS", "2"),
			CatalogTTL:      getDurationEnv("REPORT_CATALOG_TTL", "10m"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getListEnv(key, defaultValue string) []string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
