package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Cached telegram query store. Empty disables the store.
	DatabaseURL string

	// Google Custom Search credentials. The API key is shared with the YouTube trailer lookup.
	GoogleAPIKey     string
	CSEID            string
	SearchSiteFilter string
	SearchAPIURL     string
	YouTubeAPIURL    string

	CacheProbeTimeout time.Duration
	SearchTimeout     time.Duration
	WriteTimeout      time.Duration
	WriterPoolSize    int
	WriterQueueSize   int

	// Anime catalog (Jikan) settings
	CatalogAPIURL        string
	CatalogCacheTTL      time.Duration
	CatalogCacheRedisURL string
	CatalogRateLimit     float64
	CatalogMaxRetries    int
	CatalogRetryDelay    time.Duration

	SiteURL string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*AppConfig, error) {
	// A missing .env file is fine, environment variables can still be used.
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Info: Could not load .env file: %v (this is ok if using environment variables)\n", err)
	}
	return FromEnv()
}

// FromEnv builds an AppConfig from the current process environment without touching .env files.
func FromEnv() (*AppConfig, error) {
	var errs []string
	dur := func(key, fallback string) time.Duration {
		raw := getEnv(key, fallback)
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid duration for %s: %q", key, raw))
		}
		return d
	}
	num := func(key, fallback string) int {
		raw := getEnv(key, fallback)
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid integer for %s: %q", key, raw))
		}
		return n
	}

	config := &AppConfig{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		CSEID:                os.Getenv("CSE_ID"),
		SearchSiteFilter:     getEnv("SEARCH_SITE_FILTER", "t.me"),
		SearchAPIURL:         os.Getenv("SEARCH_API_URL"),
		YouTubeAPIURL:        os.Getenv("YOUTUBE_API_URL"),
		CacheProbeTimeout:    dur("CACHE_PROBE_TIMEOUT", "1s"),
		SearchTimeout:        dur("SEARCH_TIMEOUT", "5s"),
		WriteTimeout:         dur("WRITE_TIMEOUT", "5s"),
		WriterPoolSize:       num("WRITER_POOL_SIZE", "2"),
		WriterQueueSize:      num("WRITER_QUEUE_SIZE", "64"),
		CatalogAPIURL:        strings.TrimRight(getEnv("API_URL", "https://api.jikan.moe/v4"), "/"),
		CatalogCacheTTL:      dur("CATALOG_CACHE_TTL", "2h"),
		CatalogCacheRedisURL: os.Getenv("CATALOG_CACHE_REDIS_URL"),
		CatalogMaxRetries:    num("CATALOG_MAX_RETRIES", "3"),
		CatalogRetryDelay:    dur("CATALOG_RETRY_DELAY", "1s"),
		SiteURL:              strings.TrimRight(getEnv("SITE_URL", "https://animax-v2.vercel.app"), "/"),
	}

	rawRate := getEnv("CATALOG_RATE_LIMIT", "3")
	rate, err := strconv.ParseFloat(rawRate, 64)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid number for CATALOG_RATE_LIMIT: %q", rawRate))
	}
	config.CatalogRateLimit = rate

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration parsing failed: %s", strings.Join(errs, "; "))
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid
func (c *AppConfig) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port number: %s", c.Port)
	}

	if c.DatabaseURL != "" {
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		switch u.Scheme {
		case "redis", "rediss", "sqlite", "memory":
		default:
			return fmt.Errorf("unsupported DATABASE_URL scheme: %q (must be redis, rediss, sqlite or memory)", u.Scheme)
		}
	}

	timeouts := map[string]time.Duration{
		"CACHE_PROBE_TIMEOUT": c.CacheProbeTimeout,
		"SEARCH_TIMEOUT":      c.SearchTimeout,
		"WRITE_TIMEOUT":       c.WriteTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.WriterPoolSize <= 0 {
		return fmt.Errorf("WRITER_POOL_SIZE must be positive, got %d", c.WriterPoolSize)
	}
	if c.WriterQueueSize <= 0 {
		return fmt.Errorf("WRITER_QUEUE_SIZE must be positive, got %d", c.WriterQueueSize)
	}
	if c.CatalogRateLimit <= 0 {
		return fmt.Errorf("CATALOG_RATE_LIMIT must be positive, got %v", c.CatalogRateLimit)
	}
	if c.CatalogMaxRetries < 0 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must not be negative, got %d", c.CatalogMaxRetries)
	}

	// Missing optional configuration only degrades features
	if !c.HasSearchConfig() {
		fmt.Println("Warning: GOOGLE_API_KEY or CSE_ID not set - telegram search will return empty results")
	}
	if c.DatabaseURL == "" {
		fmt.Println("Warning: DATABASE_URL not set - telegram search results will not be cached")
	}

	return nil
}

// GetPort returns the port as an integer
func (c *AppConfig) GetPort() int {
	port, _ := strconv.Atoi(c.Port) // Already validated in Validate()
	return port
}

// HasSearchConfig returns true if the upstream search credentials are available
func (c *AppConfig) HasSearchConfig() bool {
	return c.GoogleAPIKey != "" && c.CSEID != ""
}

// HasYouTubeConfig returns true if trailer metadata can be fetched
func (c *AppConfig) HasYouTubeConfig() bool {
	return c.GoogleAPIKey != ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
