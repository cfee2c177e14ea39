package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	ServerHost          string
	ServerPort          string
	ServerMode          string
	LogLevel            string
	CrawlDelay          time.Duration
	RequestTimeout      time.Duration
	RobotsTimeout       time.Duration
	CrawlRetries        int
	MaxConcurrentCrawls int
	UserAgent           string
}

// Load reads configuration from environment variables, optionally seeded from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Empty values fall back to defaults.
func FromEnv(lookup func(string) string) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		ServerHost: env.str("HOST", "0.0.0.0"),
		ServerPort: env.str("PORT", "8080"),
		ServerMode: env.str("GIN_MODE", "release"),
		LogLevel:   env.str("LOG_LEVEL", "info"),
		UserAgent:  env.str("USER_AGENT", ""),
	}

	var err error

	if cfg.CrawlDelay, err = env.duration("CRAWL_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}

	if cfg.RequestTimeout, err = env.duration("REQUEST_TIMEOUT", 12*time.Second); err != nil {
		return nil, err
	}

	if cfg.RobotsTimeout, err = env.duration("ROBOTS_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.CrawlRetries, err = env.integer("CRAWL_RETRIES", 1); err != nil {
		return nil, err
	}

	if cfg.MaxConcurrentCrawls, err = env.integer("MAX_CONCURRENT_CRAWLS", 5); err != nil {
		return nil, err
	}

	if cfg.MaxConcurrentCrawls < 1 {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_CRAWLS: must be positive, got %d", cfg.MaxConcurrentCrawls)
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

type envReader struct {
	lookup func(string) string
}

func (e envReader) str(key, def string) string {
	val := e.lookup(key)
	if val == "" {
		return def
	}

	return val
}

func (e envReader) duration(key string, def time.Duration) (time.Duration, error) {
	val := e.lookup(key)
	if val == "" {
		return def, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

func (e envReader) integer(key string, def int) (int, error) {
	val := e.lookup(key)
	if val == "" {
		return def, nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}
