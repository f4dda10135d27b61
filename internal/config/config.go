// Package config holds the crawler's external configuration surface
// (§6 of the specification) and the validation rules the CLI applies
// before handing a Config to the core subsystems.
package config

import (
	"fmt"
	"time"
)

// Config mirrors the enumerated options table in spec §6 plus the
// timeouts and size limits named elsewhere in the spec body.
type Config struct {
	SeedFile       string
	Email          string
	DataDir        string
	ExcludeFile    string
	MaxWorkers     int
	MaxPages       int           // 0 = unbounded
	MaxDuration    time.Duration // 0 = unbounded
	LogLevel       string
	Resume         bool
	UserAgent      string
	SeededURLsOnly bool

	RedisHost string
	RedisPort int
	RedisDB   int

	// Timeouts (§7 Timeouts)
	FetchTimeout  time.Duration
	RobotsTimeout time.Duration
	RedisTimeout  time.Duration

	// Fetch worker pool knobs (§4.3)
	MaxRedirects int
	MaxBodyBytes int64

	// Politeness floor (§4.2 get_crawl_delay)
	MinCrawlDelay time.Duration

	// Enrichments (Part C/D of SPEC_FULL.md)
	EnableTLSFingerprint bool
	UseHeaderRotation    bool
	EnableJSRendering    bool
	EnableSQLiteIndex    bool
	ExpandSitemaps       bool
	ParseWorkers         int
	MaxRetries           int

	ShutdownGracePeriod time.Duration
}

// Default returns a Config populated with the spec's recommended
// defaults (70s minimum crawl delay, 30s fetch timeout, etc.).
func Default() Config {
	return Config{
		DataDir:             "./data",
		MaxWorkers:          500,
		LogLevel:            "info",
		UserAgent:           "PoliteCrawlerBot/1.0",
		RedisHost:           "127.0.0.1",
		RedisPort:           6379,
		RedisDB:             0,
		FetchTimeout:        30 * time.Second,
		RobotsTimeout:       10 * time.Second,
		RedisTimeout:        5 * time.Second,
		MaxRedirects:        10,
		MaxBodyBytes:        10 << 20, // 10 MiB
		MinCrawlDelay:       70 * time.Second,
		UseHeaderRotation:   true,
		ParseWorkers:        2,
		MaxRetries:          3,
		ShutdownGracePeriod: 30 * time.Second,
	}
}

// Validate checks the configuration for internal consistency. It is
// the generalization of the teacher's factory.go validateConfig,
// extended to the full option set.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data directory is required")
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("config: max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.MaxWorkers > 20000 {
		return fmt.Errorf("config: max_workers too high (max 20000), got %d", c.MaxWorkers)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.MinCrawlDelay < 0 {
		return fmt.Errorf("config: min_crawl_delay cannot be negative, got %v", c.MinCrawlDelay)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("config: max_retries must be between 0 and 10, got %d", c.MaxRetries)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("config: user_agent is required")
	}
	if c.EnableJSRendering {
		// Non-goal: JavaScript rendering is explicitly out of scope.
		return fmt.Errorf("config: enable_js_rendering is not supported by this crawler")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.ParseWorkers <= 0 {
		return fmt.Errorf("config: parse_workers must be positive, got %d", c.ParseWorkers)
	}
	return nil
}

// RedisAddr formats the host:port pair go-redis expects.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
