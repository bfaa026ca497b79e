package config

import (
	"fmt"
	"net/url"
	"time"

	"outletscraper/internal/scraper"
)

// Config holds runtime configuration for the scraper, store and API.
type Config struct {
	BaseURL         string
	ShowUI          bool
	ProxyURL        string
	ChromeBin       string
	ElementTimeout  time.Duration
	SettleDelay     time.Duration
	SettleMode      string // fixed, poll or none
	MaxPages        int
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	Database        Database
	OpenAI          OpenAI
	ListenAddr      string
	AllowedOrigins  []string
	Verbose         bool
}

// Database selects the outlet store. URL takes precedence over File.
type Database struct {
	File      string `json:"file"`
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenAI configures the embedding and chat completion client.
type OpenAI struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
	ChatModel      string `json:"chat_model"`
	CacheSize      int    `json:"cache_size"`
	Timeout        string `json:"timeout"`
}

// DefaultConfig returns the defaults for the public outlet locator.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.mcdonalds.com.my/locate-us",
		ElementTimeout:  10 * time.Second,
		SettleDelay:     3 * time.Second,
		SettleMode:      "fixed",
		MaxPages:        50,
		MaxRetries:      2,
		RetryBackoff:    time.Second,
		RetryBackoffMax: 8 * time.Second,
		Database: Database{
			File: "outlets.db",
		},
		OpenAI: OpenAI{
			BaseURL:        "https://api.openai.com/v1",
			EmbeddingModel: "text-embedding-3-small",
			Dimensions:     512,
			ChatModel:      "gpt-4o-mini",
			CacheSize:      256,
			Timeout:        "30s",
		},
		ListenAddr:     ":8000",
		AllowedOrigins: []string{"*"},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.ProxyURL != "" {
		if p, err := url.Parse(c.ProxyURL); err != nil || p.Host == "" {
			return fmt.Errorf("invalid proxy URL %q", c.ProxyURL)
		}
	}
	if c.ElementTimeout <= 0 {
		return fmt.Errorf("element timeout must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	switch c.SettleMode {
	case "fixed", "poll", "none":
	default:
		return fmt.Errorf("settle mode must be fixed, poll, or none")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Database.File == "" && c.Database.URL == "" {
		return fmt.Errorf("database file or URL must be set")
	}
	if c.OpenAI.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}
	if c.OpenAI.BaseURL == "" {
		return fmt.Errorf("openai base URL cannot be empty")
	}
	if _, err := time.ParseDuration(c.OpenAI.Timeout); err != nil {
		return fmt.Errorf("invalid openai timeout: %w", err)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	return nil
}

// Settle builds the settle strategy named by SettleMode.
func (c *Config) Settle() scraper.SettleStrategy {
	switch c.SettleMode {
	case "poll":
		return scraper.PollUntilStable{Interval: 250 * time.Millisecond, Timeout: c.SettleDelay}
	case "none":
		return scraper.NoDelay
	default:
		return scraper.FixedDelay(c.SettleDelay)
	}
}

// ScraperOptions converts the configuration into per-call scrape options.
func (c *Config) ScraperOptions(metrics *scraper.Metrics) scraper.Options {
	return scraper.Options{
		BaseURL:   c.BaseURL,
		Timeout:   c.ElementTimeout,
		ShowUI:    c.ShowUI,
		ProxyURL:  c.ProxyURL,
		ChromeBin: c.ChromeBin,
		MaxPages:  c.MaxPages,
		Settle:    c.Settle(),
		Retry: scraper.RetryPolicy{
			MaxAttempts: c.MaxRetries + 1,
			Backoff:     c.RetryBackoff,
			BackoffMax:  c.RetryBackoffMax,
			Metrics:     metrics,
		},
		Metrics: metrics,
		Extra:   map[string]string{},
	}
}
