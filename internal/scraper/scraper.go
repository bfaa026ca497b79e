package scraper

import (
	"context"
	"time"
)

type Scraper interface {
	Name() string
	Scrape(ctx context.Context, target string, opts Options) (Content, error)
}

type Content interface {
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
	ToTable() (string, error)
}

type Options struct {
	BaseURL   string
	Timeout   time.Duration // per-element wait budget
	ShowUI    bool
	ProxyURL  string // --proxy flag or OUTLETS_PROXY env var
	ChromeBin string
	MaxPages  int // <= 0 falls back to DefaultOptions().MaxPages
	Settle    SettleStrategy
	Retry     RetryPolicy
	Metrics   *Metrics
	Extra     map[string]string // Site-specific parameters
}

// DefaultOptions returns the options used when no configuration is loaded.
func DefaultOptions() Options {
	return Options{
		Timeout:  10 * time.Second,
		MaxPages: 50,
		Settle:   FixedDelay(3 * time.Second),
		Retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     time.Second,
			BackoffMax:  8 * time.Second,
		},
	}
}
