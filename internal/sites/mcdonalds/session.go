package mcdonalds

import (
	"context"
	"time"

	"outletscraper/internal/browser"
	"outletscraper/internal/dom"
	"outletscraper/internal/scraper"
)

// Session is the page-level browser handle the scrape flow drives.
// *browser.Session satisfies it; tests substitute static documents.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) ([]dom.Node, error)
	WaitForControl(ctx context.Context, selector string, timeout time.Duration) (dom.Control, error)
	Query(ctx context.Context, selector string) ([]dom.Control, error)
	Close() error
}

// Opener starts a new Session for one scrape call.
type Opener func(ctx context.Context, opts scraper.Options) (Session, error)

// OpenBrowser launches a real Chrome session.
func OpenBrowser(ctx context.Context, opts scraper.Options) (Session, error) {
	s, err := browser.Open(ctx, browser.Config{
		Headless: !opts.ShowUI,
		ProxyURL: opts.ProxyURL,
		Bin:      opts.ChromeBin,
	}, opts.Timeout)
	if err != nil {
		return nil, err
	}
	return s, nil
}
