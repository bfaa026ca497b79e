package mcdonalds

import (
	"context"
	"fmt"
	"os"

	"outletscraper/internal/scraper"
)

func init() {
	scraper.Register(&OutletScraper{})
}

// OutletScraper implements scraper.Scraper for the outlet locator.
type OutletScraper struct {
	open Opener
}

func (s *OutletScraper) Name() string { return siteName }

// Scrape runs a live scrape for term, or extracts a saved page when
// opts.Extra["from-html"] names a file.
func (s *OutletScraper) Scrape(ctx context.Context, term string, opts scraper.Options) (scraper.Content, error) {
	if path := opts.Extra["from-html"]; path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read saved page: %w", err)
		}
		res, err := ExtractDocument(ctx, string(raw), term, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to extract saved page: %w", err)
		}
		return NewOutletContent(res), nil
	}

	res, err := NewClient(s.open, opts).Scrape(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape outlets: %w", err)
	}
	return NewOutletContent(res), nil
}
