package mcdonalds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outletscraper/internal/scraper"
)

// SearchController fills in and submits the locator search form.
type SearchController struct {
	session Session
	timeout time.Duration
	settle  scraper.SettleStrategy
	probe   scraper.Probe
}

func NewSearchController(session Session, timeout time.Duration, settle scraper.SettleStrategy, probe scraper.Probe) *SearchController {
	return &SearchController{session: session, timeout: timeout, settle: settle, probe: probe}
}

// Search replaces the search box contents with term, submits the form and
// waits for the results to settle. A missing input or button surfaces as
// *scraper.NavigationTimeoutError.
func (c *SearchController) Search(ctx context.Context, term string) error {
	input, err := c.session.WaitForControl(ctx, searchInputSelector, c.timeout)
	if err != nil {
		return fmt.Errorf("locate search input: %w", err)
	}
	if err := input.Input(term); err != nil {
		return &scraper.SessionError{Op: "type search term", Err: err}
	}

	button, err := c.session.WaitForControl(ctx, searchButtonSelector, c.timeout)
	if err != nil {
		return fmt.Errorf("locate search button: %w", err)
	}
	if err := button.Click(); err != nil {
		return &scraper.SessionError{Op: "submit search", Err: err}
	}

	if err := c.settle.Settle(ctx, c.probe); err != nil {
		return err
	}
	slog.InfoContext(ctx, "search submitted", slog.String("site", siteName), slog.String("term", term))
	return nil
}
