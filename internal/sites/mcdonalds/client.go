package mcdonalds

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"outletscraper/internal/dom"
	"outletscraper/internal/models"
	"outletscraper/internal/scraper"
)

const siteName = "mcdonalds"

// Result is the outcome of one scrape call.
type Result struct {
	SearchTerm string          `json:"search_term"`
	Outlets    []models.Outlet `json:"outlets"`
	Pages      int             `json:"pages"`
	Dropped    int             `json:"dropped"`
	Warnings   int             `json:"warnings"`
}

// Empty reports a successful scrape that matched nothing.
func (r *Result) Empty() bool {
	return len(r.Outlets) == 0
}

// Message is the user-facing summary line.
func (r *Result) Message() string {
	if r.Empty() {
		return "No outlets found for search term: " + r.SearchTerm
	}
	return fmt.Sprintf("Successfully scraped %d outlets", len(r.Outlets))
}

// Client runs the search-and-paginate flow against the outlet locator.
type Client struct {
	open Opener
	opts scraper.Options
}

// NewClient fills unset options with defaults.
func NewClient(open Opener, opts scraper.Options) *Client {
	defaults := scraper.DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.Settle == nil {
		opts.Settle = defaults.Settle
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = defaults.Retry
	}
	if opts.Retry.Metrics == nil {
		opts.Retry.Metrics = opts.Metrics
	}
	if open == nil {
		open = OpenBrowser
	}
	return &Client{open: open, opts: opts}
}

// Scrape collects every outlet listed for term, page by page. An empty term
// scrapes the unfiltered listing. Structural failures return an error and no
// partial result; the browser session is closed on every path.
func (c *Client) Scrape(ctx context.Context, term string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		c.opts.Metrics.ObserveDuration(time.Since(start))
		if err != nil {
			c.opts.Metrics.IncError(err)
		}
	}()

	session, err := c.open(ctx, c.opts)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.WarnContext(ctx, "closing browser session", slog.String("site", siteName), slog.Any("error", cerr))
		}
	}()

	probe := cardProbe(session)
	if err := c.load(ctx, session, term, probe); err != nil {
		return nil, err
	}

	res = &Result{SearchTerm: term}
	walker := NewPaginationWalker(session, c.opts.Settle, probe)

	var previous string
	for page := 1; ; page++ {
		cards, err := c.cards(ctx, session, page)
		if err != nil {
			return nil, err
		}

		fp := fingerprint(cards)
		if page > 1 && fp == previous {
			slog.WarnContext(ctx, "page content unchanged after advancing, stopping",
				slog.String("site", siteName), slog.Int("page", page))
			break
		}
		previous = fp

		res.Pages = page
		c.opts.Metrics.IncPage()
		outlets := c.extractCards(ctx, cards, page, res)
		res.Outlets = append(res.Outlets, outlets...)
		slog.InfoContext(ctx, "extracted page",
			slog.String("site", siteName),
			slog.Int("page", page),
			slog.Int("outlets", len(outlets)),
			slog.Int("total", len(res.Outlets)),
		)

		if page >= c.opts.MaxPages {
			slog.InfoContext(ctx, "max pages reached", slog.String("site", siteName), slog.Int("max_pages", c.opts.MaxPages))
			break
		}

		hasNext, err := walker.HasNext(ctx)
		if err != nil {
			return nil, fmt.Errorf("check next page: %w", err)
		}
		if !hasNext {
			slog.InfoContext(ctx, "no more pages", slog.String("site", siteName))
			break
		}
		advanced, err := walker.Advance(ctx)
		if err != nil {
			return nil, fmt.Errorf("advance to page %d: %w", page+1, err)
		}
		if !advanced {
			break
		}
	}

	c.opts.Metrics.AddRecords(len(res.Outlets))
	slog.InfoContext(ctx, "scrape finished",
		slog.String("site", siteName),
		slog.String("term", term),
		slog.Int("outlets", len(res.Outlets)),
		slog.Int("pages", res.Pages),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// load opens the locator page and, for a non-empty term, runs the search.
func (c *Client) load(ctx context.Context, session Session, term string, probe scraper.Probe) error {
	slog.InfoContext(ctx, "navigating", slog.String("site", siteName), slog.String("url", c.opts.BaseURL))
	err := c.opts.Retry.Do(ctx, "navigate", func(ctx context.Context) error {
		if err := session.Navigate(ctx, c.opts.BaseURL); err != nil {
			return err
		}
		return c.opts.Settle.Settle(ctx, probe)
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", c.opts.BaseURL, err)
	}

	if term == "" {
		return nil
	}
	search := NewSearchController(session, c.opts.Timeout, c.opts.Settle, probe)
	if err := c.opts.Retry.Do(ctx, "search", func(ctx context.Context) error {
		return search.Search(ctx, term)
	}); err != nil {
		return fmt.Errorf("search %q: %w", term, err)
	}
	return nil
}

// cards waits for the result list. A list that never appears means the page
// has no results.
func (c *Client) cards(ctx context.Context, session Session, page int) ([]dom.Node, error) {
	cards, err := session.WaitFor(ctx, cardSelector, c.opts.Timeout)
	if scraper.IsNavigationTimeout(err) {
		slog.WarnContext(ctx, "no outlet cards on page", slog.String("site", siteName), slog.Int("page", page))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read outlet cards on page %d: %w", page, err)
	}
	return cards, nil
}

func (c *Client) extractCards(ctx context.Context, cards []dom.Node, page int, res *Result) []models.Outlet {
	var outlets []models.Outlet
	for i, card := range cards {
		o, warnings := ExtractOutlet(ctx, card)
		for _, w := range warnings {
			slog.WarnContext(ctx, "field extraction failed",
				slog.String("site", siteName),
				slog.Int("page", page),
				slog.Int("card", i),
				slog.String("field", w.Field),
				slog.String("warning", w.Message),
			)
			c.opts.Metrics.IncWarning(w.Field)
		}
		res.Warnings += len(warnings)

		reason := ""
		switch {
		case o.Name == "":
			reason = "missing_name"
		case o.Address == "":
			reason = "missing_address"
		}
		if reason != "" {
			slog.DebugContext(ctx, "dropping card", slog.Int("page", page), slog.Int("card", i), slog.String("reason", reason))
			c.opts.Metrics.IncDropped(reason)
			res.Dropped++
			continue
		}
		outlets = append(outlets, o)
	}
	return outlets
}

// ExtractDocument runs the card extraction over a saved results page.
func ExtractDocument(ctx context.Context, html, term string, opts scraper.Options) (*Result, error) {
	root, err := dom.FromHTML(html)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	cards, err := root.Find(cardSelector)
	if err != nil {
		return nil, err
	}
	c := NewClient(nil, opts)
	res := &Result{SearchTerm: term, Pages: 1}
	res.Outlets = c.extractCards(ctx, cards, 1, res)
	c.opts.Metrics.AddRecords(len(res.Outlets))
	return res, nil
}

func cardProbe(session Session) scraper.Probe {
	return func(ctx context.Context) (string, error) {
		controls, err := session.Query(ctx, cardSelector)
		if err != nil {
			return "", err
		}
		nodes := make([]dom.Node, len(controls))
		for i, c := range controls {
			nodes[i] = c
		}
		return fingerprint(nodes), nil
	}
}

// fingerprint summarises the visible card text of a page.
func fingerprint(cards []dom.Node) string {
	h := sha1.New()
	for _, card := range cards {
		text, err := card.Text()
		if err != nil {
			continue
		}
		h.Write([]byte(text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
