package mcdonalds

import (
	"context"
	"log/slog"

	"outletscraper/internal/dom"
	"outletscraper/internal/scraper"
)

// PaginationWalker finds and follows the "next page" control.
type PaginationWalker struct {
	session Session
	settle  scraper.SettleStrategy
	probe   scraper.Probe
}

func NewPaginationWalker(session Session, settle scraper.SettleStrategy, probe scraper.Probe) *PaginationWalker {
	return &PaginationWalker{session: session, settle: settle, probe: probe}
}

// HasNext reports whether an enabled next-page control is present.
func (w *PaginationWalker) HasNext(ctx context.Context) (bool, error) {
	next, err := w.next(ctx)
	return next != nil, err
}

// Advance clicks the next-page control and waits for the page to settle.
// It returns false without error when there is no enabled control.
func (w *PaginationWalker) Advance(ctx context.Context) (bool, error) {
	next, err := w.next(ctx)
	if err != nil || next == nil {
		return false, err
	}
	if err := next.Click(); err != nil {
		return false, &scraper.SessionError{Op: "advance page", Err: err}
	}
	if err := w.settle.Settle(ctx, w.probe); err != nil {
		return false, err
	}
	return true, nil
}

func (w *PaginationWalker) next(ctx context.Context) (dom.Control, error) {
	for _, selector := range nextPageSelectors {
		controls, err := w.session.Query(ctx, selector)
		if err != nil {
			return nil, err
		}
		for _, c := range controls {
			enabled, err := c.Enabled()
			if err != nil {
				slog.DebugContext(ctx, "next control state unreadable", slog.String("selector", selector), slog.Any("error", err))
				continue
			}
			if enabled {
				return c, nil
			}
		}
	}
	return nil, nil
}
