package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"outletscraper/internal/dom"
	"outletscraper/internal/scraper"
)

// DefaultWait is the element wait budget when the caller passes zero.
const DefaultWait = 10 * time.Second

// Session is one browser with one page, driven by a single scrape call.
type Session struct {
	browser     *Browser
	page        *rod.Page
	navTimeout  time.Duration
	defaultWait time.Duration
}

// Open launches a browser and opens the working page. The caller owns the
// session and must Close it.
func Open(ctx context.Context, config Config, wait time.Duration) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := New(config)
	if err != nil {
		return nil, err
	}
	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, err
	}
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Session{
		browser:     b,
		page:        page,
		navTimeout:  30 * time.Second,
		defaultWait: wait,
	}, nil
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.navTimeout)
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return classify(ctx, "navigate", "document", err)
	}
	if err := p.WaitLoad(); err != nil {
		return classify(ctx, "navigate", "document", err)
	}
	return nil
}

// WaitFor blocks until at least one element matches selector, then returns
// all current matches.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) ([]dom.Node, error) {
	if err := s.wait(ctx, selector, timeout); err != nil {
		return nil, err
	}
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, classify(ctx, "query", selector, err)
	}
	nodes := make([]dom.Node, len(els))
	for i, el := range els {
		nodes[i] = &element{el: el}
	}
	return nodes, nil
}

// WaitForControl blocks until selector matches and returns the first match.
func (s *Session) WaitForControl(ctx context.Context, selector string, timeout time.Duration) (dom.Control, error) {
	if err := s.wait(ctx, selector, timeout); err != nil {
		return nil, err
	}
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, classify(ctx, "query", selector, err)
	}
	return &element{el: el}, nil
}

// Query returns the current matches without waiting.
func (s *Session) Query(ctx context.Context, selector string) ([]dom.Control, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, classify(ctx, "query", selector, err)
	}
	controls := make([]dom.Control, len(els))
	for i, el := range els {
		controls[i] = &element{el: el}
	}
	return controls, nil
}

// HTML returns the current document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", classify(ctx, "html", "document", err)
	}
	return html, nil
}

// Close closes the page and the browser. Safe to call more than once.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func (s *Session) wait(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.defaultWait
	}
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()
	if _, err := p.Element(selector); err != nil {
		return classify(ctx, "wait", selector, err)
	}
	return nil
}

// classify maps rod errors onto the scraper error taxonomy. Caller
// cancellation is returned as the context error.
func classify(ctx context.Context, op, selector string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &scraper.NavigationTimeoutError{Selector: selector, Err: err}
	}
	return &scraper.SessionError{Op: op, Err: err}
}

// element adapts a rod element to dom.Control.
type element struct {
	el *rod.Element
}

func (e *element) Find(selector string) ([]dom.Node, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	nodes := make([]dom.Node, len(els))
	for i, el := range els {
		nodes[i] = &element{el: el}
	}
	return nodes, nil
}

func (e *element) Text() (string, error) {
	return e.el.Text()
}

func (e *element) TextContent() (string, error) {
	v, err := e.el.Property("textContent")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *element) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Input(text string) error {
	if err := e.el.SelectAllText(); err != nil {
		return fmt.Errorf("clear input: %w", err)
	}
	return e.el.Input(text)
}

func (e *element) Click() error {
	if err := e.el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Enabled() (bool, error) {
	disabled, err := e.el.Property("disabled")
	if err != nil {
		return false, err
	}
	if disabled.Bool() {
		return false, nil
	}
	class, err := e.el.Attribute("class")
	if err != nil {
		return false, err
	}
	if class != nil {
		for _, c := range strings.Fields(*class) {
			if c == "disabled" {
				return false, nil
			}
		}
	}
	return true, nil
}
