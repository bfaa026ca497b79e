package mcdonalds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outletscraper/internal/dom"
	"outletscraper/internal/scraper"
)

// fakeSession serves a fixed sequence of result pages. Clicking an enabled
// next control moves to the following page unless stuck is set.
type fakeSession struct {
	pages    []string
	current  int
	root     *dom.Selection
	stuck    bool
	navErrs  []error
	visited  []string
	input    *dom.StaticControl
	searched int
	closed   int
}

func newFakeSession(pages ...string) *fakeSession {
	return &fakeSession{pages: pages}
}

func (f *fakeSession) opener() Opener {
	return func(ctx context.Context, _ scraper.Options) (Session, error) {
		return f, nil
	}
}

func (f *fakeSession) load(i int) error {
	root, err := dom.FromHTML(f.pages[i])
	if err != nil {
		return err
	}
	f.current = i
	f.root = root
	return nil
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.visited = append(f.visited, url)
	if len(f.navErrs) > 0 {
		err := f.navErrs[0]
		f.navErrs = f.navErrs[1:]
		return err
	}
	return f.load(0)
}

func (f *fakeSession) WaitFor(ctx context.Context, selector string, _ time.Duration) ([]dom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, _ := f.root.Find(selector)
	if len(nodes) == 0 {
		return nil, &scraper.NavigationTimeoutError{Selector: selector, Err: context.DeadlineExceeded}
	}
	return nodes, nil
}

func (f *fakeSession) WaitForControl(ctx context.Context, selector string, timeout time.Duration) (dom.Control, error) {
	nodes, err := f.WaitFor(ctx, selector, timeout)
	if err != nil {
		return nil, err
	}
	ctl := dom.NewControl(nodes[0].(*dom.Selection))
	switch selector {
	case searchInputSelector:
		f.input = ctl
	case searchButtonSelector:
		ctl.OnClick = func() error {
			f.searched++
			return nil
		}
	}
	return ctl, nil
}

func (f *fakeSession) Query(ctx context.Context, selector string) ([]dom.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes, _ := f.root.Find(selector)
	controls := make([]dom.Control, len(nodes))
	for i, n := range nodes {
		ctl := dom.NewControl(n.(*dom.Selection))
		ctl.OnClick = f.advance
		controls[i] = ctl
	}
	return controls, nil
}

func (f *fakeSession) advance() error {
	if f.stuck || f.current+1 >= len(f.pages) {
		return nil
	}
	return f.load(f.current + 1)
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

const searchForm = `<form><input type="text" id="address" name="address" value=""><button class="btnSearchNow">Search Now</button></form>`

// page wraps cards in a results document. next is "", "enabled" or "disabled".
func page(next string, cards ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>" + searchForm + `<div class="results">`)
	for _, c := range cards {
		sb.WriteString(c)
	}
	sb.WriteString("</div>")
	switch next {
	case "enabled":
		sb.WriteString(`<ul class="pagination"><li class="next"><a>Next</a></li></ul>`)
	case "disabled":
		sb.WriteString(`<ul class="pagination"><li class="next disabled"><a>Next</a></li></ul>`)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func simpleCard(name, address string) string {
	title := ""
	if name != "" {
		title = `<div class="addressTitle"><strong>` + name + `</strong></div>`
	}
	return fmt.Sprintf(`<div class="addressBox"><div class="addressTop">%s</div><p class="addressText">%s</p></div>`, title, address)
}

func testOptions() scraper.Options {
	return scraper.Options{
		Timeout:  time.Second,
		MaxPages: 10,
		Settle:   scraper.NoDelay,
		Retry:    scraper.RetryPolicy{MaxAttempts: 2},
	}
}
