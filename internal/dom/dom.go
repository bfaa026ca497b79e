// Package dom abstracts the subset of DOM access used by site extractors so the
// same extraction rules run against a live browser page or a static HTML document.
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a read-only element handle.
type Node interface {
	// Find returns the descendants matching a CSS selector, in document order.
	Find(selector string) ([]Node, error)
	// Text returns the rendered text of the element.
	Text() (string, error)
	// TextContent returns the raw textContent, including text hidden by CSS.
	TextContent() (string, error)
	// Attr returns an attribute value and whether it is present.
	Attr(name string) (string, bool, error)
}

// Control is an element the caller can interact with.
type Control interface {
	Node
	// Input clears the current value and types text.
	Input(text string) error
	Click() error
	// Enabled reports whether the control is interactable: not disabled and
	// not carrying a "disabled" class.
	Enabled() (bool, error)
}

// Selection is a Node backed by a goquery selection.
type Selection struct {
	sel *goquery.Selection
}

// FromHTML parses an HTML document and returns its root.
func FromHTML(html string) (*Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Selection{sel: doc.Selection}, nil
}

// Wrap adapts an existing goquery selection.
func Wrap(sel *goquery.Selection) *Selection {
	return &Selection{sel: sel}
}

func (s *Selection) Find(selector string) ([]Node, error) {
	var nodes []Node
	s.sel.Find(selector).Each(func(_ int, child *goquery.Selection) {
		nodes = append(nodes, &Selection{sel: child})
	})
	return nodes, nil
}

// Text approximates innerText: <br> becomes a newline.
func (s *Selection) Text() (string, error) {
	clone := s.sel.Clone()
	clone.Find("br").ReplaceWithHtml("\n")
	return clone.Text(), nil
}

func (s *Selection) TextContent() (string, error) {
	return s.sel.Text(), nil
}

func (s *Selection) Attr(name string) (string, bool, error) {
	v, ok := s.sel.Attr(name)
	return v, ok, nil
}

// HTML returns the outer HTML of the selection.
func (s *Selection) HTML() (string, error) {
	return goquery.OuterHtml(s.sel)
}

// Goquery exposes the underlying selection.
func (s *Selection) Goquery() *goquery.Selection {
	return s.sel
}

// StaticControl turns a static node into a Control. Input records the typed
// value and Click invokes OnClick, which lets tests script page transitions.
type StaticControl struct {
	*Selection
	Value   string
	Clicks  int
	OnClick func() error
}

// NewControl wraps a selection as a StaticControl.
func NewControl(sel *Selection) *StaticControl {
	return &StaticControl{Selection: sel}
}

func (c *StaticControl) Input(text string) error {
	c.Value = text
	return nil
}

func (c *StaticControl) Click() error {
	c.Clicks++
	if c.OnClick != nil {
		return c.OnClick()
	}
	return nil
}

func (c *StaticControl) Enabled() (bool, error) {
	if _, ok := c.sel.Attr("disabled"); ok {
		return false, nil
	}
	return !c.sel.HasClass("disabled"), nil
}
