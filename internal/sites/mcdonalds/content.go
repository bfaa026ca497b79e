package mcdonalds

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/jedib0t/go-pretty/v6/table"

	"outletscraper/internal/models"
)

// OutletContent renders a scrape Result in every output format.
type OutletContent struct {
	result *Result
}

func NewOutletContent(result *Result) *OutletContent {
	return &OutletContent{result: result}
}

// Result returns the underlying scrape result.
func (c *OutletContent) Result() *Result {
	return c.result
}

func (c *OutletContent) title() string {
	if c.result.SearchTerm == "" {
		return "Outlets"
	}
	return fmt.Sprintf("Outlets matching %q", c.result.SearchTerm)
}

// ToHTML returns one section per outlet.
func (c *OutletContent) ToHTML() (string, error) {
	var sb strings.Builder
	sb.WriteString("<h1>" + html.EscapeString(c.title()) + "</h1>\n")
	sb.WriteString("<p>" + html.EscapeString(c.result.Message()) + "</p>\n")
	for _, o := range c.result.Outlets {
		sb.WriteString("<h2>" + html.EscapeString(o.Name) + "</h2>\n<ul>\n")
		item := func(label, value string) {
			if value == "" {
				return
			}
			sb.WriteString("<li><strong>" + label + ":</strong> " + html.EscapeString(value) + "</li>\n")
		}
		item("Address", o.Address)
		item("Hours", o.OperatingHours)
		item("Telephone", o.Telephone)
		item("Services", o.Attribute)
		if o.WazeLink != "" {
			link := html.EscapeString(o.WazeLink)
			sb.WriteString(`<li><strong>Waze:</strong> <a href="` + link + `">` + link + "</a></li>\n")
		}
		sb.WriteString("</ul>\n")
	}
	return sb.String(), nil
}

// ToMarkdown converts the HTML rendering.
func (c *OutletContent) ToMarkdown() (string, error) {
	h, err := c.ToHTML()
	if err != nil {
		return "", err
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(h)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}

// ToText returns a compact plain-text listing.
func (c *OutletContent) ToText() (string, error) {
	var sb strings.Builder
	sb.WriteString(c.result.Message() + "\n")
	for i, o := range c.result.Outlets {
		sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, o.Name))
		sb.WriteString("   " + o.Address + "\n")
		sb.WriteString("   Hours: " + o.OperatingHours + "\n")
		if o.Telephone != "" {
			sb.WriteString("   " + o.Telephone + "\n")
		}
		if o.Attribute != "" {
			sb.WriteString("   Services: " + o.Attribute + "\n")
		}
		if o.WazeLink != "" {
			sb.WriteString("   " + o.WazeLink + "\n")
		}
	}
	return sb.String(), nil
}

func (c *OutletContent) ToJSON() ([]byte, error) {
	outlets := c.result.Outlets
	if outlets == nil {
		outlets = []models.Outlet{}
	}
	return json.MarshalIndent(struct {
		Success    bool            `json:"success"`
		Message    string          `json:"message"`
		SearchTerm string          `json:"search_term"`
		Pages      int             `json:"pages"`
		Total      int             `json:"total"`
		Outlets    []models.Outlet `json:"outlets"`
	}{
		Success:    !c.result.Empty(),
		Message:    c.result.Message(),
		SearchTerm: c.result.SearchTerm,
		Pages:      c.result.Pages,
		Total:      len(outlets),
		Outlets:    outlets,
	}, "", "  ")
}

func (c *OutletContent) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Name", "Address", "Operating Hours", "Telephone", "Attribute", "Latitude", "Longitude", "Waze Link"})
	for _, o := range c.result.Outlets {
		_ = w.Write([]string{
			o.Name,
			o.Address,
			o.OperatingHours,
			o.Telephone,
			o.Attribute,
			formatCoord(o.Latitude),
			formatCoord(o.Longitude),
			o.WazeLink,
		})
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToTable renders a terminal table.
func (c *OutletContent) ToTable() (string, error) {
	t := table.NewWriter()
	t.SetTitle(c.title())
	t.AppendHeader(table.Row{"#", "Name", "Address", "Hours", "Telephone", "Services"})
	for i, o := range c.result.Outlets {
		t.AppendRow(table.Row{i + 1, o.Name, o.Address, o.OperatingHours, o.Telephone, o.Attribute})
	}
	t.AppendFooter(table.Row{"", "Total", len(c.result.Outlets)})
	t.SetStyle(table.StyleRounded)
	return t.Render(), nil
}

func formatCoord(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
