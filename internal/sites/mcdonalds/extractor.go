package mcdonalds

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"outletscraper/internal/dom"
	"outletscraper/internal/models"
	"outletscraper/internal/scraper"
)

var (
	hoursKeywords = []string{"hours", "hour", "24", "am", "pm"}
	phoneLabels   = []string{"Tel:", "Fax:", "Phone:"}
)

// fieldResult is the outcome of one field rule. A zero value means the field
// was simply not present.
type fieldResult[T any] struct {
	value   T
	ok      bool
	warning string
}

func found[T any](v T) fieldResult[T] {
	return fieldResult[T]{value: v, ok: true}
}

func failed[T any](format string, args ...any) fieldResult[T] {
	return fieldResult[T]{warning: fmt.Sprintf(format, args...)}
}

type coords struct {
	lat, lng float64
}

// ExtractOutlet applies every field rule to one result card. A failing rule
// only degrades its own field; the returned warnings describe what failed.
// Callers decide whether a record without name or address is kept.
func ExtractOutlet(ctx context.Context, card dom.Node) (models.Outlet, []scraper.Warning) {
	var warnings []scraper.Warning
	warn := func(field, msg string) {
		if msg != "" {
			warnings = append(warnings, scraper.Warning{Field: field, Message: msg})
		}
	}

	out := models.Outlet{OperatingHours: models.DefaultOperatingHours}

	name := firstText(card, nameSelector)
	warn("name", name.warning)
	out.Name = name.value

	address := firstText(card, addressTextSelector)
	warn("address", address.warning)
	out.Address = address.value

	hours := extractHours(card)
	warn("operating_hours", hours.warning)
	if hours.ok {
		out.OperatingHours = hours.value
	}

	geo := extractGeo(ctx, card)
	warn("geo", geo.warning)
	if geo.ok {
		lat, lng := geo.value.lat, geo.value.lng
		out.Latitude = &lat
		out.Longitude = &lng
		out.WazeLink = models.WazeLink(lat, lng)
	}

	phone := extractTelephone(card)
	warn("telephone", phone.warning)
	out.Telephone = phone.value

	attr := extractAttribute(card)
	warn("attribute", attr.warning)
	out.Attribute = attr.value

	return out, warnings
}

func firstText(card dom.Node, selector string) fieldResult[string] {
	nodes, err := card.Find(selector)
	if err != nil {
		return failed[string]("find %s: %v", selector, err)
	}
	if len(nodes) == 0 {
		return fieldResult[string]{}
	}
	text, err := nodes[0].Text()
	if err != nil {
		return failed[string]("read %s: %v", selector, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fieldResult[string]{}
	}
	return found(text)
}

// extractHours picks the first tooltip that looks like opening times.
func extractHours(card dom.Node) fieldResult[string] {
	tips, err := card.Find(tooltipTextSelector)
	if err != nil {
		return failed[string]("find tooltips: %v", err)
	}
	for _, tip := range tips {
		text, err := tip.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if containsAny(strings.ToLower(text), hoursKeywords) {
			return found(strings.TrimSpace(strings.ReplaceAll(text, "\n", " ")))
		}
	}
	return fieldResult[string]{}
}

// extractGeo scans the card's JSON-LD blocks for the first usable geo object.
func extractGeo(ctx context.Context, card dom.Node) fieldResult[coords] {
	scripts, err := card.Find(jsonLDSelector)
	if err != nil {
		return failed[coords]("find structured data: %v", err)
	}
	for i, script := range scripts {
		raw, err := script.TextContent()
		if err != nil {
			continue
		}
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			slog.DebugContext(ctx, "skipping malformed JSON-LD", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		if c, ok := findGeo(doc); ok {
			return found(c)
		}
	}
	return fieldResult[coords]{}
}

func findGeo(v any) (coords, bool) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if c, ok := findGeo(item); ok {
				return c, true
			}
		}
	case map[string]any:
		if geo, ok := t["geo"].(map[string]any); ok {
			lat, latOK := toFloat(geo["latitude"])
			lng, lngOK := toFloat(geo["longitude"])
			if latOK && lngOK {
				return coords{lat: lat, lng: lng}, true
			}
		}
		if graph, ok := t["@graph"]; ok {
			return findGeo(graph)
		}
	}
	return coords{}, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// extractTelephone prefers a labelled address line and falls back to tel: links.
func extractTelephone(card dom.Node) fieldResult[string] {
	var warning string

	lines, err := card.Find(addressTextSelector)
	if err != nil {
		warning = fmt.Sprintf("find address lines: %v", err)
	}
	for _, line := range lines {
		text, err := line.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" && containsAny(text, phoneLabels) {
			return found(text)
		}
	}

	links, err := card.Find(telLinkSelector)
	if err != nil {
		return failed[string]("find tel links: %v", err)
	}
	for _, link := range links {
		href, ok, err := link.Attr("href")
		if err != nil || !ok || !strings.HasPrefix(href, "tel:") {
			continue
		}
		if number := strings.TrimSpace(strings.TrimPrefix(href, "tel:")); number != "" {
			return found(number)
		}
	}
	return fieldResult[string]{warning: warning}
}

// extractAttribute collects the feature tags shown as tooltips in the card
// header, deduplicated in first-seen order.
func extractAttribute(card dom.Node) fieldResult[string] {
	tops, err := card.Find(addressTopSelector)
	if err != nil {
		return failed[string]("find card header: %v", err)
	}
	if len(tops) == 0 {
		return fieldResult[string]{}
	}
	anchors, err := tops[0].Find(tooltipAnchorSelector)
	if err != nil {
		return failed[string]("find feature tooltips: %v", err)
	}

	seen := make(map[string]bool)
	var tags []string
	for _, anchor := range anchors {
		tips, err := anchor.Find(tooltipTextSelector)
		if err != nil || len(tips) == 0 {
			continue
		}
		raw, err := tips[0].TextContent()
		if err != nil {
			continue
		}
		// one tooltip may list several features
		for _, tag := range strings.Split(firstLine(raw), ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return fieldResult[string]{}
	}
	return found(strings.Join(tags, ", "))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
