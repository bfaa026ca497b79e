package mcdonalds

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"outletscraper/internal/dom"
	"outletscraper/internal/models"
)

const fullCard = `<div class="addressBox">
  <div class="addressTop">
    <div class="addressTitle"><strong> McDonald's Bukit Bintang </strong></div>
    <a class="ed-tooltip"><img src="24h.png"><span class="ed-tooltiptext">24 Hours
      <span class="caret"></span></span></a>
    <a class="ed-tooltip"><img src="dt.png"><span class="ed-tooltiptext">Drive-Thru</span></a>
    <a class="ed-tooltip"><img src="24h.png"><span class="ed-tooltiptext">24 Hours</span></a>
    <a class="ed-tooltip"><img src="cafe.png"><span class="ed-tooltiptext">McCafe</span></a>
    <a class="ed-tooltip"><img src="none.png"></a>
  </div>
  <p class="addressText">Lot 1, Jalan Bukit Bintang, 55100 Kuala Lumpur</p>
  <p class="addressText">Tel: 03-2141 8454 Fax: 03-2141 8455</p>
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"Restaurant","geo":{"@type":"GeoCoordinates","latitude":"3.146847","longitude":"101.710931"}}</script>
</div>`

func firstCard(t *testing.T, html string) dom.Node {
	t.Helper()
	root, err := dom.FromHTML("<html><body>" + html + "</body></html>")
	require.NoError(t, err)
	cards, err := root.Find(cardSelector)
	require.NoError(t, err)
	require.NotEmpty(t, cards)
	return cards[0]
}

func fp(f float64) *float64 { return &f }

func TestExtractOutletFullCard(t *testing.T) {
	got, warnings := ExtractOutlet(context.Background(), firstCard(t, fullCard))
	require.Empty(t, warnings)

	want := models.Outlet{
		Name:           "McDonald's Bukit Bintang",
		Address:        "Lot 1, Jalan Bukit Bintang, 55100 Kuala Lumpur",
		OperatingHours: "24 Hours",
		WazeLink:       "https://waze.com/ul?ll=3.146847,101.710931&z=15",
		Latitude:       fp(3.146847),
		Longitude:      fp(101.710931),
		Telephone:      "Tel: 03-2141 8454 Fax: 03-2141 8455",
		Attribute:      "24 Hours, Drive-Thru, McCafe",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outlet mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, got.Validate())
}

func TestExtractHoursPicksFirstKeywordMatch(t *testing.T) {
	card := firstCard(t, `<div class="addressBox">
  <div class="addressTitle"><strong>A</strong></div>
  <span class="ed-tooltiptext">Open daily</span>
  <span class="ed-tooltiptext">9am-10pm Hours</span>
  <span class="ed-tooltiptext">24 Hours</span>
</div>`)
	got, _ := ExtractOutlet(context.Background(), card)
	require.Equal(t, "9am-10pm Hours", got.OperatingHours)
}

func TestExtractHoursCollapsesNewlines(t *testing.T) {
	card := firstCard(t, `<div class="addressBox"><span class="ed-tooltiptext">Mon-Fri
7am - 11pm</span></div>`)
	got, _ := ExtractOutlet(context.Background(), card)
	require.Equal(t, "Mon-Fri 7am - 11pm", got.OperatingHours)
}

func TestExtractHoursDefault(t *testing.T) {
	card := firstCard(t, `<div class="addressBox"><span class="ed-tooltiptext">Drive-Thru</span></div>`)
	got, _ := ExtractOutlet(context.Background(), card)
	require.Equal(t, models.DefaultOperatingHours, got.OperatingHours)
}

func TestExtractGeo(t *testing.T) {
	tests := []struct {
		name    string
		scripts []string
		lat     *float64
		lng     *float64
	}{
		{
			name:    "string coordinates",
			scripts: []string{`{"geo": {"latitude": "3.146847", "longitude": "101.710931"}}`},
			lat:     fp(3.146847),
			lng:     fp(101.710931),
		},
		{
			name:    "numeric coordinates",
			scripts: []string{`{"geo": {"latitude": 5.4141, "longitude": 100.3288}}`},
			lat:     fp(5.4141),
			lng:     fp(100.3288),
		},
		{
			name:    "malformed block skipped",
			scripts: []string{`{"geo": {`, `{"geo": {"latitude": "1.5", "longitude": "103.75"}}`},
			lat:     fp(1.5),
			lng:     fp(103.75),
		},
		{
			name:    "missing longitude falls through",
			scripts: []string{`{"geo": {"latitude": "1.5"}}`, `{"geo": {"latitude": "2.5", "longitude": "102"}}`},
			lat:     fp(2.5),
			lng:     fp(102),
		},
		{
			name:    "array and graph",
			scripts: []string{`[{"@type":"Organization"},{"@graph":[{"geo":{"latitude":"4.6","longitude":"101.07"}}]}]`},
			lat:     fp(4.6),
			lng:     fp(101.07),
		},
		{
			name:    "unparseable coordinate",
			scripts: []string{`{"geo": {"latitude": "north", "longitude": "101"}}`},
		},
		{
			name: "no structured data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			sb.WriteString(`<div class="addressBox">`)
			for _, s := range tt.scripts {
				sb.WriteString(`<script type="application/ld+json">` + s + `</script>`)
			}
			sb.WriteString(`</div>`)

			got, warnings := ExtractOutlet(context.Background(), firstCard(t, sb.String()))
			require.Empty(t, warnings)
			if diff := cmp.Diff(tt.lat, got.Latitude); diff != "" {
				t.Fatalf("latitude (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.lng, got.Longitude); diff != "" {
				t.Fatalf("longitude (-want +got):\n%s", diff)
			}
			require.Equal(t, tt.lat != nil && tt.lng != nil, got.WazeLink != "")
		})
	}
}

func TestExtractTelephone(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "labelled line",
			html: `<p class="addressText">Jalan 1</p><p class="addressText">Phone: 04-123 4567</p>`,
			want: "Phone: 04-123 4567",
		},
		{
			name: "tel href fallback",
			html: `<p class="addressText">Jalan 1</p><a href="tel:0321418454">Call us</a>`,
			want: "0321418454",
		},
		{
			name: "href not starting with tel",
			html: `<a href="https://example.com/?next=tel:123">x</a>`,
			want: "",
		},
		{
			name: "label wins over link",
			html: `<p class="addressText">Fax: 03-1111</p><a href="tel:0322222">x</a>`,
			want: "Fax: 03-1111",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ExtractOutlet(context.Background(), firstCard(t, `<div class="addressBox">`+tt.html+`</div>`))
			require.Equal(t, tt.want, got.Telephone)
		})
	}
}

func TestExtractAttributeDeduplicates(t *testing.T) {
	tests := []struct {
		name string
		card string
		want []string
	}{
		{"repeated tooltips", fullCard, []string{"24 Hours", "Drive-Thru", "McCafe"}},
		{"joined tooltip", `<div class="addressBox">
  <div class="addressTop">
    <div class="addressTitle"><strong>McDonald's Ampang</strong></div>
    <a class="ed-tooltip"><span class="ed-tooltiptext">Drive-Thru, McCafe</span></a>
    <a class="ed-tooltip"><span class="ed-tooltiptext">McCafe</span></a>
    <a class="ed-tooltip"><span class="ed-tooltiptext"> , WiFi,</span></a>
  </div>
  <p class="addressText">Jalan Ampang, Kuala Lumpur</p>
</div>`, []string{"Drive-Thru", "McCafe", "WiFi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ExtractOutlet(context.Background(), firstCard(t, tt.card))
			tags := got.Attributes()
			seen := map[string]bool{}
			for _, tag := range tags {
				require.False(t, seen[tag], "duplicate tag %q", tag)
				seen[tag] = true
			}
			require.Equal(t, tt.want, tags)
		})
	}
}

func TestExtractAttributeOnlyFromHeader(t *testing.T) {
	card := firstCard(t, `<div class="addressBox">
  <div class="addressTop"></div>
  <a class="ed-tooltip"><span class="ed-tooltiptext">Breakfast</span></a>
</div>`)
	got, _ := ExtractOutlet(context.Background(), card)
	require.Empty(t, got.Attribute)
}

// brokenNode fails Find for one selector and delegates everything else.
type brokenNode struct {
	dom.Node
	selector string
}

func (b brokenNode) Find(selector string) ([]dom.Node, error) {
	if selector == b.selector {
		return nil, errors.New("stale element")
	}
	return b.Node.Find(selector)
}

func TestExtractFieldFailureDegradesOnlyThatField(t *testing.T) {
	card := brokenNode{Node: firstCard(t, fullCard), selector: jsonLDSelector}
	got, warnings := ExtractOutlet(context.Background(), card)

	require.Len(t, warnings, 1)
	require.Equal(t, "geo", warnings[0].Field)
	require.Nil(t, got.Latitude)
	require.Empty(t, got.WazeLink)
	require.Equal(t, "McDonald's Bukit Bintang", got.Name)
	require.Equal(t, "24 Hours, Drive-Thru, McCafe", got.Attribute)
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "24 Hours", firstLine("\n  24 Hours  \n  caret"))
	require.Equal(t, "", firstLine("   "))
}
