package mcdonalds

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"outletscraper/internal/models"
)

func sampleResult() *Result {
	lat, lng := 3.146847, 101.710931
	return &Result{
		SearchTerm: "Bukit Bintang",
		Pages:      1,
		Outlets: []models.Outlet{
			{
				Name:           "McDonald's Bukit Bintang",
				Address:        "Jalan Bukit Bintang, Kuala Lumpur",
				OperatingHours: "24 Hours",
				Latitude:       &lat,
				Longitude:      &lng,
				WazeLink:       models.WazeLink(lat, lng),
				Telephone:      "Tel: 03-2141 8454",
				Attribute:      "24 Hours, McCafe",
			},
			{
				Name:           "McDonald's Pavilion",
				Address:        "Pavilion KL, Level 1",
				OperatingHours: models.DefaultOperatingHours,
			},
		},
	}
}

func TestOutletContentJSON(t *testing.T) {
	raw, err := NewOutletContent(sampleResult()).ToJSON()
	require.NoError(t, err)

	var payload struct {
		Success bool            `json:"success"`
		Total   int             `json:"total"`
		Outlets []models.Outlet `json:"outlets"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.True(t, payload.Success)
	require.Equal(t, 2, payload.Total)
	require.Nil(t, payload.Outlets[1].Latitude)
	require.NotContains(t, string(raw), `"waze_link": ""`)
}

func TestOutletContentEmptyJSON(t *testing.T) {
	raw, err := NewOutletContent(&Result{SearchTerm: "Nowhere"}).ToJSON()
	require.NoError(t, err)
	require.Contains(t, string(raw), `"outlets": []`)
	require.Contains(t, string(raw), "No outlets found for search term: Nowhere")
}

func TestOutletContentCSV(t *testing.T) {
	out, err := NewOutletContent(sampleResult()).ToCSV()
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Name", rows[0][0])
	require.Equal(t, "3.146847", rows[1][5])
	require.Equal(t, "", rows[2][5])
}

func TestOutletContentMarkdownAndHTML(t *testing.T) {
	content := NewOutletContent(sampleResult())

	h, err := content.ToHTML()
	require.NoError(t, err)
	require.Contains(t, h, "McDonald&#39;s Bukit Bintang")

	markdown, err := content.ToMarkdown()
	require.NoError(t, err)
	require.Contains(t, markdown, "## McDonald's Pavilion")
	require.Contains(t, markdown, "https://waze.com/ul?ll=3.146847,101.710931&z=15")
}

func TestOutletContentTable(t *testing.T) {
	out, err := NewOutletContent(sampleResult()).ToTable()
	require.NoError(t, err)
	require.Contains(t, out, "McDonald's Pavilion")
	require.Contains(t, strings.ToUpper(out), "TOTAL")
}
