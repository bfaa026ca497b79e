package openai

import (
	"strings"

	"outletscraper/internal/models"
)

// OutletText is the text embedded for an outlet, both when storing it and
// when listing it as chat context.
func OutletText(o models.Outlet) string {
	parts := []string{
		"Name: " + o.Name,
		"Address: " + o.Address,
	}
	if o.OperatingHours != "" {
		parts = append(parts, "Hours: "+o.OperatingHours)
	}
	if o.Attribute != "" {
		parts = append(parts, "Services: "+o.Attribute)
	}
	return strings.Join(parts, ". ")
}
