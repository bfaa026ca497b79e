package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultOperatingHours is used when no card tooltip mentions opening times.
const DefaultOperatingHours = "8am - 12pm"

// Outlet is one store location extracted from the locator results.
type Outlet struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	OperatingHours string   `json:"operating_hours"`
	WazeLink       string   `json:"waze_link,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Telephone      string   `json:"telephone,omitempty"`
	Attribute      string   `json:"attribute,omitempty"`
}

// WazeLink builds the navigation deep link for a coordinate pair.
func WazeLink(lat, lng float64) string {
	return "https://waze.com/ul?ll=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(lng, 'f', -1, 64) + "&z=15"
}

// Validate reports whether the outlet carries its required identity fields.
func (o Outlet) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("outlet name cannot be empty")
	}
	if strings.TrimSpace(o.Address) == "" {
		return errors.New("outlet address cannot be empty")
	}
	if (o.Latitude == nil) != (o.Longitude == nil) {
		return errors.New("outlet coordinates must be both set or both empty")
	}
	if (o.WazeLink != "") != (o.Latitude != nil && o.Longitude != nil) {
		return errors.New("waze link requires both coordinates")
	}
	return nil
}

// Attributes splits the joined attribute string back into tags.
func (o Outlet) Attributes() []string {
	if o.Attribute == "" {
		return nil
	}
	return strings.Split(o.Attribute, ", ")
}

// StoredOutlet is an Outlet persisted with its provenance and embedding.
type StoredOutlet struct {
	Outlet
	ID         int64     `json:"id"`
	SearchTerm string    `json:"search_term"`
	Embedding  []float32 `json:"-"`
	ScrapedAt  time.Time `json:"scraped_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OutletUpdate carries a partial update. Nil fields are left unchanged.
type OutletUpdate struct {
	Name           *string `json:"name,omitempty"`
	Address        *string `json:"address,omitempty"`
	OperatingHours *string `json:"operating_hours,omitempty"`
	Telephone      *string `json:"telephone,omitempty"`
	Attribute      *string `json:"attribute,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u OutletUpdate) Empty() bool {
	return u.Name == nil && u.Address == nil && u.OperatingHours == nil &&
		u.Telephone == nil && u.Attribute == nil
}

// Apply writes the non-nil fields onto o.
func (u OutletUpdate) Apply(o *Outlet) {
	if u.Name != nil {
		o.Name = *u.Name
	}
	if u.Address != nil {
		o.Address = *u.Address
	}
	if u.OperatingHours != nil {
		o.OperatingHours = *u.OperatingHours
	}
	if u.Telephone != nil {
		o.Telephone = *u.Telephone
	}
	if u.Attribute != nil {
		o.Attribute = *u.Attribute
	}
}
