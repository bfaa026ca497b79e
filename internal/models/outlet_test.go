package models

import (
	"strings"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestWazeLink(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     string
	}{
		{3.1478, 101.6953, "https://waze.com/ul?ll=3.1478,101.6953&z=15"},
		{3, 101.5, "https://waze.com/ul?ll=3,101.5&z=15"},
		{-6.2, 106.816666, "https://waze.com/ul?ll=-6.2,106.816666&z=15"},
	}
	for _, tt := range tests {
		if got := WazeLink(tt.lat, tt.lng); got != tt.want {
			t.Fatalf("WazeLink(%v, %v) = %q, want %q", tt.lat, tt.lng, got, tt.want)
		}
	}
}

func TestOutletValidate(t *testing.T) {
	valid := func() Outlet {
		return Outlet{
			Name:           "McDonald's Bukit Bintang",
			Address:        "Jalan Bukit Bintang, 55100 Kuala Lumpur",
			OperatingHours: DefaultOperatingHours,
			Latitude:       ptr(3.1478),
			Longitude:      ptr(101.7123),
			WazeLink:       WazeLink(3.1478, 101.7123),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Outlet)
		wantErr string
	}{
		{"empty name", func(o *Outlet) { o.Name = "  " }, "name"},
		{"empty address", func(o *Outlet) { o.Address = "" }, "address"},
		{"half coordinates", func(o *Outlet) { o.Longitude = nil }, "coordinates"},
		{"waze without coordinates", func(o *Outlet) { o.Latitude, o.Longitude = nil, nil }, "waze"},
		{"coordinates without waze", func(o *Outlet) { o.WazeLink = "" }, "waze"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(&o)
			if err := o.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid outlet rejected: %v", err)
	}
}

func TestOutletUpdateApply(t *testing.T) {
	o := Outlet{Name: "A", Address: "B", Telephone: "Tel: 1"}
	hours := "24 Hours"
	u := OutletUpdate{OperatingHours: &hours}
	if u.Empty() {
		t.Fatalf("update with hours should not be empty")
	}
	u.Apply(&o)
	if o.OperatingHours != hours || o.Name != "A" || o.Telephone != "Tel: 1" {
		t.Fatalf("unexpected outlet after apply: %+v", o)
	}
	if !(OutletUpdate{}).Empty() {
		t.Fatalf("zero update should be empty")
	}
}

func TestAttributes(t *testing.T) {
	o := Outlet{Attribute: "24 Hours, Drive-Thru, McCafe"}
	got := o.Attributes()
	if len(got) != 3 || got[1] != "Drive-Thru" {
		t.Fatalf("unexpected attributes: %v", got)
	}
	if (Outlet{}).Attributes() != nil {
		t.Fatalf("expected nil attributes for empty string")
	}
}
