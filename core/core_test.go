package core

import (
	"testing"
	"time"
)

func TestParseGarment(t *testing.T) {
	for _, name := range []string{"tshirt", "hoodie", "pants", "custom"} {
		g, err := ParseGarment(name)
		if err != nil {
			t.Fatalf("ParseGarment(%q) failed: %v", name, err)
		}
		if string(g) != name {
			t.Errorf("ParseGarment(%q) = %q", name, g)
		}
	}
	if _, err := ParseGarment("jacket"); err == nil {
		t.Error("expected an error for an unknown garment")
	}
}

func TestGarmentLabel(t *testing.T) {
	if got := GarmentTShirt.Label(); got != "T-Shirt" {
		t.Errorf("tshirt label = %q", got)
	}
	if got := Garment("jacket").Label(); got != "jacket" {
		t.Errorf("unknown label = %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	var nobody *User
	if got := nobody.DisplayName(); got != DefaultDisplayName {
		t.Errorf("nil user = %q", got)
	}
	if got := (&User{Subject: "1"}).DisplayName(); got != DefaultDisplayName {
		t.Errorf("unnamed user = %q", got)
	}
	if got := (&User{Name: "Ada"}).DisplayName(); got != "Ada" {
		t.Errorf("named user = %q", got)
	}
}

func TestSummaryDropsSceneState(t *testing.T) {
	now := time.Now()
	d := &Design{ID: "a", UserID: "u", Name: "n", Image: "data:", SceneState: []byte(`{}`), CreatedAt: now, LastModified: now}
	s := d.Summary()
	if s.SceneState != nil {
		t.Error("summary should not carry scene state")
	}
	if s.ID != d.ID || s.Image != d.Image || !s.LastModified.Equal(now) {
		t.Errorf("summary lost fields: %+v", s)
	}
	if s == d {
		t.Error("summary should be a copy")
	}
}

func TestSortNewestFirst(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	designs := []*Design{
		{ID: "a", LastModified: older},
		{ID: "b", LastModified: newer},
		{ID: "d", LastModified: older},
		{ID: "c", LastModified: newer},
	}
	SortNewestFirst(designs)

	var got string
	for _, d := range designs {
		got += d.ID
	}
	if got != "cbda" {
		t.Errorf("order = %q, want %q", got, "cbda")
	}
}
