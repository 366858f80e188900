package detect

import (
	"testing"

	"github.com/tzl-ops/flightarchive/internal/model"
)

// buildHeader returns n header cells with the given labels set.
func buildHeader(n int, labels map[int]string) []model.Cell {
	h := make([]model.Cell, n)
	for i := range h {
		h[i] = model.TextCell(labels[i])
	}
	return h
}

func layout1Header() []model.Cell {
	return buildHeader(21, map[int]string{
		0: "Datum", 1: "Kompanija", 2: "Ruta", 3: "Tip a/c", 4: "Registracija",
		5: "Vrsta leta", 6: "MTOW", 13: "Putnici dolazak", 14: "Putnici odlazak",
	})
}

func layout2Header() []model.Cell {
	return buildHeader(23, map[int]string{
		0: "Datum", 1: "Kompanija", 2: "Ruta", 3: "ICAO", 4: "Tip a/c",
		15: "Putnici dolazak", 16: "Putnici odlazak",
	})
}

func layout3Header() []model.Cell {
	return buildHeader(25, map[int]string{
		0: "Datum", 1: "Kompanija", 2: "Ruta", 3: "ICAO", 4: "Tip a/c",
		12: "Putnici u avionu", 13: "Bebe", 20: "Putnici u avionu", 21: "Bebe",
	})
}

func layout4Header() []model.Cell {
	return buildHeader(27, map[int]string{
		0: "Datum", 1: "Kompanija", 2: "Datum", 3: "Kompanija", 4: "ICAO", 5: "Ruta",
		14: "Putnici", 15: "Bebe", 22: "Putnici", 23: "Bebe",
	})
}

func layout5Header() []model.Cell {
	return buildHeader(20, map[int]string{
		0: "Datum", 1: "Kompanija", 2: "Tip A/C", 3: "Registracija", 4: "MTOW",
		5: "Vrsta leta", 6: "Dolazak iz", 10: "Putnici", 13: "Odlazak za", 17: "Putnici",
	})
}

func TestClassify(t *testing.T) {
	c := NewClassifier(NewCatalog())

	tests := []struct {
		name    string
		header  []model.Cell
		layout  Layout
		outcome Outcome
	}{
		{"layout 1 without icao", layout1Header(), Layout1, Known},
		{"layout 2 pax at 15", layout2Header(), Layout2, Known},
		{"layout 3 with infants", layout3Header(), Layout3, Known},
		{"layout 4 duplicated dates", layout4Header(), Layout4, Known},
		{"layout 5 signature", layout5Header(), Layout5, Known},
		{
			"layout 3 fallback without infant labels",
			buildHeader(25, map[int]string{0: "Datum", 2: "Ruta", 3: "ICAO", 12: "Putnici", 20: "Putnici"}),
			Layout3, Fallback,
		},
		{
			"dated header with route in column 2 is not layout 5",
			buildHeader(21, map[int]string{0: "Datum", 1: "Kompanija", 2: "Ruta", 10: "Putnici"}),
			Layout1, Known,
		},
	}

	for _, tt := range tests {
		got := c.Classify(tt.header)
		if got.Outcome != tt.outcome {
			t.Errorf("%s: outcome = %v, want %v (reason %q)", tt.name, got.Outcome, tt.outcome, got.Reason)
			continue
		}
		if got.Descriptor.Layout != tt.layout {
			t.Errorf("%s: layout = %v, want %v", tt.name, got.Descriptor.Layout, tt.layout)
		}
		if err := got.Descriptor.Validate(); err != nil {
			t.Errorf("%s: descriptor invalid: %v", tt.name, err)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name   string
		header []model.Cell
	}{
		{"empty header", nil},
		{"no route label", buildHeader(21, map[int]string{0: "Datum", 1: "Kompanija", 13: "Putnici"})},
		{"blank cells", buildHeader(30, nil)},
	}

	for _, tt := range tests {
		got := c.Classify(tt.header)
		if got.Outcome != Unknown {
			t.Errorf("%s: outcome = %v, want unknown", tt.name, got.Outcome)
		}
		if got.Usable() {
			t.Errorf("%s: expected unusable classification", tt.name)
		}
		if got.Reason == "" {
			t.Errorf("%s: expected a reason", tt.name)
		}
	}
}

func TestClassify_RouteColumnFromHeader(t *testing.T) {
	c := NewClassifier(nil)

	got := c.Classify(layout4Header())
	if col := got.Descriptor.Column(FieldRoute); col != 5 {
		t.Errorf("Expected route column 5, got %d", col)
	}

	got = c.Classify(layout5Header())
	if got.Descriptor.Column(FieldRoute) != NoColumn {
		t.Errorf("Expected no single route column for layout 5, got %d", got.Descriptor.Column(FieldRoute))
	}
	if got.Descriptor.Column(FieldRouteFrom) != 6 || got.Descriptor.Column(FieldRouteTo) != 13 {
		t.Errorf("Expected split route columns 6/13, got %d/%d",
			got.Descriptor.Column(FieldRouteFrom), got.Descriptor.Column(FieldRouteTo))
	}
	if !got.Descriptor.DateColumn {
		t.Error("Expected layout 5 to carry a date column")
	}
}

func TestClassify_DescriptorsAreIndependent(t *testing.T) {
	c := NewClassifier(nil)

	a := c.Classify(layout1Header())
	b := c.Classify(buildHeader(21, map[int]string{0: "Datum", 1: "Kompanija", 7: "Ruta", 13: "Putnici"}))

	if a.Descriptor.Column(FieldRoute) != 2 {
		t.Errorf("Expected first sheet route column 2, got %d", a.Descriptor.Column(FieldRoute))
	}
	if b.Descriptor.Column(FieldRoute) != 7 {
		t.Errorf("Expected second sheet route column 7, got %d", b.Descriptor.Column(FieldRoute))
	}
	if tmpl, _ := c.catalog.Lookup(Layout1); tmpl.Columns.Has(FieldRoute) {
		t.Error("Expected catalog template to stay unchanged")
	}
}
