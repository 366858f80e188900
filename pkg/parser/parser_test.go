package parser

import (
	"errors"
	"testing"

	"github.com/tzl-ops/flightarchive/internal/model"
)

func TestParsePassengerString(t *testing.T) {
	tests := []struct {
		input   string
		want    *model.PassengerCount
		wantErr error
	}{
		{"", nil, nil},
		{"   ", nil, nil},
		{"-", nil, nil},
		{"N/A", nil, nil},
		{"n/a", nil, nil},
		{"0", &model.PassengerCount{Adults: 0}, nil},
		{"110", &model.PassengerCount{Adults: 110}, nil},
		{"165+6 INF", &model.PassengerCount{Adults: 165, Infants: 6}, nil},
		{"165 + 6", &model.PassengerCount{Adults: 165, Infants: 6}, nil},
		{" 98+0 ", &model.PassengerCount{Adults: 98}, nil},
		{"abc", nil, ErrPassengerFormat},
		{"110 pax", nil, ErrPassengerFormat},
		{"+6", nil, ErrPassengerFormat},
	}

	for _, tt := range tests {
		got, err := ParsePassengerString(tt.input)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParsePassengerString(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			continue
		}
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParsePassengerString(%q) = %+v, want nil", tt.input, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("ParsePassengerString(%q) = %v, want %+v", tt.input, got, *tt.want)
		}
	}
}

func TestParsePassengers_RawFallback(t *testing.T) {
	got, err := ParsePassengers(model.Cell{Text: "", Raw: "42"})
	if err != nil {
		t.Fatalf("ParsePassengers failed: %v", err)
	}
	if got == nil || got.Adults != 42 {
		t.Errorf("Expected 42 adults from raw value, got %v", got)
	}
}

func TestParsePassengers_NumberFormatted(t *testing.T) {
	tests := []struct {
		cell    model.Cell
		want    *model.PassengerCount
		wantErr error
	}{
		{model.Cell{Text: "165.00", Raw: "165"}, &model.PassengerCount{Adults: 165}, nil},
		{model.Cell{Text: "1,650", Raw: "1650"}, &model.PassengerCount{Adults: 1650}, nil},
		{model.Cell{Text: "165+6 INF", Raw: "165+6 INF"}, &model.PassengerCount{Adults: 165, Infants: 6}, nil},
		{model.Cell{Text: "abc", Raw: "abc"}, nil, ErrPassengerFormat},
		{model.Cell{Text: "165.50", Raw: "165.5"}, nil, ErrPassengerFormat},
	}

	for _, tt := range tests {
		got, err := ParsePassengers(tt.cell)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParsePassengers(%+v) error = %v, want %v", tt.cell, err, tt.wantErr)
			continue
		}
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParsePassengers(%+v) = %+v, want nil", tt.cell, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("ParsePassengers(%+v) = %v, want %+v", tt.cell, got, *tt.want)
		}
	}
}

func TestParsePassengers_RoundTrip(t *testing.T) {
	for _, input := range []string{"0", "7", "110", "165+6 INF", "3 + 1"} {
		first, err := ParsePassengerString(input)
		if err != nil || first == nil {
			t.Fatalf("ParsePassengerString(%q) = %v, %v", input, first, err)
		}
		second, err := ParsePassengerString(first.String())
		if err != nil || second == nil {
			t.Fatalf("ParsePassengerString(%q) = %v, %v", first.String(), second, err)
		}
		if *first != *second {
			t.Errorf("Round trip of %q: got %+v, want %+v", input, *second, *first)
		}
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		input   string
		want    *model.RouteEndpoints
		wantErr error
	}{
		{"TZL-AYT", &model.RouteEndpoints{Departure: "TZL", Arrival: "AYT"}, nil},
		{"tzl - ayt", &model.RouteEndpoints{Departure: "TZL", Arrival: "AYT"}, nil},
		{"TZL-DTM-TZL", &model.RouteEndpoints{Departure: "TZL", Arrival: "DTM"}, nil},
		{"TZL-MUC-FRA-TZL", &model.RouteEndpoints{Departure: "TZL", Arrival: "TZL"}, nil},
		{"TZL--AYT", &model.RouteEndpoints{Departure: "TZL", Arrival: "AYT"}, nil},
		{"TZL", nil, ErrRouteTooShort},
		{"TZL-", nil, ErrRouteTooShort},
		{"", nil, ErrRouteEmpty},
		{"-", nil, ErrRouteEmpty},
		{"N/A", nil, ErrRouteEmpty},
	}

	for _, tt := range tests {
		got, err := ParseRoute(tt.input)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseRoute(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			continue
		}
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParseRoute(%q) = %v, want nil", tt.input, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("ParseRoute(%q) = %v, want %v", tt.input, got, *tt.want)
		}
	}
}

func TestLegs(t *testing.T) {
	legs := Legs("TZL-DTM-TZL")
	if len(legs) != 2 {
		t.Fatalf("Expected 2 legs, got %d", len(legs))
	}
	if legs[0].String() != "TZL-DTM" || legs[1].String() != "DTM-TZL" {
		t.Errorf("Expected TZL-DTM, DTM-TZL, got %v", legs)
	}
	if got := Legs("TZL"); got != nil {
		t.Errorf("Expected no legs for single token, got %v", got)
	}
}

func TestIntString(t *testing.T) {
	n := func(v int) *int { return &v }
	tests := []struct {
		input   string
		want    *int
		wantErr error
	}{
		{"", nil, nil},
		{"-", nil, nil},
		{"N/A", nil, nil},
		{"12", n(12), nil},
		{"12.0", n(12), nil},
		{"12.9", n(12), nil},
		{"0", n(0), nil},
		{"abc", nil, ErrNotANumber},
		{"NaN", nil, ErrNotANumber},
		{"-5", nil, ErrNegative},
		{"3000000000", n(3000000000), nil},
		{"3e9", n(3000000000), nil},
		{"1e30", nil, ErrNotANumber},
	}

	for _, tt := range tests {
		got, err := IntString(tt.input)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("IntString(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			continue
		}
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("IntString(%q) = %d, want nil", tt.input, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("IntString(%q) = %v, want %d", tt.input, got, *tt.want)
		}
	}
}

func TestInt_PrefersRaw(t *testing.T) {
	got, err := Int(model.Cell{Text: "1,234", Raw: "1234"})
	if err != nil {
		t.Fatalf("Int failed: %v", err)
	}
	if got == nil || *got != 1234 {
		t.Errorf("Expected 1234, got %v", got)
	}
}

func TestText(t *testing.T) {
	if got := Text(model.TextCell(" FR123 ")); got == nil || *got != "FR123" {
		t.Errorf("Expected FR123, got %v", got)
	}
	if got := Text(model.TextCell("-")); got != nil {
		t.Errorf("Expected nil for sentinel, got %q", *got)
	}
}
