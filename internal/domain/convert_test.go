package domain_test

import (
	"math"
	"testing"

	"ahaarwise/internal/domain"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestConvertWeight(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
	}{
		{"kg to lb", 100.0, "kg", "lb", 220.46226218},
		{"lb to kg", 220.46226218, "lb", "kg", 100.0},
		{"same unit kg", 80.0, "kg", "kg", 80.0},
		{"unknown units", 50.0, "st", "kg", 50.0},
		{"zero value", 0, "kg", "lb", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ConvertWeight(tc.value, tc.from, tc.to)
			if !almostEqual(got, tc.want, 0.001) {
				t.Errorf("ConvertWeight(%v, %q, %q) = %v; want %v",
					tc.value, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestConvertHeight(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
	}{
		{"in to cm", 70, "in", "cm", 177.8},
		{"cm to in", 177.8, "cm", "in", 70},
		{"same unit", 160, "cm", "cm", 160},
		{"unknown units", 5, "ft", "cm", 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ConvertHeight(tc.value, tc.from, tc.to)
			if !almostEqual(got, tc.want, 0.001) {
				t.Errorf("ConvertHeight(%v, %q, %q) = %v; want %v",
					tc.value, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "practitioner", "assistant"} {
		r, err := domain.ParseRole(s)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", s, err)
		}
		if string(r) != s || !r.Valid() {
			t.Errorf("ParseRole(%q) = %q", s, r)
		}
	}
	for _, s := range []string{"", "Admin", "doctor", "root"} {
		if _, err := domain.ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q) accepted an unknown role", s)
		}
	}
}
