package dsl

import (
	"math"
	"testing"

	"github.com/ByLCY/flowbox/errors"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		unit Unit
		pt   float64
	}{
		{"12", UnitNone, 12},
		{"12pt", UnitPT, 12},
		{"8px", UnitPX, 8},
		{"25.4mm", UnitMM, 72},
		{"1in", UnitIN, 72},
		{"2.54cm", UnitCM, 72},
		{"1.5x", UnitFactor, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := ParseLength(tt.in)
			if err != nil {
				t.Fatalf("ParseLength: %v", err)
			}
			if l.Unit != tt.unit {
				t.Fatalf("unit = %v, want %v", l.Unit, tt.unit)
			}
			if math.Abs(l.PT()-tt.pt) > 1e-9 {
				t.Fatalf("PT = %g, want %g", l.PT(), tt.pt)
			}
		})
	}
	if _, err := ParseLength("wide"); !errors.Is(err, errors.ErrCodeParse) {
		t.Fatalf("err = %v, want PARSE", err)
	}
}

func TestLineHeightResolve(t *testing.T) {
	factor := LineHeightSpec{Len: Length{Value: 1.5, Unit: UnitFactor}}
	if got := factor.Resolve(12); got != 18 {
		t.Fatalf("倍数行高 = %g, want 18", got)
	}
	abs := LineHeightSpec{Len: Length{Value: 20, Unit: UnitPT}}
	if got := abs.Resolve(12); got != 20 {
		t.Fatalf("绝对行高 = %g, want 20", got)
	}
}
