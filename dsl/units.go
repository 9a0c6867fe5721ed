package dsl

import (
	"strconv"
	"strings"

	"github.com/ByLCY/flowbox/errors"
)

// 布局内部的长度单位是 pt；文档中的长度在构建树时统一换算。

// Unit represents the original unit of a length value as written in a document.
type Unit int

const (
	UnitNone   Unit = iota // 无单位，按 pt 处理
	UnitPT                 // points
	UnitPX                 // pixels, 1px = 1pt
	UnitMM                 // millimeters
	UnitCM                 // centimeters
	UnitIN                 // inches
	UnitFactor             // 行高倍数，如 1.2x
)

// Conversion constants between pt and mm.
const (
	PtToMm = 25.4 / 72
	MmToPt = 72 / 25.4
)

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}, {"x", UnitFactor}}

func (u Unit) String() string {
	for _, suf := range unitSuffixes {
		if suf.u == u {
			return suf.s
		}
	}
	return ""
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// PT converts an absolute length to points. Factors are returned unchanged.
func (l Length) PT() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * 72
	default:
		return l.Value
	}
}

// ParseLength parses a length such as "12", "12pt", "4.5mm" or "1.2x".
func ParseLength(value string) (Length, error) {
	lower := strings.ToLower(strings.TrimSpace(value))
	unit := UnitNone
	num := lower
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, errors.Wrap(errors.ErrCodeParse, err, "无效的长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// LineHeightSpec preserves author intent: either a factor (e.g., 1.2x) or an absolute length (e.g., 18pt).
type LineHeightSpec struct {
	Len Length `json:"len"`
}

// Resolve computes the absolute line height in pt for the given font size in pt.
func (s LineHeightSpec) Resolve(fontSize float64) float64 {
	if s.Len.Unit == UnitFactor {
		return fontSize * s.Len.Value
	}
	return s.Len.PT()
}

// formatPT 把换算后的长度写回属性字符串。
func formatPT(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
