package dataprocessing

import (
	"strconv"
	"strings"
)

// CellKind is the decoded type of a cell.
type CellKind int

const (
	KindText CellKind = iota
	KindInt
	KindFloat
)

func (k CellKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// Cell is one measurement. Raw is always written back unchanged, so
// instrument flags such as "OOR" and formatting like "12.50" survive a
// round trip.
type Cell struct {
	Raw   string
	Kind  CellKind
	Int   int64
	Float float64
}

// TextCell returns a cell holding raw as text.
func TextCell(raw string) Cell {
	return Cell{Raw: raw, Kind: KindText}
}

// ParseCell decodes raw. Integer cells are tried first when integer is set;
// otherwise, or on failure, a float is tried; anything else stays text.
func ParseCell(raw string, integer bool) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TextCell(raw)
	}
	if integer {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Cell{Raw: raw, Kind: KindInt, Int: n}
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Cell{Raw: raw, Kind: KindFloat, Float: f}
	}
	return TextCell(raw)
}

// Value returns the cell as int64, float64 or string.
func (c Cell) Value() any {
	switch c.Kind {
	case KindInt:
		return c.Int
	case KindFloat:
		return c.Float
	default:
		return c.Raw
	}
}

// IsNumeric reports whether the cell decoded as a number.
func (c Cell) IsNumeric() bool {
	return c.Kind != KindText
}
