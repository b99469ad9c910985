package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "beadcsv/internal/errors"
)

const blockMarker = "DataType:"

// Section is a block marker found in the export body.
type Section struct {
	Name   string
	Offset int // index of the marker row
}

// Sections is the structural layout of an export.
type Sections struct {
	Blocks    []Section
	HeaderEnd int // rows [0, HeaderEnd) are the header region
}

// LocateSections finds every block marker in encounter order.
func LocateSections(rows [][]string) (Sections, error) {
	var s Sections
	seen := make(map[string]bool)

	for i, row := range rows {
		if len(row) == 0 || !strings.Contains(row[0], blockMarker) {
			continue
		}
		name := strings.TrimSpace(field(row, 1))
		if name == "" {
			return Sections{}, apperrors.NewMalformedFormatError("block marker without a name").
				WithContext("row", i)
		}
		if seen[name] {
			return Sections{}, apperrors.NewMalformedFormatError(fmt.Sprintf("duplicate block %q", name)).
				WithContext("row", i)
		}
		seen[name] = true
		s.Blocks = append(s.Blocks, Section{Name: name, Offset: i})
	}

	if len(s.Blocks) == 0 {
		return Sections{}, apperrors.NewMalformedFormatError("no " + blockMarker + " block marker found")
	}
	s.HeaderEnd = s.Blocks[0].Offset
	return s, nil
}

// Names returns block names in source order.
func (s Sections) Names() []string {
	out := make([]string, len(s.Blocks))
	for i, b := range s.Blocks {
		out[i] = b.Name
	}
	return out
}
