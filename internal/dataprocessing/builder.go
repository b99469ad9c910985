package dataprocessing

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	apperrors "beadcsv/internal/errors"
)

// Block is a named measurement section of the export.
type Block struct {
	Name   string
	Offset int
	Table  *Table
}

// IsCount reports whether the block holds integer event counts.
func (b Block) IsCount() bool {
	return isCountBlock(b.Name)
}

func isCountBlock(name string) bool {
	return strings.Contains(name, "Count")
}

// BuildTable decodes the rows of one block.
func BuildTable(name string, rows [][]string, offset, sampleCount int) (*Table, error) {
	headerRow := offset + 1
	if headerRow >= len(rows) {
		return nil, apperrors.NewTableShapeError(fmt.Sprintf("block %q has no column header", name)).
			WithContext("block", name)
	}

	table, err := NewTable(rows[headerRow])
	if err != nil {
		return nil, withBlock(err, name)
	}

	integer := isCountBlock(name)
	width := len(table.columns)
	start := offset + blockPrefixRows
	for i := start; i < start+sampleCount; i++ {
		if i >= len(rows) {
			return nil, apperrors.NewTableShapeError(
				fmt.Sprintf("block %q ends after %d of %d rows", name, i-start, sampleCount)).
				WithContext("block", name)
		}
		fields := rows[i]
		if len(fields) != width {
			return nil, apperrors.NewTableShapeError(
				fmt.Sprintf("row has %d fields, header has %d", len(fields), width)).
				WithContext("block", name).
				WithContext("row", i)
		}

		row := Row{Location: fields[0], Sample: fields[1], Cells: make([]Cell, 0, width-2)}
		for _, raw := range fields[2:] {
			row.Cells = append(row.Cells, ParseCell(raw, integer))
		}
		if err := table.Append(row); err != nil {
			return nil, withBlock(err, name)
		}
	}
	return table, nil
}

// BuildBlocks decodes every located block and checks that all blocks share
// the first block's bead columns.
func BuildBlocks(rows [][]string, sections Sections, sampleCount int) ([]*Block, error) {
	blocks := make([]*Block, 0, len(sections.Blocks))
	var beads map[string]bool

	for _, s := range sections.Blocks {
		table, err := BuildTable(s.Name, rows, s.Offset, sampleCount)
		if err != nil {
			return nil, err
		}

		set := beadSet(table)
		if beads == nil {
			beads = set
		} else if !maps.Equal(beads, set) {
			return nil, apperrors.NewTableShapeError(
				fmt.Sprintf("block %q bead columns differ from block %q", s.Name, sections.Blocks[0].Name)).
				WithContext("block", s.Name).
				WithContext("beads", slices.Sorted(maps.Keys(set)))
		}

		blocks = append(blocks, &Block{Name: s.Name, Offset: s.Offset, Table: table})
	}
	return blocks, nil
}

func beadSet(t *Table) map[string]bool {
	set := make(map[string]bool)
	for _, name := range t.BeadColumns() {
		set[strings.TrimSpace(name)] = true
	}
	return set
}

func withBlock(err error, name string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("block", name)
	}
	return err
}
