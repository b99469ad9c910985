package dataprocessing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	apperrors "beadcsv/internal/errors"
)

const (
	columnLocation = "Location"
	columnSample   = "Sample"
)

// annotationColumns trail the bead columns of a block header.
var annotationColumns = map[string]bool{
	"Total Events": true,
	"Notes":        true,
}

// ErrLocationNotFound is the cause of the not-found error returned when a
// location key is absent from a table.
var ErrLocationNotFound = errors.New("location not found")

// Row is one sample of a block. Cells line up with Table.ValueColumns.
type Row struct {
	Location string
	Sample   string
	Cells    []Cell
}

// Fields returns the row as written: location, sample, then raw cells.
func (r Row) Fields() []string {
	out := make([]string, 0, len(r.Cells)+2)
	out = append(out, r.Location, r.Sample)
	for _, c := range r.Cells {
		out = append(out, c.Raw)
	}
	return out
}

func (r Row) clone() Row {
	r.Cells = slices.Clone(r.Cells)
	return r
}

// Table is an ordered table keyed by location. Row order is insertion order.
type Table struct {
	columns []string
	rows    []Row
	index   map[string]int
}

// NewTable creates an empty table. columns is the full header row and must
// start with Location and Sample.
func NewTable(columns []string) (*Table, error) {
	if len(columns) < 2 ||
		strings.TrimSpace(columns[0]) != columnLocation ||
		strings.TrimSpace(columns[1]) != columnSample {
		return nil, apperrors.NewTableShapeError(
			fmt.Sprintf("column header must start with %q, %q", columnLocation, columnSample)).
			WithContext("columns", columns)
	}
	return &Table{
		columns: slices.Clone(columns),
		index:   make(map[string]int),
	}, nil
}

// Columns returns the full header row.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// ValueColumns returns the header without Location and Sample.
func (t *Table) ValueColumns() []string {
	return slices.Clone(t.columns[2:])
}

// BeadColumns returns the value columns minus trailing annotation columns.
func (t *Table) BeadColumns() []string {
	return beadColumns(t.columns)
}

// unrecognizedTrailer returns the last header column when no annotation
// column trails the beads.
func unrecognizedTrailer(t *Table) (string, bool) {
	values := t.ValueColumns()
	if len(values) == 0 || len(beadColumns(t.columns)) < len(values) {
		return "", false
	}
	return values[len(values)-1], true
}

func beadColumns(columns []string) []string {
	values := columns[2:]
	end := len(values)
	for end > 0 && annotationColumns[strings.TrimSpace(values[end-1])] {
		end--
	}
	return slices.Clone(values[:end])
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the row at loc.
func (t *Table) Row(loc string) (Row, bool) {
	i, ok := t.index[loc]
	if !ok {
		return Row{}, false
	}
	return t.rows[i].clone(), true
}

// Rows returns copies of all rows in order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.clone()
	}
	return out
}

// Locations returns row keys in order.
func (t *Table) Locations() []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Location
	}
	return out
}

// Slice returns a new table holding rows [from, to).
func (t *Table) Slice(from, to int) (*Table, error) {
	if from < 0 || to > len(t.rows) || from > to {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("slice [%d:%d] out of range for %d rows", from, to, len(t.rows)))
	}
	out := &Table{columns: slices.Clone(t.columns), index: make(map[string]int, to-from)}
	for _, r := range t.rows[from:to] {
		out.index[r.Location] = len(out.rows)
		out.rows = append(out.rows, r.clone())
	}
	return out, nil
}

// Append adds row at the end. Duplicate keys and rows of the wrong width
// are rejected.
func (t *Table) Append(row Row) error {
	if err := t.checkWidth(row); err != nil {
		return err
	}
	if _, exists := t.index[row.Location]; exists {
		return apperrors.NewTableShapeError(fmt.Sprintf("duplicate location %q", row.Location)).
			WithContext("location", row.Location)
	}
	t.index[row.Location] = len(t.rows)
	t.rows = append(t.rows, row.clone())
	return nil
}

// Replace overwrites the row at loc. The stored row keeps loc as its key
// whatever row.Location says.
func (t *Table) Replace(loc string, row Row) error {
	i, ok := t.index[loc]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("location %q", loc), ErrLocationNotFound).
			WithContext("location", loc)
	}
	if err := t.checkWidth(row); err != nil {
		return err
	}
	row = row.clone()
	row.Location = loc
	t.rows[i] = row
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: slices.Clone(t.columns),
		rows:    make([]Row, len(t.rows)),
		index:   make(map[string]int, len(t.index)),
	}
	for i, r := range t.rows {
		out.rows[i] = r.clone()
		out.index[r.Location] = i
	}
	return out
}

// Equal reports whether both tables hold the same columns and raw cells in
// the same order.
func (t *Table) Equal(o *Table) bool {
	if !slices.Equal(t.columns, o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.Equal(t.rows[i].Fields(), o.rows[i].Fields()) {
			return false
		}
	}
	return true
}

func (t *Table) columnIndex() map[string]int {
	idx := make(map[string]int, len(t.columns)-2)
	for i, name := range t.columns[2:] {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

func (t *Table) checkWidth(row Row) error {
	if want := len(t.columns) - 2; len(row.Cells) != want {
		return apperrors.NewTableShapeError(
			fmt.Sprintf("row %q has %d value fields, header has %d", row.Location, len(row.Cells), want)).
			WithContext("location", row.Location)
	}
	return nil
}

// remapCells reorders cells of a row laid out for src onto dst's columns by
// name. Columns dst has and src lacks become empty text cells.
func remapCells(cells []Cell, src, dst *Table) []Cell {
	srcIdx := src.columnIndex()
	out := make([]Cell, len(dst.columns)-2)
	for i, name := range dst.columns[2:] {
		if j, ok := srcIdx[strings.TrimSpace(name)]; ok && j < len(cells) {
			out[i] = cells[j]
		} else {
			out[i] = TextCell("")
		}
	}
	return out
}
