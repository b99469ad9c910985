package dataprocessing

import (
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	apperrors "beadcsv/internal/errors"
)

var leadingOrder = regexp.MustCompile(`^(\s*)(\d+)`)

// Compatibility is the result of comparing two documents before a merge or
// update.
type Compatibility struct {
	BeadsMatch    bool
	BlocksMatch   bool
	TemplateMatch bool
	Problems      []string
}

// OK reports whether every check passed.
func (c Compatibility) OK() bool {
	return c.BeadsMatch && c.BlocksMatch && c.TemplateMatch
}

// Err returns an incompatible-schema error describing every mismatch, or nil.
func (c Compatibility) Err() error {
	if c.OK() {
		return nil
	}
	return apperrors.NewIncompatibleSchemaError(strings.Join(c.Problems, "; ")).
		WithContext("problems", c.Problems)
}

// CheckCompatibility compares bead sets, block names and template identity.
func CheckCompatibility(target, source *Document) Compatibility {
	c := Compatibility{BeadsMatch: true, BlocksMatch: true, TemplateMatch: true}

	tb, sb := nameSet(target.BeadNames()), nameSet(source.BeadNames())
	if !maps.Equal(tb, sb) {
		c.BeadsMatch = false
		c.Problems = append(c.Problems, fmt.Sprintf("bead sets differ (target only: %v, source only: %v)",
			missingFrom(tb, sb), missingFrom(sb, tb)))
	}

	tk, sk := nameSet(target.BlockNames()), nameSet(source.BlockNames())
	if !maps.Equal(tk, sk) {
		c.BlocksMatch = false
		c.Problems = append(c.Problems, fmt.Sprintf("blocks differ (target only: %v, source only: %v)",
			missingFrom(tk, sk), missingFrom(sk, tk)))
	}

	if tt, st := target.header.Template(), source.header.Template(); tt != st {
		c.TemplateMatch = false
		c.Problems = append(c.Problems, fmt.Sprintf("templates differ (%s %s v%s vs %s %s v%s)",
			tt.ID, tt.Name, tt.Version, st.ID, st.Name, st.Version))
	}
	return c
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = true
	}
	return set
}

// missingFrom returns the sorted names in a that b lacks.
func missingFrom(a, b map[string]bool) []string {
	var out []string
	for n := range a {
		if !b[n] {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// MergeOptions controls Merge.
type MergeOptions struct {
	// ShiftLocations adds the target's sample count to the order number of
	// every source location.
	ShiftLocations bool
	// Force skips the compatibility check.
	Force bool
}

// ShiftLocation adds offset to the leading order number of loc. Keys
// without an order number are returned unchanged.
func ShiftLocation(loc string, offset int) string {
	m := leadingOrder.FindStringSubmatchIndex(loc)
	if m == nil {
		return loc
	}
	n, err := strconv.Atoi(loc[m[4]:m[5]])
	if err != nil {
		return loc
	}
	return loc[:m[4]] + strconv.Itoa(n+offset) + loc[m[5]:]
}

// Merge appends every row of source to the matching block of d. Rows are
// copied, never shared. On any failure d is left untouched.
func (d *Document) Merge(source *Document, opts MergeOptions) error {
	if !opts.Force {
		if err := CheckCompatibility(d, source).Err(); err != nil {
			return err
		}
	}

	offset := 0
	if opts.ShiftLocations {
		offset = d.sampleCount
	}

	scratch := make([]*Block, len(d.blocks))
	for i, b := range d.blocks {
		table := b.Table.Clone()
		if err := appendSource(table, b.Name, source, offset); err != nil {
			return err
		}
		scratch[i] = &Block{Name: b.Name, Offset: b.Offset, Table: table}
	}

	for _, name := range source.BlockNames() {
		if d.block(name) == nil {
			d.log().Warn("source block has no target block, dropped", slog.String("block", name))
		}
	}

	before := d.sampleCount
	d.blocks = scratch
	d.sampleCount += source.sampleCount
	d.refingerprint()

	d.log().Info("documents merged",
		slog.Int("target_samples", before),
		slog.Int("source_samples", source.sampleCount),
		slog.Int("samples", d.sampleCount),
		slog.Bool("shifted", opts.ShiftLocations),
		slog.Bool("forced", opts.Force))
	return nil
}

func appendSource(table *Table, name string, source *Document, offset int) error {
	if src := source.block(name); src != nil {
		for _, r := range src.Table.rows {
			row := Row{
				Location: ShiftLocation(r.Location, offset),
				Sample:   r.Sample,
				Cells:    remapCells(r.Cells, src.Table, table),
			}
			if err := table.Append(row); err != nil {
				return mergeConflict(err, name)
			}
		}
		return nil
	}

	// Forced merge of a block the source lacks: keep the shape with
	// placeholder rows for each source sample.
	if len(source.blocks) == 0 {
		return nil
	}
	width := len(table.columns) - 2
	for _, r := range source.blocks[0].Table.rows {
		cells := make([]Cell, width)
		for i := range cells {
			cells[i] = TextCell("")
		}
		row := Row{Location: ShiftLocation(r.Location, offset), Sample: r.Sample, Cells: cells}
		if err := table.Append(row); err != nil {
			return mergeConflict(err, name)
		}
	}
	return nil
}

func mergeConflict(err error, block string) error {
	return apperrors.NewIncompatibleSchemaError(fmt.Sprintf("merge into block %q: %v", block, err)).
		WithContext("block", block)
}

func (d *Document) log() *slog.Logger {
	if d.logger == nil {
		return slog.Default()
	}
	return d.logger
}
