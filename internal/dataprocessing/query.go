package dataprocessing

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"

	apperrors "beadcsv/internal/errors"
	"beadcsv/pkg/contracts/domain"
)

// locationPattern matches "<order>", "<order> (<well>)" and the vendor's
// "<order>(<plate>,<well>)".
var locationPattern = regexp.MustCompile(`^\s*(\d+)\s*(?:\((?:\d+\s*,\s*)?([A-Za-z]{1,2}\d{1,2})\))?`)

// ParseLocation splits a location key into its order number and well.
func ParseLocation(loc string) (index int, well string, ok bool) {
	m := locationPattern.FindStringSubmatch(loc)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, strings.ToUpper(m[2]), true
}

// DataFilter restricts Data to a subset of blocks and sample indices.
// A nil slice selects everything.
type DataFilter struct {
	Blocks  []string
	Samples []int
}

// DataRow is one sample of one block with decoded values.
type DataRow struct {
	Block    string   `json:"block"`
	Location string   `json:"location"`
	Index    int      `json:"index"`
	Well     string   `json:"well,omitempty"`
	Sample   string   `json:"sample"`
	Columns  []string `json:"columns"`
	Values   []any    `json:"values"`
}

// BlockNames returns block names in source order.
func (d *Document) BlockNames() []string {
	out := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.Name
	}
	return out
}

// BeadNames returns the first block's bead columns.
func (d *Document) BeadNames() []string {
	if len(d.blocks) == 0 {
		return nil
	}
	return d.blocks[0].Table.BeadColumns()
}

// Samples lists the samples of the first block. Rows whose location has no
// order number are skipped.
func (d *Document) Samples() []domain.Sample {
	if len(d.blocks) == 0 {
		return nil
	}
	var out []domain.Sample
	for _, r := range d.blocks[0].Table.rows {
		idx, well, ok := ParseLocation(r.Location)
		if !ok {
			continue
		}
		out = append(out, domain.Sample{Index: idx, Well: well, Name: r.Sample, Location: r.Location})
	}
	return out
}

// SampleNames returns sample names in row order.
func (d *Document) SampleNames() []string {
	samples := d.Samples()
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Name
	}
	return out
}

// SampleName looks a sample up by order number, well, or both. Pass 0 or ""
// to leave a key unset. Giving an index and a well that name different
// samples is an error.
func (d *Document) SampleName(index int, well string) (string, error) {
	if index == 0 && well == "" {
		return "", apperrors.NewAppValidationError("sample index or well is required")
	}

	var byIndex, byWell *domain.Sample
	samples := d.Samples()
	for i := range samples {
		s := &samples[i]
		if index != 0 && byIndex == nil && s.Index == index {
			byIndex = s
		}
		if well != "" && byWell == nil && strings.EqualFold(s.Well, well) {
			byWell = s
		}
	}

	switch {
	case index != 0 && well != "":
		if byIndex == nil || byWell == nil {
			return "", apperrors.NewNotFoundError(fmt.Sprintf("sample %d (%s)", index, well), nil)
		}
		if byIndex.Location != byWell.Location {
			return "", apperrors.NewAppValidationError(
				fmt.Sprintf("index %d and well %s refer to different samples", index, well))
		}
		return byIndex.Name, nil
	case index != 0:
		if byIndex == nil {
			return "", apperrors.NewNotFoundError(fmt.Sprintf("sample %d", index), nil)
		}
		return byIndex.Name, nil
	default:
		if byWell == nil {
			return "", apperrors.NewNotFoundError(fmt.Sprintf("sample in well %s", well), nil)
		}
		return byWell.Name, nil
	}
}

// Data yields rows restricted by f. Blocks and samples come in the order
// requested, or document order when unfiltered. Asking for a block or
// sample the document does not have yields nothing.
func (d *Document) Data(f DataFilter) iter.Seq[DataRow] {
	blocks, ok := d.selectBlocks(f.Blocks)
	if !ok {
		return func(func(DataRow) bool) {}
	}
	if f.Samples != nil && !d.hasSamples(f.Samples) {
		return func(func(DataRow) bool) {}
	}

	return func(yield func(DataRow) bool) {
		for _, b := range blocks {
			columns := b.Table.ValueColumns()
			emit := func(r Row, idx int, well string) bool {
				values := make([]any, len(r.Cells))
				for i, c := range r.Cells {
					values[i] = c.Value()
				}
				return yield(DataRow{
					Block:    b.Name,
					Location: r.Location,
					Index:    idx,
					Well:     well,
					Sample:   r.Sample,
					Columns:  columns,
					Values:   values,
				})
			}

			if f.Samples == nil {
				for _, r := range b.Table.rows {
					idx, well, _ := ParseLocation(r.Location)
					if !emit(r, idx, well) {
						return
					}
				}
				continue
			}

			for _, want := range f.Samples {
				for _, r := range b.Table.rows {
					idx, well, ok := ParseLocation(r.Location)
					if !ok || idx != want {
						continue
					}
					if !emit(r, idx, well) {
						return
					}
				}
			}
		}
	}
}

func (d *Document) selectBlocks(names []string) ([]*Block, bool) {
	if names == nil {
		return d.blocks, true
	}
	out := make([]*Block, 0, len(names))
	for _, name := range names {
		b := d.block(name)
		if b == nil {
			return nil, false
		}
		out = append(out, b)
	}
	return out, true
}

func (d *Document) hasSamples(indices []int) bool {
	present := make(map[int]bool)
	for _, s := range d.Samples() {
		present[s.Index] = true
	}
	for _, i := range indices {
		if !present[i] {
			return false
		}
	}
	return true
}
