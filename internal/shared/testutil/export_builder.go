package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// ExportBuilder generates bead-array export files for tests. The default
// export has three samples, three beads plus a "Total Events" column and
// the blocks Median, Net MFI and Count.
type ExportBuilder struct {
	meta        [][]string
	calibrators [][]string
	controls    [][]string
	lotInfo     [][]string
	declared    string
	minEvents   string
	noSentinel  bool
	blocks      []string
	beads       []string
	annotations []string
	locations   []string
	names       []string
	overrides   map[string]string
	extraRows   map[string][][]string
	omitted     map[string]bool
}

// NewExportBuilder returns a builder with a typical instrument header.
func NewExportBuilder() *ExportBuilder {
	b := &ExportBuilder{
		meta: [][]string{
			{"Program", "xPONENT", "100"},
			{"Build", "4.2.1324.0"},
			{"Date", "27/02/2020", "10:22:15"},
			{"SN", "LX10012345678"},
			{"Session", "Batch01"},
			{"Operator", "jdoe"},
			{"TemplateID", "1234"},
			{"TemplateName", "LABScreen Single Antigen"},
			{"TemplateVersion", "3"},
			{"TemplateDescription", ""},
			{"TemplateDevelopingCompany", "One Lambda"},
			{"TemplateAuthor", "lab"},
			{"SampleVolume", "50 uL"},
			{"DDGate", "5000 to 25000"},
			{"SampleTimeout", "60 sec"},
			{"BatchAuthor", "jdoe"},
			{"BatchStartTime", "27/02/2020 09:00:00"},
			{"BatchStopTime", "27/02/2020 10:20:00"},
			{"BatchDescription", ""},
			{"BatchComment", ""},
		},
		lotInfo: [][]string{
			{"Standard or Control", "Lot #", "Expiration Date", "Reagent"},
		},
		minEvents:   "100",
		blocks:      []string{"Median", "Net MFI", "Count"},
		beads:       []string{"Bead1", "Bead2", "Bead3"},
		annotations: []string{"Total Events"},
		overrides:   make(map[string]string),
		extraRows:   make(map[string][][]string),
		omitted:     make(map[string]bool),
	}
	return b.WithSamples(3)
}

// Well returns the plate well of the i-th sample (0-based), column-major.
func Well(i int) string {
	return fmt.Sprintf("%c%d", 'A'+i%8, i/8+1)
}

// WithSamples generates n samples located "<i>(1,<well>)".
func (b *ExportBuilder) WithSamples(n int) *ExportBuilder {
	b.locations = b.locations[:0]
	b.names = b.names[:0]
	for i := 0; i < n; i++ {
		b.locations = append(b.locations, fmt.Sprintf("%d(1,%s)", i+1, Well(i)))
		b.names = append(b.names, fmt.Sprintf("Sample%d", i+1))
	}
	return b
}

// WithLocations sets explicit location keys; names become "Sample<i>".
func (b *ExportBuilder) WithLocations(locations ...string) *ExportBuilder {
	b.locations = append([]string(nil), locations...)
	b.names = b.names[:0]
	for i := range locations {
		b.names = append(b.names, fmt.Sprintf("Sample%d", i+1))
	}
	return b
}

// WithSampleName renames the i-th sample (0-based).
func (b *ExportBuilder) WithSampleName(i int, name string) *ExportBuilder {
	b.names[i] = name
	return b
}

func (b *ExportBuilder) WithBeads(names ...string) *ExportBuilder {
	b.beads = append([]string(nil), names...)
	return b
}

func (b *ExportBuilder) WithAnnotations(names ...string) *ExportBuilder {
	b.annotations = append([]string(nil), names...)
	return b
}

func (b *ExportBuilder) WithBlocks(names ...string) *ExportBuilder {
	b.blocks = append([]string(nil), names...)
	return b
}

// WithMeta sets a metadata row, replacing an existing row with the same label.
func (b *ExportBuilder) WithMeta(label string, fields ...string) *ExportBuilder {
	row := append([]string{label}, fields...)
	for i, r := range b.meta {
		if r[0] == label {
			b.meta[i] = row
			return b
		}
	}
	b.meta = append(b.meta, row)
	return b
}

// WithoutMeta drops the metadata row with label.
func (b *ExportBuilder) WithoutMeta(label string) *ExportBuilder {
	out := b.meta[:0]
	for _, r := range b.meta {
		if r[0] != label {
			out = append(out, r)
		}
	}
	b.meta = out
	return b
}

// WithCalibrators adds a CALInfo: section with two reference rows.
func (b *ExportBuilder) WithCalibrators() *ExportBuilder {
	b.calibrators = [][]string{
		{"Calibrator", "Lot", "Expiration", "Calibrator Type", "Reading"},
		{"CAL1", "B12345", "31/12/2021", "Classification Calibrator", "1250.5"},
		{"CAL2", "B12346", "31/12/2021", "Reporter Calibrator", "OOR"},
	}
	return b
}

// WithControls adds a CONInfo: section with two reference rows.
func (b *ExportBuilder) WithControls() *ExportBuilder {
	b.controls = [][]string{
		{"Control", "Lot", "Expiration", "Control Type", "Reading"},
		{"CON1", "C22345", "31/12/2021", "Classification Control", "980.25"},
		{"CON2", "C22346", "31/12/2021", "Reporter Control", "1011"},
	}
	return b
}

// WithLotInfo replaces the AssayLotInfo: rows.
func (b *ExportBuilder) WithLotInfo(rows ...[]string) *ExportBuilder {
	b.lotInfo = rows
	return b
}

// WithDeclaredSamples overrides the count written on the Samples row.
func (b *ExportBuilder) WithDeclaredSamples(n string) *ExportBuilder {
	b.declared = n
	return b
}

// WithoutSentinel omits the Samples/Min Events row.
func (b *ExportBuilder) WithoutSentinel() *ExportBuilder {
	b.noSentinel = true
	return b
}

// WithValue overrides one cell.
func (b *ExportBuilder) WithValue(block, location, column, raw string) *ExportBuilder {
	b.overrides[block+"\x00"+location+"\x00"+column] = raw
	return b
}

// WithExtraRow appends a raw row to the body of block, after its samples.
func (b *ExportBuilder) WithExtraRow(block string, row ...string) *ExportBuilder {
	b.extraRows[block] = append(b.extraRows[block], row)
	return b
}

// WithoutRow leaves the sample at location out of block only.
func (b *ExportBuilder) WithoutRow(block, location string) *ExportBuilder {
	b.omitted[block+"\x00"+location] = true
	return b
}

// Value returns the generated raw value of a cell.
func (b *ExportBuilder) Value(block string, sample int, column string) string {
	if v, ok := b.overrides[block+"\x00"+b.locations[sample]+"\x00"+column]; ok {
		return v
	}
	for j, bead := range b.beads {
		if bead != column {
			continue
		}
		if strings.Contains(block, "Count") {
			return fmt.Sprintf("%d", 50+sample*10+j)
		}
		return fmt.Sprintf("%d.5", 1000*(len(block)%5+1)+sample*100+j)
	}
	return fmt.Sprintf("%d", 500+sample)
}

// Locations returns the generated location keys.
func (b *ExportBuilder) Locations() []string {
	return append([]string(nil), b.locations...)
}

// Rows returns the export as rows.
func (b *ExportBuilder) Rows() [][]string {
	var rows [][]string
	rows = append(rows, b.meta...)
	rows = append(rows, []string{""})

	if len(b.calibrators) > 0 {
		rows = append(rows, []string{"CALInfo:"})
		rows = append(rows, b.calibrators...)
		rows = append(rows, []string{""})
	}
	if len(b.controls) > 0 {
		rows = append(rows, []string{"CONInfo:"})
		rows = append(rows, b.controls...)
		rows = append(rows, []string{""})
	}

	rows = append(rows, []string{"AssayLotInfo:"})
	rows = append(rows, b.lotInfo...)
	rows = append(rows, []string{""})

	if !b.noSentinel {
		declared := b.declared
		if declared == "" {
			declared = fmt.Sprintf("%d", len(b.locations))
		}
		rows = append(rows, []string{"Samples", declared, "Min Events", b.minEvents})
	}
	rows = append(rows, []string{""}, []string{"Results"}, []string{""})

	header := append([]string{"Location", "Sample"}, b.beads...)
	header = append(header, b.annotations...)
	for _, block := range b.blocks {
		rows = append(rows, []string{"DataType:", block})
		rows = append(rows, slices.Clone(header))
		for i, loc := range b.locations {
			if b.omitted[block+"\x00"+loc] {
				continue
			}
			row := []string{loc, b.names[i]}
			for _, col := range header[2:] {
				row = append(row, b.Value(block, i, col))
			}
			rows = append(rows, row)
		}
		rows = append(rows, b.extraRows[block]...)
		rows = append(rows, []string{""})
	}
	return rows
}

// Bytes renders the export with every field quoted and CRLF line endings.
func (b *ExportBuilder) Bytes() []byte {
	return []byte(RenderQuoted(b.Rows()))
}

// WriteFile writes the export into dir and returns its path.
func (b *ExportBuilder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write export fixture: %v", err)
	}
	return path
}

// RenderQuoted renders rows the way the instrument does.
func RenderQuoted(rows [][]string) string {
	var sb strings.Builder
	for _, row := range rows {
		for i, f := range row {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
			sb.WriteByte('"')
		}
		sb.WriteString("\r\n")
	}
	return sb.String()
}
