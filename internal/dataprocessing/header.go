package dataprocessing

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	apperrors "beadcsv/internal/errors"
	"beadcsv/pkg/contracts/domain"
)

// Header region markers and sentinel labels.
const (
	MarkerCalibrators = "CALInfo:"
	MarkerControls    = "CONInfo:"
	MarkerLotInfo     = "AssayLotInfo:"
	MarkerResults     = "Results"

	sentinelSamples   = "Samples"
	sentinelMinEvents = "Min Events"

	maxReferenceRows = 2
)

// Reference row labels written by the instrument for calibration and
// verification beads.
const (
	ClassificationCalibrator = "Classification Calibrator"
	ReporterCalibrator       = "Reporter Calibrator"
	ClassificationControl    = "Classification Control"
	ReporterControl          = "Reporter Control"
)

// Date layouts seen in vendor exports, day-first as the instrument default.
var generatedLayouts = []string{
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 3:04 PM",
	"02/01/2006 15:04",
}

var knownFields = func() map[string]domain.MetadataField {
	m := make(map[string]domain.MetadataField, len(domain.MetadataFields))
	for _, f := range domain.MetadataFields {
		m[string(f)] = f
	}
	return m
}()

// HeaderParams lists the recognized metadata labels in write order.
func HeaderParams() []string {
	out := make([]string, len(domain.MetadataFields))
	for i, f := range domain.MetadataFields {
		out[i] = string(f)
	}
	return out
}

// ReferenceRow is one calibrator or control reading.
type ReferenceRow struct {
	Product string
	Cells   []Cell
}

// Fields returns the row as written.
func (r ReferenceRow) Fields() []string {
	out := make([]string, 0, len(r.Cells)+1)
	out = append(out, r.Product)
	for _, c := range r.Cells {
		out = append(out, c.Raw)
	}
	return out
}

// ReferenceTable holds the rows of a CALInfo: or CONInfo: section keyed by
// product name.
type ReferenceTable struct {
	columns []string
	rows    []ReferenceRow
}

// Len returns the number of value rows.
func (t ReferenceTable) Len() int {
	return len(t.rows)
}

// IsEmpty reports whether the section was absent.
func (t ReferenceTable) IsEmpty() bool {
	return len(t.columns) == 0 && len(t.rows) == 0
}

func (t ReferenceTable) Columns() []string {
	return slices.Clone(t.columns)
}

func (t ReferenceTable) Rows() []ReferenceRow {
	out := make([]ReferenceRow, len(t.rows))
	for i, r := range t.rows {
		out[i] = ReferenceRow{Product: r.Product, Cells: slices.Clone(r.Cells)}
	}
	return out
}

// Row returns the row whose product name is product.
func (t ReferenceTable) Row(product string) (ReferenceRow, bool) {
	for _, r := range t.rows {
		if strings.TrimSpace(r.Product) == product {
			return ReferenceRow{Product: r.Product, Cells: slices.Clone(r.Cells)}, true
		}
	}
	return ReferenceRow{}, false
}

// find returns the first row with any field equal to label.
func (t ReferenceTable) find(label string) (ReferenceRow, bool) {
	for _, r := range t.rows {
		for _, f := range r.Fields() {
			if strings.TrimSpace(f) == label {
				return ReferenceRow{Product: r.Product, Cells: slices.Clone(r.Cells)}, true
			}
		}
	}
	return ReferenceRow{}, false
}

// Header is the metadata region of an export. It is immutable once parsed.
type Header struct {
	fields          map[domain.MetadataField]domain.MetadataValue
	calibrators     ReferenceTable
	controls        ReferenceTable
	lotInfo         [][]string
	declaredSamples string
	minEvents       string
}

// ParseHeader extracts metadata from the rows before the first block.
func ParseHeader(rows [][]string) (*Header, error) {
	sentinel := -1
	for i, row := range rows {
		if firstField(row) == sentinelSamples && strings.TrimSpace(field(row, 2)) == sentinelMinEvents {
			sentinel = i
			break
		}
	}
	if sentinel < 0 {
		return nil, apperrors.NewMalformedFormatError(
			fmt.Sprintf("missing %q/%q row", sentinelSamples, sentinelMinEvents))
	}

	h := &Header{
		fields:          make(map[domain.MetadataField]domain.MetadataValue),
		declaredSamples: strings.TrimSpace(field(rows[sentinel], 1)),
		minEvents:       strings.TrimSpace(field(rows[sentinel], 3)),
	}

	region := rows[:sentinel]
	metaEnd := len(region)
	for i, row := range region {
		if isSectionMarker(row) {
			metaEnd = i
			break
		}
	}

	for _, row := range region[:metaEnd] {
		f, ok := knownFields[firstField(row)]
		if !ok {
			continue
		}
		if _, seen := h.fields[f]; seen {
			continue
		}
		h.fields[f] = metadataValue(f, row)
	}

	if op := h.fields[domain.FieldOperator]; strings.TrimSpace(op.Value) == "" {
		if author := h.fields[domain.FieldBatchAuthor].Value; author != "" {
			op.Value = author
			h.fields[domain.FieldOperator] = op
		}
	}

	for i, row := range region {
		switch firstField(row) {
		case MarkerCalibrators:
			h.calibrators = parseReference(region, i)
		case MarkerControls:
			h.controls = parseReference(region, i)
		case MarkerLotInfo:
			h.lotInfo = parseLotInfo(region, i)
		}
	}

	return h, nil
}

func metadataValue(f domain.MetadataField, row []string) domain.MetadataValue {
	if f == domain.FieldDate {
		v := domain.MetadataValue{Value: field(row, 1)}
		if len(row) > 2 {
			v.Value += " " + row[2]
		}
		v.Extra = extraFields(row, 3)
		return v
	}
	return domain.MetadataValue{Value: field(row, 1), Extra: extraFields(row, 2)}
}

func extraFields(row []string, from int) []string {
	if len(row) <= from {
		return nil
	}
	return slices.Clone(row[from:])
}

func isSectionMarker(row []string) bool {
	switch firstField(row) {
	case MarkerCalibrators, MarkerControls, MarkerLotInfo:
		return true
	}
	return false
}

func parseReference(rows [][]string, marker int) ReferenceTable {
	var t ReferenceTable
	next := marker + 1
	if next >= len(rows) || isSectionMarker(rows[next]) || isEmptyRow(rows[next]) {
		return t
	}
	t.columns = slices.Clone(rows[next])

	for i := next + 1; i < len(rows) && len(t.rows) < maxReferenceRows; i++ {
		row := rows[i]
		if isSectionMarker(row) || isEmptyRow(row) {
			break
		}
		r := ReferenceRow{Product: row[0]}
		for _, raw := range row[1:] {
			r.Cells = append(r.Cells, ParseCell(raw, false))
		}
		t.rows = append(t.rows, r)
	}
	return t
}

func parseLotInfo(rows [][]string, marker int) [][]string {
	var out [][]string
	for _, row := range rows[marker+1:] {
		if isSectionMarker(row) {
			break
		}
		if isEmptyRow(row) {
			continue
		}
		out = append(out, slices.Clone(row))
	}
	return out
}

// Get returns the value of f, empty when the row was absent.
func (h *Header) Get(f domain.MetadataField) domain.MetadataValue {
	v := h.fields[f]
	v.Extra = slices.Clone(v.Extra)
	return v
}

// Value returns the primary value of f.
func (h *Header) Value(f domain.MetadataField) string {
	return h.fields[f].Value
}

// Has reports whether the export carried a row for f.
func (h *Header) Has(f domain.MetadataField) bool {
	_, ok := h.fields[f]
	return ok
}

// Map returns every recognized field's primary value keyed by label.
func (h *Header) Map() map[string]string {
	out := make(map[string]string, len(domain.MetadataFields))
	for _, f := range domain.MetadataFields {
		out[string(f)] = h.fields[f].Value
	}
	return out
}

// Template returns the assay template identity.
func (h *Header) Template() domain.TemplateIdentity {
	return domain.TemplateIdentity{
		ID:      h.Value(domain.FieldTemplateID),
		Name:    h.Value(domain.FieldTemplateName),
		Version: h.Value(domain.FieldTemplateVersion),
	}
}

// Generated parses the Date field.
func (h *Header) Generated() (time.Time, error) {
	raw := strings.TrimSpace(h.Value(domain.FieldDate))
	if raw == "" {
		return time.Time{}, apperrors.NewAppValidationError("export has no generation date")
	}
	for _, layout := range generatedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewAppValidationError(fmt.Sprintf("unrecognized generation date %q", raw))
}

// DeclaredSampleCount returns the count written on the Samples row.
func (h *Header) DeclaredSampleCount() (int, bool) {
	n, err := strconv.Atoi(h.declaredSamples)
	return n, err == nil
}

// MinEvents returns the per-bead event threshold, 0 when not numeric.
func (h *Header) MinEvents() int {
	n, err := strconv.Atoi(h.minEvents)
	if err != nil {
		return 0
	}
	return n
}

// MinEventsRaw returns the threshold as written.
func (h *Header) MinEventsRaw() string {
	return h.minEvents
}

// Calibrators returns the CALInfo: section.
func (h *Header) Calibrators() ReferenceTable {
	return ReferenceTable{columns: h.calibrators.Columns(), rows: h.calibrators.Rows()}
}

// Controls returns the CONInfo: section.
func (h *Header) Controls() ReferenceTable {
	return ReferenceTable{columns: h.controls.Columns(), rows: h.controls.Rows()}
}

func (h *Header) ClassificationCalibrator() (ReferenceRow, bool) {
	return h.referenceRow(ClassificationCalibrator)
}

func (h *Header) ReporterCalibrator() (ReferenceRow, bool) {
	return h.referenceRow(ReporterCalibrator)
}

func (h *Header) ClassificationControl() (ReferenceRow, bool) {
	return h.referenceRow(ClassificationControl)
}

func (h *Header) ReporterControl() (ReferenceRow, bool) {
	return h.referenceRow(ReporterControl)
}

func (h *Header) referenceRow(label string) (ReferenceRow, bool) {
	if r, ok := h.calibrators.find(label); ok {
		return r, true
	}
	return h.controls.find(label)
}

// LotInfo returns the free-text rows of the AssayLotInfo: section.
func (h *Header) LotInfo() [][]string {
	out := make([][]string, len(h.lotInfo))
	for i, row := range h.lotInfo {
		out[i] = slices.Clone(row)
	}
	return out
}
