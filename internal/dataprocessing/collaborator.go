package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
)

// locusOrder is the reporting order of HLA loci.
var locusOrder = []string{"A", "B", "C", "DRB1", "DRB5", "DRB3", "DRB4", "DQB1", "DPB1"}

// CollaboratorTable is a single-value table keyed by allele or antigen,
// as supplied by an external typing system. It never enters a Document.
type CollaboratorTable struct {
	Column string
	keys   []string
	values map[string]Cell
}

// NewCollaboratorTable creates an empty table whose value column is named column.
func NewCollaboratorTable(column string) *CollaboratorTable {
	return &CollaboratorTable{Column: column, values: make(map[string]Cell)}
}

// Set stores raw under allele, keeping first-insertion order.
func (t *CollaboratorTable) Set(allele, raw string) {
	allele = strings.TrimSpace(allele)
	if _, ok := t.values[allele]; !ok {
		t.keys = append(t.keys, allele)
	}
	t.values[allele] = ParseCell(raw, false)
}

func (t *CollaboratorTable) Get(allele string) (Cell, bool) {
	c, ok := t.values[allele]
	return c, ok
}

func (t *CollaboratorTable) Len() int {
	return len(t.keys)
}

// ReadCollaboratorCSV reads a two-column table: key, value. The header row
// names the value column.
func ReadCollaboratorCSV(r io.Reader) (*CollaboratorTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewDecodeError("malformed collaborator table", err)
	}
	return collaboratorFromRows(records)
}

// ReadCollaboratorWorkbook reads the first sheet (or the named one) of an
// xlsx workbook laid out like ReadCollaboratorCSV expects.
func ReadCollaboratorWorkbook(path, sheet string) (*CollaboratorTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewMalformedFormatError("workbook has no sheets").WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("failed to read sheet %q", sheet), err).
			WithContext("path", path)
	}
	return collaboratorFromRows(rows)
}

// ReadCollaboratorFile picks the reader by extension.
func ReadCollaboratorFile(path string) (*CollaboratorTable, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadCollaboratorWorkbook(path, "")
	}
	rc, err := files.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCollaboratorCSV(rc)
}

func collaboratorFromRows(rows [][]string) (*CollaboratorTable, error) {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, apperrors.NewTableShapeError("collaborator table needs a key and a value column")
	}
	t := NewCollaboratorTable(strings.TrimSpace(rows[0][1]))
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		if len(row) < 2 {
			return nil, apperrors.NewTableShapeError("collaborator row has no value").WithContext("row", i+1)
		}
		t.Set(row[0], row[1])
	}
	return t, nil
}

// CollaboratorRow is one allele of a joined collaborator report.
type CollaboratorRow struct {
	Alpha  string
	Beta   string
	Values []Cell
}

// CollaboratorJoin is the outer join of several collaborator tables.
type CollaboratorJoin struct {
	Columns []string
	Rows    []CollaboratorRow
}

// SplitAllele splits a heterodimer "DQA1*..-DQB1*.." into alpha and beta
// chains. Single-chain alleles have an empty alpha.
func SplitAllele(allele string) (alpha, beta string) {
	if a, b, ok := strings.Cut(allele, "-"); ok {
		return a, b
	}
	return "", allele
}

// LocusRank returns the reporting position of the locus beta belongs to,
// or len(locusOrder) for unknown loci.
func LocusRank(beta string) int {
	// longest matching locus wins
	best, bestLen := len(locusOrder), 0
	for i, locus := range locusOrder {
		if strings.HasPrefix(beta, locus) && len(locus) > bestLen {
			best, bestLen = i, len(locus)
		}
	}
	return best
}

// JoinCollaborators outer-joins tables on their key and sorts by locus,
// beta chain, then alpha chain.
func JoinCollaborators(tables ...*CollaboratorTable) CollaboratorJoin {
	var j CollaboratorJoin
	seen := make(map[string]bool)
	var keys []string
	for _, t := range tables {
		j.Columns = append(j.Columns, t.Column)
		for _, k := range t.keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	for _, k := range keys {
		alpha, beta := SplitAllele(k)
		row := CollaboratorRow{Alpha: alpha, Beta: beta, Values: make([]Cell, len(tables))}
		for i, t := range tables {
			if c, ok := t.values[k]; ok {
				row.Values[i] = c
			} else {
				row.Values[i] = TextCell("")
			}
		}
		j.Rows = append(j.Rows, row)
	}

	slices.SortStableFunc(j.Rows, func(a, b CollaboratorRow) int {
		if ra, rb := LocusRank(a.Beta), LocusRank(b.Beta); ra != rb {
			return ra - rb
		}
		if c := strings.Compare(a.Beta, b.Beta); c != 0 {
			return c
		}
		return strings.Compare(a.Alpha, b.Alpha)
	})
	return j
}
