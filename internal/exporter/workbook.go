package exporter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"beadcsv/internal/dataprocessing"
	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
)

const (
	headerSheet  = "Header"
	maxSheetName = 31
)

var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

// sheetName makes block usable as a worksheet name, unique among taken.
func sheetName(block string, taken map[string]bool) string {
	base := strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(block)), "'")
	if base == "" {
		base = "Block"
	}
	if len([]rune(base)) > maxSheetName {
		base = string([]rune(base)[:maxSheetName])
	}

	name := base
	for i := 2; taken[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	taken[strings.ToLower(name)] = true
	return name
}

// BuildWorkbook lays doc out as a workbook: the header rows on a "Header"
// sheet, then one sheet per block with numeric cells stored as numbers.
// The caller closes the returned file.
func BuildWorkbook(doc *dataprocessing.Document) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := buildWorkbook(f, doc); err != nil {
		f.Close()
		return nil, apperrors.NewWriteError("failed to build workbook", err)
	}
	return f, nil
}

func buildWorkbook(f *excelize.File, doc *dataprocessing.Document) error {
	if err := f.SetSheetName(f.GetSheetName(0), headerSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, row := range headerRows(doc) {
		if err := setRow(f, headerSheet, i+1, stringsToAny(row)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(headerSheet, "A", "A", 28); err != nil {
		return err
	}

	taken := map[string]bool{strings.ToLower(headerSheet): true}
	for _, b := range doc.Blocks() {
		name := sheetName(b.Name, taken)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := setRow(f, name, 1, stringsToAny(b.Table.Columns())); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return err
		}
		for i, r := range b.Table.Rows() {
			values := make([]any, 0, len(r.Cells)+2)
			values = append(values, r.Location, r.Sample)
			for _, c := range r.Cells {
				values = append(values, c.Value())
			}
			if err := setRow(f, name, i+2, values); err != nil {
				return err
			}
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze: true, XSplit: 2, YSplit: 1, TopLeftCell: "C2", ActivePane: "bottomRight",
		}); err != nil {
			return err
		}
	}
	return nil
}

// headerRows are the export rows before the first block.
func headerRows(doc *dataprocessing.Document) [][]string {
	rows := DocumentRows(doc)
	for i, r := range rows {
		if len(r) > 0 && r[0] == "DataType:" {
			return rows[:i]
		}
	}
	return rows
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func stringsToAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// WriteWorkbook writes doc as xlsx to w.
func WriteWorkbook(w io.Writer, doc *dataprocessing.Document) error {
	f, err := BuildWorkbook(doc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return apperrors.NewWriteError("failed to write workbook", err)
	}
	return nil
}

// WriteWorkbookFile writes doc as xlsx to path, replacing it atomically.
func WriteWorkbookFile(path string, doc *dataprocessing.Document) error {
	out, err := files.Create(path)
	if err != nil {
		return err
	}
	defer out.Abort()

	if err := WriteWorkbook(out, doc); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return err
	}
	return out.Close()
}
