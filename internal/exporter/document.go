package exporter

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"beadcsv/internal/dataprocessing"
	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
	"beadcsv/pkg/contracts/domain"
)

// programTag is the numeric tag the instrument writes after the program name.
const programTag = "100"

// DocumentRows lays doc out as the instrument export rows.
func DocumentRows(doc *dataprocessing.Document) [][]string {
	h := doc.Header()
	var rows [][]string

	for _, f := range domain.MetadataFields {
		rows = append(rows, metadataRow(f, h.Get(f)))
	}
	rows = append(rows, []string{""})

	rows = appendReference(rows, dataprocessing.MarkerCalibrators, h.Calibrators())
	rows = appendReference(rows, dataprocessing.MarkerControls, h.Controls())

	rows = append(rows, []string{dataprocessing.MarkerLotInfo})
	rows = append(rows, h.LotInfo()...)
	rows = append(rows, []string{""})

	rows = append(rows,
		[]string{"Samples", strconv.Itoa(doc.SampleCount()), "Min Events", h.MinEventsRaw()},
		[]string{""},
		[]string{dataprocessing.MarkerResults},
		[]string{""},
	)

	for _, b := range doc.Blocks() {
		rows = append(rows, []string{"DataType:", b.Name})
		rows = append(rows, b.Table.Columns())
		for _, r := range b.Table.Rows() {
			rows = append(rows, r.Fields())
		}
		rows = append(rows, []string{""})
	}
	return rows
}

func metadataRow(f domain.MetadataField, v domain.MetadataValue) []string {
	row := []string{string(f)}
	if f == domain.FieldDate {
		date, clock, ok := strings.Cut(v.Value, " ")
		row = append(row, date)
		if ok {
			row = append(row, clock)
		}
	} else {
		row = append(row, v.Value)
	}

	if f == domain.FieldProgram && len(v.Extra) == 0 {
		return append(row, programTag)
	}
	return append(row, v.Extra...)
}

func appendReference(rows [][]string, marker string, t dataprocessing.ReferenceTable) [][]string {
	if t.IsEmpty() {
		return rows
	}
	rows = append(rows, []string{marker})
	rows = append(rows, t.Columns())
	for _, r := range t.Rows() {
		rows = append(rows, r.Fields())
	}
	return append(rows, []string{""})
}

// WriteDocument serializes doc in the instrument layout.
func WriteDocument(w io.Writer, doc *dataprocessing.Document) error {
	if err := NewQuotedWriter(w).WriteAll(DocumentRows(doc)); err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrTypeWrite {
			return err
		}
		return apperrors.NewWriteError("failed to write export", err)
	}
	return nil
}

// WriteDocumentFile writes doc to path, replacing it only once the whole
// export is written. Paths ending in .zst are compressed.
func WriteDocumentFile(path string, doc *dataprocessing.Document) error {
	f, err := files.Create(path)
	if err != nil {
		return err
	}
	defer f.Abort()

	if err := WriteDocument(f, doc); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return err
	}
	return f.Close()
}
