package exporter

import (
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"

	"beadcsv/internal/dataprocessing"
	apperrors "beadcsv/internal/errors"
)

// LongHeaders are the columns of a long-format export.
var LongHeaders = []string{"Block", "Location", "Index", "Well", "Sample", "Bead", "Value"}

// LongOptions selects what ExportLong writes.
type LongOptions struct {
	Filter dataprocessing.DataFilter
	// Annotations also writes trailing columns such as "Total Events".
	Annotations bool
	BOMPrefix   bool
}

// ExportLong writes one line per block, sample and bead. Flagged cells
// such as "OOR" are written as they appear in the export.
func (w *CSVWriter) ExportLong(filePath string, doc *dataprocessing.Document, opts LongOptions) (int, error) {
	stream, err := w.CreateStreamWriter(filePath, LongHeaders, opts.BOMPrefix)
	if err != nil {
		return 0, err
	}
	defer stream.Abort()

	n, err := writeLongRecords(doc, opts, stream.WriteRecord)
	if err != nil {
		return n, err
	}

	if err := stream.Close(); err != nil {
		return n, err
	}
	w.logger.Info("long export written",
		slog.String("file_path", filePath),
		slog.Int("records", n))
	return n, nil
}

// WriteLong is ExportLong onto an arbitrary writer.
func WriteLong(out io.Writer, doc *dataprocessing.Document, opts LongOptions) (int, error) {
	if opts.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return 0, apperrors.NewWriteError("failed to write BOM", err)
		}
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(LongHeaders); err != nil {
		return 0, apperrors.NewWriteError("failed to write headers", err)
	}

	n, err := writeLongRecords(doc, opts, cw.Write)
	cw.Flush()
	if err != nil {
		return n, err
	}
	if err := cw.Error(); err != nil {
		return n, apperrors.NewWriteError("failed to flush csv", err)
	}
	return n, nil
}

func writeLongRecords(doc *dataprocessing.Document, opts LongOptions, write func([]string) error) (int, error) {
	beads := make(map[string]bool)
	for _, b := range doc.BeadNames() {
		beads[b] = true
	}

	n := 0
	for row := range doc.Data(opts.Filter) {
		index := ""
		if row.Index > 0 {
			index = strconv.Itoa(row.Index)
		}
		for i, col := range row.Columns {
			if !opts.Annotations && !beads[col] {
				continue
			}
			record := []string{row.Block, row.Location, index, row.Well, row.Sample, col, formatValue(row.Values[i])}
			if err := write(record); err != nil {
				return n, apperrors.NewWriteError("failed to write long record", err).
					WithContext("block", row.Block).
					WithContext("location", row.Location)
			}
			n++
		}
	}
	return n, nil
}
