package exporter

import (
	"log/slog"

	"beadcsv/internal/dataprocessing"
)

// CollaboratorHeaders returns the header row of a joined collaborator report.
func CollaboratorHeaders(join dataprocessing.CollaboratorJoin) []string {
	return append([]string{"Alpha", "Beta"}, join.Columns...)
}

// ExportCollaborators writes a joined collaborator report, one allele per
// line in the join's order. Missing values are empty.
func (w *CSVWriter) ExportCollaborators(filePath string, join dataprocessing.CollaboratorJoin) error {
	records := make([][]string, 0, len(join.Rows))
	for _, r := range join.Rows {
		record := make([]string, 0, len(r.Values)+2)
		record = append(record, r.Alpha, r.Beta)
		for _, c := range r.Values {
			record = append(record, c.Raw)
		}
		records = append(records, record)
	}

	if err := w.WriteCSV(filePath, WriteOptions{
		Headers: CollaboratorHeaders(join),
		Records: records,
	}); err != nil {
		return err
	}

	w.logger.Info("collaborator report written",
		slog.String("file_path", filePath),
		slog.Int("alleles", len(records)),
		slog.Int("sources", len(join.Columns)))
	return nil
}
