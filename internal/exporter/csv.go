package exporter

import (
	"encoding/csv"
	"log/slog"
	"path/filepath"
	"strings"

	"beadcsv/internal/config"
	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative paths resolve
// against the output directory.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger.With(slog.String("component", "exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	sw, err := w.CreateStreamWriter(filePath, options.Headers, options.BOMPrefix)
	if err != nil {
		return err
	}
	defer sw.Abort()

	for i, record := range options.Records {
		if err := sw.WriteRecord(record); err != nil {
			return apperrors.NewWriteError("failed to write record", err).WithContext("record", i)
		}
	}
	return sw.Close()
}

// WriteSimpleCSV writes a simple CSV file with headers and records
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	file   *files.File
	writer *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	return newStreamWriter(fullPath, headers, bom)
}

func newStreamWriter(path string, headers []string, bom bool) (*StreamWriter, error) {
	file, err := files.Create(path)
	if err != nil {
		return nil, err
	}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Abort()
			return nil, err
		}
	}

	writer := csv.NewWriter(file)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Abort()
			return nil, apperrors.NewWriteError("failed to write headers", err).WithContext("path", path)
		}
	}

	return &StreamWriter{
		file:   file,
		writer: writer,
	}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream and moves the file into place
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Abort()
		return apperrors.NewWriteError("failed to flush csv", err).WithContext("path", s.file.Path())
	}
	return s.file.Close()
}

// Abort discards the stream. It is a no-op after Close.
func (s *StreamWriter) Abort() {
	s.file.Abort()
}

// resolvePath resolves a path to the appropriate directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	if strings.HasPrefix(filePath, "backups/") {
		return w.paths.GetBackupPath(strings.TrimPrefix(filePath, "backups/"))
	}
	return w.paths.GetOutputPath(filePath)
}
