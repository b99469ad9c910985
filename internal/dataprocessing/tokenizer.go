package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Tokenize splits a quoted-field export into rows. Blank lines are dropped;
// a row holding a single empty quoted field ("") is kept because the vendor
// uses it as a separator.
func Tokenize(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return tokenizeBytes(data)
}

// ReadRows opens path (optionally zstd compressed) and tokenizes it.
func ReadRows(path string) ([][]string, error) {
	rc, err := files.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, err := Tokenize(rc)
	if err != nil {
		return nil, withPath(err, path)
	}
	return rows, nil
}

func tokenizeBytes(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, apperrors.NewDecodeError("export is not valid UTF-8 text", nil)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			appErr := apperrors.NewDecodeError("malformed quoted field", err)
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				appErr.WithContext("line", parseErr.Line)
			}
			return nil, appErr
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// isEmptyRow reports whether every field of row is blank.
func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func firstField(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func withPath(err error, path string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("path", path)
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
