package exporter

import (
	"bufio"
	"io"
	"strings"
)

// QuotedWriter writes records the way the instrument does: every field
// double-quoted, embedded quotes doubled, CRLF line endings.
type QuotedWriter struct {
	w   *bufio.Writer
	err error
}

// NewQuotedWriter returns a QuotedWriter writing to w.
func NewQuotedWriter(w io.Writer) *QuotedWriter {
	return &QuotedWriter{w: bufio.NewWriter(w)}
}

// Write writes a single record. After the first error every call returns it.
func (q *QuotedWriter) Write(record []string) error {
	if q.err != nil {
		return q.err
	}
	for i, field := range record {
		if i > 0 {
			q.w.WriteByte(',')
		}
		q.w.WriteByte('"')
		q.w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		q.w.WriteByte('"')
	}
	_, q.err = q.w.WriteString("\r\n")
	return q.err
}

// WriteAll writes records and flushes.
func (q *QuotedWriter) WriteAll(records [][]string) error {
	for _, r := range records {
		if err := q.Write(r); err != nil {
			return err
		}
	}
	return q.Flush()
}

// Flush writes any buffered data to the underlying writer.
func (q *QuotedWriter) Flush() error {
	if q.err != nil {
		return q.err
	}
	q.err = q.w.Flush()
	return q.err
}
