// Package exporter writes bead-array documents back out.
//
// WriteDocument and WriteDocumentFile reproduce the instrument layout: every
// field quoted, CRLF line endings, the header rows first and then one
// DataType: block after another. Parsing an export and writing it again
// yields the same bytes as long as the header carries every recognized
// field.
//
// BuildWorkbook and WriteWorkbookFile lay a document out as an xlsx
// workbook. CSVWriter writes derived reports (long format, joined
// collaborator tables) into the configured output directory.
//
// Paths ending in .zst are compressed, and files are only replaced once
// they were written completely.
package exporter
