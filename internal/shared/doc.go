// Package shared holds code reused by several beadcsv packages that has no
// home in a single layer. Today that is the testutil subpackage: synthetic
// xPONENT exports (ExportBuilder) and a buffered slog handler for asserting
// on log output.
package shared
