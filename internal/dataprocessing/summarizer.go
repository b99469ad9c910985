package dataprocessing

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"time"

	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/files"
)

// Summarizer computes per-bead statistics of each block.
type Summarizer struct {
	logger             *slog.Logger
	includeAnnotations bool
	precision          int
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	IncludeAnnotations bool // Also summarize trailing columns such as Total Events
	Precision          int  // Decimal places in CSV output
}

// BeadSummary describes one bead column of one block. Flagged counts
// non-numeric cells such as "OOR"; they are excluded from the statistics.
// BelowMinEvents is only set for count blocks.
type BeadSummary struct {
	Block          string  `json:"block"`
	Bead           string  `json:"bead"`
	Samples        int     `json:"samples"`
	Numeric        int     `json:"numeric"`
	Flagged        int     `json:"flagged"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Mean           float64 `json:"mean"`
	Median         float64 `json:"median"`
	BelowMinEvents int     `json:"below_min_events,omitempty"`
}

// DefaultSummarizerConfig returns the configuration used by the CLI.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{Precision: 2}
}

// NewSummarizer creates a summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Precision <= 0 {
		config.Precision = 2
	}
	return &Summarizer{
		logger:             logger.With(slog.String("component", "summarizer")),
		includeAnnotations: config.IncludeAnnotations,
		precision:          config.Precision,
	}
}

// Summarize returns one summary per block and bead, in document order.
func (s *Summarizer) Summarize(ctx context.Context, doc *Document) []BeadSummary {
	minEvents := doc.Header().MinEvents()

	var out []BeadSummary
	for _, b := range doc.blocks {
		columns := b.Table.ValueColumns()
		n := len(columns)
		if !s.includeAnnotations {
			n = len(b.Table.BeadColumns())
		}

		for j := 0; j < n; j++ {
			summary := BeadSummary{Block: b.Name, Bead: columns[j], Samples: b.Table.Len()}
			var values []float64
			for _, r := range b.Table.rows {
				c := r.Cells[j]
				if !c.IsNumeric() {
					summary.Flagged++
					continue
				}
				v := numericValue(c)
				values = append(values, v)
				if b.IsCount() && minEvents > 0 && v < float64(minEvents) {
					summary.BelowMinEvents++
				}
			}
			fillStats(&summary, values)
			out = append(out, summary)
		}
	}

	s.logger.InfoContext(ctx, "block statistics computed",
		slog.Int("blocks", len(doc.blocks)),
		slog.Int("summaries", len(out)))
	return out
}

func numericValue(c Cell) float64 {
	if c.Kind == KindInt {
		return float64(c.Int)
	}
	return c.Float
}

func fillStats(s *BeadSummary, values []float64) {
	values = slices.DeleteFunc(values, math.IsNaN)
	s.Numeric = len(values)
	if len(values) == 0 {
		return
	}
	slices.Sort(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Mean = sum / float64(len(values))

	mid := len(values) / 2
	if len(values)%2 == 0 {
		s.Median = (values[mid-1] + values[mid]) / 2
	} else {
		s.Median = values[mid]
	}
}

// WriteCSV writes summaries to path.
func (s *Summarizer) WriteCSV(ctx context.Context, path string, summaries []BeadSummary) error {
	s.logger.InfoContext(ctx, "writing block statistics to CSV",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	file, err := files.Create(path)
	if err != nil {
		return err
	}
	defer file.Abort()

	writer := csv.NewWriter(file)
	header := []string{"Block", "Bead", "Samples", "Numeric", "Flagged", "Min", "Max", "Mean", "Median", "BelowMinEvents"}
	if err := writer.Write(header); err != nil {
		return apperrors.NewWriteError("failed to write CSV header row", err)
	}

	for _, summary := range summaries {
		row := []string{
			summary.Block,
			summary.Bead,
			strconv.Itoa(summary.Samples),
			strconv.Itoa(summary.Numeric),
			strconv.Itoa(summary.Flagged),
			s.formatFloat(summary.Min),
			s.formatFloat(summary.Max),
			s.formatFloat(summary.Mean),
			s.formatFloat(summary.Median),
			strconv.Itoa(summary.BelowMinEvents),
		}
		if err := writer.Write(row); err != nil {
			return apperrors.NewWriteError("failed to write CSV data row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewWriteError("failed to flush CSV", err)
	}
	return file.Close()
}

// WriteJSON writes summaries to path with generation metadata.
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summaries []BeadSummary) error {
	s.logger.InfoContext(ctx, "writing block statistics to JSON",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	jsonData := map[string]interface{}{
		"beads":        summaries,
		"count":        len(summaries),
		"generated_at": time.Now().Format(time.RFC3339),
		"format":       "bead_summary_v1",
	}

	file, err := files.Create(path)
	if err != nil {
		return err
	}
	defer file.Abort()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(jsonData); err != nil {
		return apperrors.NewWriteError("failed to encode block statistics to JSON", err)
	}
	return file.Close()
}

func (s *Summarizer) formatFloat(v float64) string {
	return fmt.Sprintf("%.*f", s.precision, v)
}
