package http

import (
	"context"
	"io"

	"beadcsv/internal/dataprocessing"
	"beadcsv/internal/exporter"
	"beadcsv/pkg/contracts/domain"
)

// DocumentServiceInterface defines the document operations exposed over HTTP
type DocumentServiceInterface interface {
	Load(ctx context.Context, path string) (domain.DocumentSummary, error)
	LoadMany(ctx context.Context, paths []string) ([]domain.DocumentSummary, error)
	List(ctx context.Context) []domain.DocumentSummary
	Get(ctx context.Context, id string) (domain.DocumentSummary, error)
	Delete(ctx context.Context, id string) error

	Blocks(ctx context.Context, id string) ([]string, error)
	Beads(ctx context.Context, id string) ([]string, error)
	Samples(ctx context.Context, id string) ([]domain.Sample, error)
	Data(ctx context.Context, id string, filter dataprocessing.DataFilter) ([]dataprocessing.DataRow, error)
	Summarize(ctx context.Context, id string) ([]dataprocessing.BeadSummary, error)

	Merge(ctx context.Context, targetID string, req domain.MergeRequest) (domain.DocumentSummary, error)
	Update(ctx context.Context, targetID string, req domain.UpdateRequest) (domain.UpdateResult, error)
	Write(ctx context.Context, id string, req domain.WriteRequest) (string, error)

	// Export writers stream straight to the response
	ExportWorkbook(ctx context.Context, id string, w io.Writer) error
	ExportLong(ctx context.Context, id string, w io.Writer, opts exporter.LongOptions) (int, error)
}
