package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"beadcsv/internal/config"
	"beadcsv/internal/dataprocessing"
	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/exporter"
	"beadcsv/internal/files"
	"beadcsv/internal/infrastructure"
	"beadcsv/internal/shared/testutil"
	"beadcsv/pkg/contracts/domain"
	"beadcsv/pkg/contracts/events"
)

type serviceFixture struct {
	svc     *DocumentService
	paths   *config.Paths
	handler *testutil.BufferedSlogHandler
}

func newFixture(t *testing.T, cfg config.DocumentsConfig) *serviceFixture {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())

	logger, handler := testutil.NewTestLogger(t)
	svc := NewDocumentService(cfg, files.NewManager(paths, logger), nil, nil, logger)
	return &serviceFixture{svc: svc, paths: paths, handler: handler}
}

func (f *serviceFixture) write(t *testing.T, name string, b *testutil.ExportBuilder) string {
	t.Helper()
	b.WriteFile(t, f.paths.DataDir, name)
	return name
}

func (f *serviceFixture) load(t *testing.T, name string, b *testutil.ExportBuilder) domain.DocumentSummary {
	t.Helper()
	summary, err := f.svc.Load(context.Background(), f.write(t, name, b))
	require.NoError(t, err)
	return summary
}

func TestLoadAndQuery(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()
	b := testutil.NewExportBuilder()

	summary := f.load(t, "plate.csv", b)

	assert.Len(t, summary.ID, 36)
	assert.Equal(t, filepath.Join(f.paths.DataDir, "plate.csv"), summary.Path)
	assert.Equal(t, dataprocessing.FingerprintOf(b.Bytes()).String(), summary.Fingerprint)
	assert.Equal(t, 3, summary.SampleCount)
	assert.Equal(t, []string{"Median", "Net MFI", "Count"}, summary.Blocks)
	assert.Equal(t, []string{"Bead1", "Bead2", "Bead3"}, summary.Beads)
	assert.Equal(t, "1234", summary.Template.ID)
	assert.Equal(t, "jdoe", summary.Metadata["Operator"])
	assert.Equal(t, 100, summary.MinEvents)
	assert.False(t, summary.LoadedAt.IsZero())

	got, err := f.svc.Get(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary, got)
	assert.Equal(t, []domain.DocumentSummary{summary}, f.svc.List(ctx))

	blocks, err := f.svc.Blocks(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Blocks, blocks)

	beads, err := f.svc.Beads(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Beads, beads)

	samples, err := f.svc.Samples(ctx, summary.ID)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, "B1", samples[1].Well)

	rows, err := f.svc.Data(ctx, summary.ID, dataprocessing.DataFilter{Blocks: []string{"Count"}, Samples: []int{2}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2(1,B1)", rows[0].Location)

	rows, err = f.svc.Data(ctx, summary.ID, dataprocessing.DataFilter{Blocks: []string{"Trimmed Mean"}})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	testutil.AssertLogContains(t, f.handler, slog.LevelInfo, "document registered")
}

func TestLoadCompressed(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	b := testutil.NewExportBuilder().WithSamples(4)

	out, err := files.Create(filepath.Join(f.paths.DataDir, "plate.csv.zst"))
	require.NoError(t, err)
	_, err = out.Write(b.Bytes())
	require.NoError(t, err)
	require.NoError(t, out.Close())

	summary, err := f.svc.Load(context.Background(), "plate.csv.zst")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.SampleCount)
	assert.Equal(t, dataprocessing.FingerprintOf(b.Bytes()).String(), summary.Fingerprint)
}

func TestLoadErrors(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", "missing.csv", apperrors.ErrNotFound},
		{"malformed", f.write(t, "bad.csv", testutil.NewExportBuilder().WithoutSentinel()), apperrors.ErrMalformedFormat},
		{"uneven blocks", f.write(t, "uneven.csv", testutil.NewExportBuilder().WithExtraRow("Median", "4(1,D1)", "X", "1", "2", "3", "4")), apperrors.ErrInconsistentSampleCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Load(ctx, tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	assert.Empty(t, f.svc.List(ctx))
	testutil.AssertLogContains(t, f.handler, slog.LevelWarn, "document operation failed")
}

func TestLoadDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("refused by default", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		first := f.load(t, "a.csv", testutil.NewExportBuilder())

		_, err := f.svc.Load(ctx, f.write(t, "b.csv", testutil.NewExportBuilder()))
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, first.ID, appErr.Context["id"])
		assert.Len(t, f.svc.List(ctx), 1)
	})

	t.Run("allowed", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{AllowDuplicates: true})
		first := f.load(t, "a.csv", testutil.NewExportBuilder())
		second := f.load(t, "b.csv", testutil.NewExportBuilder())
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, first.Fingerprint, second.Fingerprint)
	})
}

func TestMergedDocumentNoLongerMatchesSource(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()
	b := testutil.NewExportBuilder()
	target := f.load(t, "a.csv", b)
	source := f.load(t, "b.csv", testutil.NewExportBuilder().WithSamples(2))

	merged, err := f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: source.ID, ShiftLocations: true})
	require.NoError(t, err)
	assert.NotEqual(t, target.Fingerprint, merged.Fingerprint)

	reloaded, err := f.svc.Load(ctx, "a.csv")
	require.NoError(t, err, "original bytes differ from the merged document")
	assert.Equal(t, dataprocessing.FingerprintOf(b.Bytes()).String(), reloaded.Fingerprint)
	assert.Len(t, f.svc.List(ctx), 3)
}

func TestLoadMaxDocuments(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{MaxDocuments: 1})
	f.load(t, "a.csv", testutil.NewExportBuilder())

	_, err := f.svc.Load(context.Background(), f.write(t, "b.csv", testutil.NewExportBuilder().WithSamples(2)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestLoadMany(t *testing.T) {
	ctx := context.Background()

	t.Run("registers in order", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{ParallelLoads: 2})
		var paths []string
		for n := 1; n <= 4; n++ {
			paths = append(paths, f.write(t, fmt.Sprintf("plate%d.csv", n), testutil.NewExportBuilder().WithSamples(n)))
		}

		summaries, err := f.svc.LoadMany(ctx, paths)
		require.NoError(t, err)
		require.Len(t, summaries, 4)
		for i, s := range summaries {
			assert.Equal(t, i+1, s.SampleCount)
		}
		assert.Equal(t, summaries, f.svc.List(ctx))
	})

	t.Run("parse failure registers nothing", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{ParallelLoads: 4})
		paths := []string{
			f.write(t, "good.csv", testutil.NewExportBuilder()),
			f.write(t, "bad.csv", testutil.NewExportBuilder().WithoutSentinel()),
		}

		_, err := f.svc.LoadMany(ctx, paths)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrMalformedFormat))
		assert.Empty(t, f.svc.List(ctx))
	})

	t.Run("duplicate rolls back", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		paths := []string{
			f.write(t, "one.csv", testutil.NewExportBuilder()),
			f.write(t, "two.csv", testutil.NewExportBuilder()),
		}

		_, err := f.svc.LoadMany(ctx, paths)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Empty(t, f.svc.List(ctx))
	})
}

func TestUnknownDocument(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()
	const id = "00000000-0000-0000-0000-000000000000"

	calls := map[string]func() error{
		"get":    func() error { _, err := f.svc.Get(ctx, id); return err },
		"blocks": func() error { _, err := f.svc.Blocks(ctx, id); return err },
		"data":   func() error { _, err := f.svc.Data(ctx, id, dataprocessing.DataFilter{}); return err },
		"delete": func() error { return f.svc.Delete(ctx, id) },
		"write": func() error {
			_, err := f.svc.Write(ctx, id, domain.WriteRequest{Path: "x.csv"})
			return err
		},
		"export": func() error { return f.svc.ExportWorkbook(ctx, id, io.Discard) },
		"summarize": func() error {
			_, err := f.svc.Summarize(ctx, id)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrNotFound))
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()
	a := f.load(t, "a.csv", testutil.NewExportBuilder())
	b := f.load(t, "b.csv", testutil.NewExportBuilder().WithSamples(2))

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	assert.Equal(t, []domain.DocumentSummary{b}, f.svc.List(ctx))

	_, err := f.svc.Get(ctx, a.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// content of a deleted document may be loaded again
	f.load(t, "a.csv", testutil.NewExportBuilder())
}

func TestDocumentReturnsCopy(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()
	s := f.load(t, "a.csv", testutil.NewExportBuilder())

	doc, err := f.svc.Document(ctx, s.ID)
	require.NoError(t, err)
	other := f.load(t, "b.csv", testutil.NewExportBuilder().WithSamples(2).WithLocations("7(1,G1)", "8(1,H1)"))
	src, err := f.svc.Document(ctx, other.ID)
	require.NoError(t, err)
	require.NoError(t, doc.Merge(src, dataprocessing.MergeOptions{}))

	got, err := f.svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SampleCount)
}

func TestMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("shifted", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())
		source := f.load(t, "b.csv", testutil.NewExportBuilder().WithSamples(2))

		merged, err := f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: source.ID, ShiftLocations: true})
		require.NoError(t, err)
		assert.Equal(t, 5, merged.SampleCount)

		samples, err := f.svc.Samples(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, "5(1,B1)", samples[4].Location)

		got, _ := f.svc.Get(ctx, source.ID)
		assert.Equal(t, 2, got.SampleCount, "source untouched")
	})

	t.Run("with itself", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())

		merged, err := f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: target.ID, ShiftLocations: true})
		require.NoError(t, err)
		assert.Equal(t, 6, merged.SampleCount)
	})

	t.Run("incompatible", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())
		source := f.load(t, "b.csv", testutil.NewExportBuilder().WithBeads("Bead1", "Bead9"))

		_, err := f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: source.ID, ShiftLocations: true})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrIncompatibleSchema))

		got, _ := f.svc.Get(ctx, target.ID)
		assert.Equal(t, 3, got.SampleCount)
	})

	t.Run("unknown source", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())

		_, err := f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: "nope"})
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	medianOf := func(t *testing.T, svc *DocumentService, id string, sample int) string {
		t.Helper()
		rows, err := svc.Data(ctx, id, dataprocessing.DataFilter{Blocks: []string{"Median"}, Samples: []int{sample}})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		return rows[0].Sample
	}

	t.Run("explicit pairs", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())
		source := f.load(t, "b.csv", testutil.NewExportBuilder().WithSampleName(0, "Rerun"))

		pairs := []domain.LocationPair{{Source: "1(1,A1)", Target: "3(1,C1)"}}
		result, err := f.svc.Update(ctx, target.ID, domain.UpdateRequest{SourceID: source.ID, Pairs: pairs})
		require.NoError(t, err)
		assert.Equal(t, pairs, result.Applied)
		assert.Equal(t, "Rerun", medianOf(t, f.svc, target.ID, 3))
	})

	t.Run("by well excluding", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())
		source := f.load(t, "b.csv", testutil.NewExportBuilder().
			WithSampleName(0, "New A1").
			WithSampleName(1, "New B1"))

		result, err := f.svc.Update(ctx, target.ID, domain.UpdateRequest{SourceID: source.ID, ExcludeWells: []string{"b1"}})
		require.NoError(t, err)
		assert.Equal(t, []domain.LocationPair{
			{Source: "1(1,A1)", Target: "1(1,A1)"},
			{Source: "3(1,C1)", Target: "3(1,C1)"},
		}, result.Applied)
		assert.Equal(t, "New A1", medianOf(t, f.svc, target.ID, 1))
		assert.Equal(t, "Sample2", medianOf(t, f.svc, target.ID, 2))
	})

	t.Run("no shared wells", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())
		source := f.load(t, "b.csv", testutil.NewExportBuilder().WithLocations("1(1,H12)", "2(1,G12)", "3(1,F12)"))

		result, err := f.svc.Update(ctx, target.ID, domain.UpdateRequest{SourceID: source.ID})
		require.NoError(t, err)
		assert.NotNil(t, result.Applied)
		assert.Empty(t, result.Applied)
	})

	t.Run("unknown location leaves target", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		target := f.load(t, "a.csv", testutil.NewExportBuilder())
		source := f.load(t, "b.csv", testutil.NewExportBuilder().WithSampleName(0, "Rerun"))
		before, err := f.svc.Document(ctx, target.ID)
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, target.ID, domain.UpdateRequest{
			SourceID: source.ID,
			Pairs: []domain.LocationPair{
				{Source: "1(1,A1)", Target: "1(1,A1)"},
				{Source: "9(1,A9)", Target: "2(1,B1)"},
			},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))

		after, err := f.svc.Document(ctx, target.ID)
		require.NoError(t, err)
		assert.True(t, before.Equal(after))
	})
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewExportBuilder()

	t.Run("relative path goes to output", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		s := f.load(t, "a.csv", b)

		dest, err := f.svc.Write(ctx, s.ID, domain.WriteRequest{Path: "copy.csv"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(f.paths.OutputDir, "copy.csv"), dest)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, b.Bytes(), data)
	})

	t.Run("backup existing destination", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{BackupOnWrite: true})
		s := f.load(t, "a.csv", b)
		dest := filepath.Join(f.paths.OutputDir, "copy.csv")
		require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

		_, err := f.svc.Write(ctx, s.ID, domain.WriteRequest{Path: dest})
		require.NoError(t, err)

		entries, err := os.ReadDir(f.paths.BackupDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, files.IsCompressed(entries[0].Name()))
	})

	t.Run("no backup when destination is new", func(t *testing.T) {
		f := newFixture(t, config.DocumentsConfig{})
		s := f.load(t, "a.csv", b)

		_, err := f.svc.Write(ctx, s.ID, domain.WriteRequest{Path: "fresh.csv.zst", Backup: true})
		require.NoError(t, err)

		entries, err := os.ReadDir(f.paths.BackupDir)
		require.NoError(t, err)
		assert.Empty(t, entries)

		summary, err := f.svc.Load(ctx, filepath.Join(f.paths.OutputDir, "fresh.csv.zst"))
		require.Error(t, err, "same content is a duplicate")
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Empty(t, summary.ID)
	})
}

func TestExports(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	ctx := context.Background()
	s := f.load(t, "a.csv", testutil.NewExportBuilder())

	t.Run("workbook", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.svc.ExportWorkbook(ctx, s.ID, &buf))

		wb, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer wb.Close()
		assert.Equal(t, []string{"Header", "Median", "Net MFI", "Count"}, wb.GetSheetList())
	})

	t.Run("long", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := f.svc.ExportLong(ctx, s.ID, &buf, exporter.LongOptions{
			Filter: dataprocessing.DataFilter{Blocks: []string{"Median"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 9, n)

		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, n+1)
	})

	t.Run("summary statistics", func(t *testing.T) {
		summaries, err := f.svc.Summarize(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, summaries, 9)
		assert.Equal(t, "Median", summaries[0].Block)
	})
}

func TestDocumentServiceMetrics(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructure.InitializeOTel(config.TelemetryConfig{Enabled: true, ServiceName: "beadcsv-test"}, io.Discard, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	metrics, err := infrastructure.NewDocumentMetrics(providers.Meter)
	require.NoError(t, err)

	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())
	svc := NewDocumentService(config.DocumentsConfig{}, files.NewManager(paths, logger), providers.Tracer, metrics, logger)

	testutil.NewExportBuilder().WriteFile(t, paths.DataDir, "a.csv")
	testutil.NewExportBuilder().WithoutSentinel().WriteFile(t, paths.DataDir, "bad.csv")

	_, err = svc.Load(context.Background(), "a.csv")
	require.NoError(t, err)
	_, err = svc.Load(context.Background(), "bad.csv")
	require.Error(t, err)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "document_operations_total")
	assert.Contains(t, body, `error_type="MALFORMED_FORMAT"`)
	assert.Contains(t, body, "documents_loaded")
}

type recordingPublisher struct {
	events []events.DocumentEvent
}

func (p *recordingPublisher) Publish(ev events.DocumentEvent) {
	p.events = append(p.events, ev)
}

func TestDocumentEvents(t *testing.T) {
	f := newFixture(t, config.DocumentsConfig{})
	rec := &recordingPublisher{}
	f.svc.SetPublisher(rec)
	ctx := context.Background()

	target := f.load(t, "a.csv", testutil.NewExportBuilder())
	source := f.load(t, "b.csv", testutil.NewExportBuilder().WithSamples(2))

	_, err := f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: source.ID, ShiftLocations: true})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, target.ID, domain.UpdateRequest{SourceID: source.ID})
	require.NoError(t, err)
	dest, err := f.svc.Write(ctx, target.ID, domain.WriteRequest{Path: "merged.csv"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, source.ID))

	// failed operations publish nothing
	_, err = f.svc.Merge(ctx, target.ID, domain.MergeRequest{SourceID: source.ID})
	require.Error(t, err)

	require.Len(t, rec.events, 6)
	types := make([]events.EventType, len(rec.events))
	for i, ev := range rec.events {
		types[i] = ev.Type
		assert.False(t, ev.Timestamp.IsZero())
	}
	assert.Equal(t, []events.EventType{
		events.TypeDocumentLoaded,
		events.TypeDocumentLoaded,
		events.TypeDocumentMerged,
		events.TypeDocumentUpdated,
		events.TypeDocumentWritten,
		events.TypeDocumentDeleted,
	}, types)

	assert.Equal(t, filepath.Join(f.paths.DataDir, "a.csv"), rec.events[0].Path)
	assert.Equal(t, 5, rec.events[2].Samples)
	assert.Equal(t, source.ID, rec.events[2].SourceID)
	assert.Equal(t, 4, rec.events[3].Rows)
	assert.Equal(t, dest, rec.events[4].Path)
	assert.Equal(t, source.ID, rec.events[5].DocumentID)
}
