package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"beadcsv/internal/config"
	"beadcsv/internal/dataprocessing"
	apperrors "beadcsv/internal/errors"
	"beadcsv/internal/exporter"
	"beadcsv/internal/files"
	"beadcsv/internal/infrastructure"
	"beadcsv/pkg/contracts/domain"
	"beadcsv/pkg/contracts/events"
)

// entry is one registered document
type entry struct {
	id       string
	doc      *dataprocessing.Document
	loadedAt time.Time
}

// DocumentService keeps parsed exports in memory under generated ids.
// Readers share the lock; merge, update and delete are exclusive.
type DocumentService struct {
	mu    sync.RWMutex
	docs  map[string]*entry
	order []string

	cfg        config.DocumentsConfig
	files      *files.Manager
	summarizer *dataprocessing.Summarizer
	tracer     trace.Tracer
	metrics    *infrastructure.DocumentMetrics
	logger     *slog.Logger
	events     EventPublisher
	now        func() time.Time
}

// NewDocumentService creates a document service. tracer and metrics may be nil.
func NewDocumentService(cfg config.DocumentsConfig, fm *files.Manager, tracer trace.Tracer, metrics *infrastructure.DocumentMetrics, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if cfg.ParallelLoads <= 0 {
		cfg.ParallelLoads = 1
	}
	logger = logger.With(slog.String("component", "document_service"))

	return &DocumentService{
		docs:       make(map[string]*entry),
		cfg:        cfg,
		files:      fm,
		summarizer: dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig()),
		tracer:     tracer,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// observe runs fn inside a span and records the operation metrics
func (s *DocumentService) observe(ctx context.Context, op string, fn func(ctx context.Context, span trace.Span) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "document."+op, trace.WithAttributes(attrs...))
	start := time.Now()

	err := fn(ctx, span)

	s.metrics.RecordOperation(ctx, op, time.Since(start), err)
	infrastructure.EndSpan(span, err)
	if err != nil {
		s.logger.WarnContext(ctx, "document operation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.String("error_type", string(apperrors.TypeOf(err))))
	}
	return err
}

// EventPublisher receives document lifecycle events. Publish must not block.
type EventPublisher interface {
	Publish(ev events.DocumentEvent)
}

// SetPublisher routes lifecycle events to p
func (s *DocumentService) SetPublisher(p EventPublisher) {
	s.events = p
}

func (s *DocumentService) publish(ctx context.Context, ev events.DocumentEvent) {
	if s.events == nil {
		return
	}
	ev.Timestamp = s.now().UTC()
	ev.TraceID = infrastructure.GetTraceID(ctx)
	s.events.Publish(ev)
}

func notFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("document %q", id), nil).WithContext("id", id)
}

// lookup must be called with s.mu held
func (s *DocumentService) lookup(id string) (*entry, error) {
	e, ok := s.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func (s *DocumentService) resolve(path string) string {
	if s.files == nil {
		return path
	}
	return s.files.Resolve(path)
}

// resolveOutput places relative destinations in the output directory
func (s *DocumentService) resolveOutput(path string) string {
	if s.files == nil || filepath.IsAbs(path) {
		return path
	}
	return s.files.Resolve(filepath.ToSlash(filepath.Join("output", path)))
}

func (s *DocumentService) parse(ctx context.Context, path string) (*dataprocessing.Document, error) {
	resolved := s.resolve(path)
	logger := infrastructure.LoggerWithContext(ctx, s.logger).With(slog.String("path", resolved))
	return dataprocessing.ParseFile(resolved, dataprocessing.WithLogger(logger))
}

// register must be called with s.mu held for writing
func (s *DocumentService) register(ctx context.Context, doc *dataprocessing.Document) (*entry, error) {
	if s.cfg.MaxDocuments > 0 && len(s.docs) >= s.cfg.MaxDocuments {
		return nil, apperrors.NewAppValidationError("document limit reached").
			WithContext("max_documents", s.cfg.MaxDocuments)
	}

	if !s.cfg.AllowDuplicates {
		fp := doc.Fingerprint()
		for _, id := range s.order {
			if s.docs[id].doc.Fingerprint() == fp {
				return nil, apperrors.NewAppValidationError("document already loaded").
					WithContext("id", id).
					WithContext("fingerprint", fp.String())
			}
		}
	}

	e := &entry{id: uuid.New().String(), doc: doc, loadedAt: s.now().UTC()}
	s.docs[e.id] = e
	s.order = append(s.order, e.id)

	s.metrics.RecordLoaded(ctx, 1, doc.SampleCount())
	s.logger.InfoContext(ctx, "document registered",
		slog.String("id", e.id),
		slog.String("path", doc.Path()),
		slog.Int("samples", doc.SampleCount()))
	return e, nil
}

// Load parses the export at path and registers it. Relative paths resolve
// against the data directory.
func (s *DocumentService) Load(ctx context.Context, path string) (domain.DocumentSummary, error) {
	var summary domain.DocumentSummary
	err := s.observe(ctx, "load", func(ctx context.Context, span trace.Span) error {
		doc, err := s.parse(ctx, path)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("document.samples", doc.SampleCount()))

		s.mu.Lock()
		defer s.mu.Unlock()
		e, err := s.register(ctx, doc)
		if err != nil {
			return err
		}
		summary = summarize(e)
		s.publish(ctx, loadedEvent(e))
		return nil
	}, attribute.String("document.path", path))
	return summary, err
}

// LoadMany parses paths concurrently and registers them in order. Nothing
// is registered unless every file parses and fits.
func (s *DocumentService) LoadMany(ctx context.Context, paths []string) ([]domain.DocumentSummary, error) {
	var summaries []domain.DocumentSummary
	err := s.observe(ctx, "load_many", func(ctx context.Context, span trace.Span) error {
		docs := make([]*dataprocessing.Document, len(paths))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.ParallelLoads)
		for i, path := range paths {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				doc, err := s.parse(gctx, path)
				if err != nil {
					return err
				}
				docs[i] = doc
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		registered := make([]*entry, 0, len(docs))
		for _, doc := range docs {
			e, err := s.register(ctx, doc)
			if err != nil {
				for _, r := range registered {
					s.remove(ctx, r.id)
				}
				return err
			}
			registered = append(registered, e)
		}

		summaries = make([]domain.DocumentSummary, len(registered))
		for i, e := range registered {
			summaries[i] = summarize(e)
			s.publish(ctx, loadedEvent(e))
		}
		span.SetAttributes(attribute.Int("document.count", len(registered)))
		return nil
	}, attribute.Int("document.paths", len(paths)))
	return summaries, err
}

// List returns the registered documents in load order
func (s *DocumentService) List(ctx context.Context) []domain.DocumentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DocumentSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, summarize(s.docs[id]))
	}
	return out
}

// Get returns the summary of one document
func (s *DocumentService) Get(ctx context.Context, id string) (domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return domain.DocumentSummary{}, err
	}
	return summarize(e), nil
}

// Document returns a copy of a registered document
func (s *DocumentService) Document(ctx context.Context, id string) (*dataprocessing.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.doc.Clone(), nil
}

// Delete unregisters a document
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		return err
	}
	s.remove(ctx, id)
	s.publish(ctx, events.DocumentEvent{Type: events.TypeDocumentDeleted, DocumentID: id})
	return nil
}

// remove must be called with s.mu held for writing
func (s *DocumentService) remove(ctx context.Context, id string) {
	e := s.docs[id]
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.metrics.RecordLoaded(ctx, -1, 0)
	s.logger.InfoContext(ctx, "document removed",
		slog.String("id", id),
		slog.String("path", e.doc.Path()))
}

// Blocks returns the block names of a document
func (s *DocumentService) Blocks(ctx context.Context, id string) ([]string, error) {
	return read(s, id, (*dataprocessing.Document).BlockNames)
}

// Beads returns the bead names of a document
func (s *DocumentService) Beads(ctx context.Context, id string) ([]string, error) {
	return read(s, id, (*dataprocessing.Document).BeadNames)
}

// Samples returns the samples of a document
func (s *DocumentService) Samples(ctx context.Context, id string) ([]domain.Sample, error) {
	return read(s, id, (*dataprocessing.Document).Samples)
}

// Data returns the rows selected by filter
func (s *DocumentService) Data(ctx context.Context, id string, filter dataprocessing.DataFilter) ([]dataprocessing.DataRow, error) {
	return read(s, id, func(doc *dataprocessing.Document) []dataprocessing.DataRow {
		rows := []dataprocessing.DataRow{}
		for row := range doc.Data(filter) {
			rows = append(rows, row)
		}
		return rows
	})
}

func read[T any](s *DocumentService, id string, fn func(*dataprocessing.Document) T) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(e.doc), nil
}

// Merge appends the rows of sourceID to targetID
func (s *DocumentService) Merge(ctx context.Context, targetID string, req domain.MergeRequest) (domain.DocumentSummary, error) {
	var summary domain.DocumentSummary
	err := s.observe(ctx, "merge", func(ctx context.Context, span trace.Span) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		target, source, err := s.pair(targetID, req.SourceID)
		if err != nil {
			return err
		}
		if err := target.doc.Merge(source, dataprocessing.MergeOptions{
			ShiftLocations: req.ShiftLocations,
			Force:          req.Force,
		}); err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("document.samples", target.doc.SampleCount()))
		summary = summarize(target)
		s.publish(ctx, events.DocumentEvent{
			Type:       events.TypeDocumentMerged,
			DocumentID: target.id,
			SourceID:   req.SourceID,
			Samples:    target.doc.SampleCount(),
		})
		return nil
	}, attribute.String("document.id", targetID), attribute.String("document.source_id", req.SourceID))
	return summary, err
}

// Update replaces rows of targetID with rows of the source. Without
// explicit pairs rows are matched by well, skipping req.ExcludeWells.
func (s *DocumentService) Update(ctx context.Context, targetID string, req domain.UpdateRequest) (domain.UpdateResult, error) {
	var result domain.UpdateResult
	err := s.observe(ctx, "update", func(ctx context.Context, span trace.Span) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		target, source, err := s.pair(targetID, req.SourceID)
		if err != nil {
			return err
		}

		opts := dataprocessing.UpdateOptions{Force: req.Force}
		applied := req.Pairs
		if len(req.Pairs) > 0 {
			err = target.doc.Update(source, req.Pairs, opts)
		} else {
			applied, err = target.doc.UpdateExcluding(source, req.ExcludeWells, opts)
		}
		if err != nil {
			return err
		}

		if applied == nil {
			applied = []domain.LocationPair{}
		}
		result.Applied = applied
		span.SetAttributes(attribute.Int("document.pairs", len(applied)))
		s.publish(ctx, events.DocumentEvent{
			Type:       events.TypeDocumentUpdated,
			DocumentID: target.id,
			SourceID:   req.SourceID,
			Samples:    target.doc.SampleCount(),
			Rows:       len(applied),
		})
		return nil
	}, attribute.String("document.id", targetID), attribute.String("document.source_id", req.SourceID))
	return result, err
}

// pair looks up a target and its source. A document used as its own
// source is cloned first. Must be called with s.mu held.
func (s *DocumentService) pair(targetID, sourceID string) (*entry, *dataprocessing.Document, error) {
	target, err := s.lookup(targetID)
	if err != nil {
		return nil, nil, err
	}
	source, err := s.lookup(sourceID)
	if err != nil {
		return nil, nil, err
	}
	if source == target {
		return target, source.doc.Clone(), nil
	}
	return target, source.doc, nil
}

// Write serializes a document to path and returns the resolved
// destination. An existing destination is backed up first when asked to
// or when the service is configured to.
func (s *DocumentService) Write(ctx context.Context, id string, req domain.WriteRequest) (string, error) {
	dest := s.resolveOutput(req.Path)
	err := s.observe(ctx, "write", func(ctx context.Context, span trace.Span) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		e, err := s.lookup(id)
		if err != nil {
			return err
		}

		if (req.Backup || s.cfg.BackupOnWrite) && s.files != nil && s.files.FileExists(dest) {
			backup, err := s.files.Backup(dest)
			if err != nil {
				return err
			}
			span.SetAttributes(attribute.String("document.backup", backup))
		}

		write := exporter.WriteDocumentFile
		if strings.EqualFold(filepath.Ext(dest), ".xlsx") {
			write = exporter.WriteWorkbookFile
		}
		if err := write(dest, e.doc); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "document written",
			slog.String("id", id),
			slog.String("path", dest))
		s.publish(ctx, events.DocumentEvent{
			Type:       events.TypeDocumentWritten,
			DocumentID: id,
			Path:       dest,
			Samples:    e.doc.SampleCount(),
		})
		return nil
	}, attribute.String("document.id", id), attribute.String("document.path", dest))
	return dest, err
}

// ExportWorkbook writes a document as an xlsx workbook
func (s *DocumentService) ExportWorkbook(ctx context.Context, id string, w io.Writer) error {
	return s.observe(ctx, "export_xlsx", func(ctx context.Context, span trace.Span) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		e, err := s.lookup(id)
		if err != nil {
			return err
		}
		return exporter.WriteWorkbook(w, e.doc)
	}, attribute.String("document.id", id))
}

// ExportLong writes the long-format CSV of a document
func (s *DocumentService) ExportLong(ctx context.Context, id string, w io.Writer, opts exporter.LongOptions) (int, error) {
	var n int
	err := s.observe(ctx, "export_long", func(ctx context.Context, span trace.Span) error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		e, err := s.lookup(id)
		if err != nil {
			return err
		}
		n, err = exporter.WriteLong(w, e.doc, opts)
		span.SetAttributes(attribute.Int("document.records", n))
		return err
	}, attribute.String("document.id", id))
	return n, err
}

// Summarize computes per-bead statistics of a document
func (s *DocumentService) Summarize(ctx context.Context, id string) ([]dataprocessing.BeadSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.summarizer.Summarize(ctx, e.doc), nil
}

func loadedEvent(e *entry) events.DocumentEvent {
	return events.DocumentEvent{
		Type:       events.TypeDocumentLoaded,
		DocumentID: e.id,
		Path:       e.doc.Path(),
		Samples:    e.doc.SampleCount(),
	}
}

func summarize(e *entry) domain.DocumentSummary {
	h := e.doc.Header()
	return domain.DocumentSummary{
		ID:          e.id,
		Path:        e.doc.Path(),
		Fingerprint: e.doc.Fingerprint().String(),
		LoadedAt:    e.loadedAt,
		SampleCount: e.doc.SampleCount(),
		Blocks:      e.doc.BlockNames(),
		Beads:       e.doc.BeadNames(),
		Template:    h.Template(),
		Metadata:    h.Map(),
		MinEvents:   h.MinEvents(),
	}
}
