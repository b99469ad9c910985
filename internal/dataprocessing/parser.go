package dataprocessing

import (
	"io"
	"log/slog"
	"time"

	"beadcsv/internal/files"
)

// ParseOption configures a parse.
type ParseOption func(*parser)

// WithLogger sets the logger for parse diagnostics and later mutations of
// the document.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(p *parser) {
		p.logger = logger
	}
}

type parser struct {
	logger *slog.Logger
}

func newParser(opts []ParseOption) *parser {
	p := &parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "parser"))
	return p
}

// ParseFile reads a bead-array export (plain or .zst) from disk.
func ParseFile(path string, opts ...ParseOption) (*Document, error) {
	rc, err := files.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, withPath(err, path)
	}

	doc, err := newParser(opts).parse(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	doc.path = path
	return doc, nil
}

// Parse reads an export from r.
func Parse(r io.Reader, opts ...ParseOption) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return newParser(opts).parse(data)
}

// ParseBytes parses an export held in memory.
func ParseBytes(data []byte, opts ...ParseOption) (*Document, error) {
	return newParser(opts).parse(data)
}

// parse runs the structural pass (sections, header, sample count) to
// completion before decoding any cell.
func (p *parser) parse(data []byte) (*Document, error) {
	start := time.Now()

	rows, err := tokenizeBytes(data)
	if err != nil {
		return nil, err
	}

	sections, err := LocateSections(rows)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("located blocks",
		slog.Int("rows", len(rows)),
		slog.Int("header_rows", sections.HeaderEnd),
		slog.Any("blocks", sections.Names()))

	header, err := ParseHeader(rows[:sections.HeaderEnd])
	if err != nil {
		return nil, err
	}

	sampleCount, err := InferSampleCount(sections, rows)
	if err != nil {
		return nil, err
	}

	if declared, ok := header.DeclaredSampleCount(); ok && declared != sampleCount {
		p.logger.Warn("declared sample count differs from block layout",
			slog.Int("declared", declared),
			slog.Int("inferred", sampleCount))
	}

	blocks, err := BuildBlocks(rows, sections, sampleCount)
	if err != nil {
		return nil, err
	}
	if last, ok := unrecognizedTrailer(blocks[0].Table); ok {
		p.logger.Warn("no known annotation column after the beads, last column read as a bead",
			slog.String("block", blocks[0].Name),
			slog.String("column", last))
	}

	doc := &Document{
		header:      header,
		sampleCount: sampleCount,
		blocks:      blocks,
		fingerprint: FingerprintOf(data),
		logger:      p.logger,
	}

	p.logger.Info("export parsed",
		slog.Int("samples", sampleCount),
		slog.Int("blocks", len(blocks)),
		slog.Int("beads", len(doc.BeadNames())),
		slog.Duration("duration", time.Since(start)))

	return doc, nil
}
