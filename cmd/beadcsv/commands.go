package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"beadcsv/internal/app"
	"beadcsv/internal/dataprocessing"
	"beadcsv/internal/exporter"
	"beadcsv/internal/files"
	"beadcsv/internal/infrastructure"
	"beadcsv/pkg/contracts/domain"
)

func (c *cli) parseDocument(path string) (*dataprocessing.Document, error) {
	return dataprocessing.ParseFile(path, dataprocessing.WithLogger(c.logger.With(slog.String("path", path))))
}

// parseAll parses paths concurrently and returns the documents in order
func (c *cli) parseAll(ctx context.Context, paths []string) ([]*dataprocessing.Document, error) {
	docs := make([]*dataprocessing.Document, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Documents.ParallelLoads)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := c.parseDocument(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// checkPaths validates every input with validate and, when out is set,
// the destination
func (c *cli) checkPaths(out string, validate func(string) error, inputs ...string) error {
	for _, in := range inputs {
		if err := validate(in); err != nil {
			return err
		}
	}
	if out == "" {
		return nil
	}
	return c.validator.ValidateOutputPath(out)
}

// writeDocument picks the writer by extension: .xlsx is a workbook,
// anything else the vendor CSV layout (.zst compressed)
func writeDocument(path string, doc *dataprocessing.Document) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return exporter.WriteWorkbookFile(path, doc)
	}
	return exporter.WriteDocumentFile(path, doc)
}

type inspectReport struct {
	Path            string                       `json:"path"`
	Fingerprint     string                       `json:"fingerprint"`
	Template        domain.TemplateIdentity      `json:"template"`
	Metadata        map[string]string            `json:"metadata"`
	SampleCount     int                          `json:"sample_count"`
	DeclaredSamples *int                         `json:"declared_samples,omitempty"`
	MinEvents       int                          `json:"min_events"`
	Blocks          []string                     `json:"blocks"`
	Beads           []string                     `json:"beads"`
	Samples         []domain.Sample              `json:"samples"`
	Stats           []dataprocessing.BeadSummary `json:"stats,omitempty"`
}

func (c *cli) inspect(ctx context.Context, args []string) error {
	fs := c.flagSet("inspect", "FILE")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	stats := fs.Bool("stats", false, "include per-bead statistics")
	statsOut := fs.StringP("stats-out", "s", "", "also write per-bead statistics to a .csv or .json file")
	if err := c.parse(fs, args, 1, 1); err != nil {
		return err
	}
	if err := c.checkPaths(*statsOut, c.validator.ValidateExport, fs.Arg(0)); err != nil {
		return err
	}

	doc, err := c.parseDocument(fs.Arg(0))
	if err != nil {
		return err
	}

	h := doc.Header()
	report := inspectReport{
		Path:        doc.Path(),
		Fingerprint: doc.Fingerprint().String(),
		Template:    h.Template(),
		Metadata:    h.Map(),
		SampleCount: doc.SampleCount(),
		MinEvents:   h.MinEvents(),
		Blocks:      doc.BlockNames(),
		Beads:       doc.BeadNames(),
		Samples:     doc.Samples(),
	}
	if n, ok := h.DeclaredSampleCount(); ok {
		report.DeclaredSamples = &n
	}

	if *stats || *statsOut != "" {
		summarizer := dataprocessing.NewSummarizer(c.logger, dataprocessing.DefaultSummarizerConfig())
		summaries := summarizer.Summarize(ctx, doc)
		if *stats {
			report.Stats = summaries
		}
		if *statsOut != "" {
			write := summarizer.WriteCSV
			if strings.EqualFold(filepath.Ext(*statsOut), ".json") {
				write = summarizer.WriteJSON
			}
			if err := write(ctx, *statsOut, summaries); err != nil {
				return err
			}
		}
	}

	if *asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(c, report)
}

func printReport(c *cli, r inspectReport) error {
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", r.Path)
	fmt.Fprintf(tw, "Fingerprint:\t%s\n", r.Fingerprint)
	fmt.Fprintf(tw, "Template:\t%s %s (version %s)\n", r.Template.ID, r.Template.Name, r.Template.Version)
	for _, f := range []domain.MetadataField{domain.FieldDate, domain.FieldSN, domain.FieldOperator, domain.FieldSession} {
		if v := r.Metadata[string(f)]; v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", f, v)
		}
	}
	if r.DeclaredSamples != nil && *r.DeclaredSamples != r.SampleCount {
		fmt.Fprintf(tw, "Samples:\t%d (header declares %d)\n", r.SampleCount, *r.DeclaredSamples)
	} else {
		fmt.Fprintf(tw, "Samples:\t%d\n", r.SampleCount)
	}
	fmt.Fprintf(tw, "Min events:\t%d\n", r.MinEvents)
	fmt.Fprintf(tw, "Blocks:\t%s\n", strings.Join(r.Blocks, ", "))
	fmt.Fprintf(tw, "Beads:\t%s\n", strings.Join(r.Beads, ", "))

	if len(r.Stats) > 0 {
		fmt.Fprintf(tw, "\nBlock\tBead\tNumeric\tFlagged\tMin\tMedian\tMax\n")
		for _, s := range r.Stats {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%g\t%g\t%g\n", s.Block, s.Bead, s.Numeric, s.Flagged, s.Min, s.Median, s.Max)
		}
	}
	return tw.Flush()
}

func (c *cli) merge(ctx context.Context, args []string) error {
	fs := c.flagSet("merge", "TARGET SOURCE... -o OUT")
	out := fs.StringP("output", "o", "", "destination (.csv, .csv.zst or .xlsx)")
	shift := fs.Bool("shift-locations", true, "renumber source locations after the rows already present")
	force := fs.Bool("force", false, "merge even when beads, blocks or template differ")
	if err := c.parse(fs, args, 2, -1); err != nil {
		return err
	}
	if err := requireOutput(fs, *out); err != nil {
		return err
	}

	if err := c.checkPaths(*out, c.validator.ValidateExport, fs.Args()...); err != nil {
		return err
	}

	docs, err := c.parseAll(ctx, fs.Args())
	if err != nil {
		return err
	}
	target, err := mergeInto(docs, dataprocessing.MergeOptions{ShiftLocations: *shift, Force: *force}, fs.Args())
	if err != nil {
		return err
	}
	if err := writeDocument(*out, target); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "merged %d files, %d samples -> %s\n", len(docs), target.SampleCount(), *out)
	return nil
}

// mergeInto merges docs[1:] into docs[0] in order
func mergeInto(docs []*dataprocessing.Document, opts dataprocessing.MergeOptions, names []string) (*dataprocessing.Document, error) {
	target := docs[0]
	for i, source := range docs[1:] {
		if err := target.Merge(source, opts); err != nil {
			return nil, fmt.Errorf("%s: %w", names[i+1], err)
		}
	}
	return target, nil
}

func (c *cli) update(ctx context.Context, args []string) error {
	fs := c.flagSet("update", "TARGET SOURCE -o OUT")
	out := fs.StringP("output", "o", "", "destination (.csv, .csv.zst or .xlsx)")
	rawPairs := fs.StringArrayP("pair", "p", nil, `SOURCE=TARGET location pair, e.g. "1(1,A1)=3(1,C1)" (repeatable)`)
	exclude := fs.StringSlice("exclude-well", nil, "wells left untouched when matching by well")
	force := fs.Bool("force", false, "update even when beads, blocks or template differ")
	if err := c.parse(fs, args, 2, 2); err != nil {
		return err
	}
	if err := requireOutput(fs, *out); err != nil {
		return err
	}

	pairs, err := parsePairs(*rawPairs)
	if err != nil {
		return err
	}
	if err := c.checkPaths(*out, c.validator.ValidateExport, fs.Args()...); err != nil {
		return err
	}

	docs, err := c.parseAll(ctx, fs.Args())
	if err != nil {
		return err
	}
	target, source := docs[0], docs[1]
	opts := dataprocessing.UpdateOptions{Force: *force}

	if len(pairs) > 0 {
		err = target.Update(source, pairs, opts)
	} else {
		pairs, err = target.UpdateExcluding(source, *exclude, opts)
	}
	if err != nil {
		return err
	}

	if err := writeDocument(*out, target); err != nil {
		return err
	}
	for _, p := range pairs {
		fmt.Fprintf(c.stdout, "%s <- %s\n", p.Target, p.Source)
	}
	fmt.Fprintf(c.stdout, "updated %d rows -> %s\n", len(pairs), *out)
	return nil
}

func parsePairs(raw []string) ([]domain.LocationPair, error) {
	pairs := make([]domain.LocationPair, 0, len(raw))
	for _, r := range raw {
		src, dst, ok := strings.Cut(r, "=")
		src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
		if !ok || src == "" || dst == "" {
			return nil, usagef("invalid pair %q, want SOURCE=TARGET", r)
		}
		pairs = append(pairs, domain.LocationPair{Source: src, Target: dst})
	}
	return pairs, nil
}

func (c *cli) combine(ctx context.Context, args []string) error {
	fs := c.flagSet("combine", "DIR -o OUT")
	out := fs.StringP("output", "o", "", "destination (.csv, .csv.zst or .xlsx)")
	parallel := fs.Int("parallel", 0, "files parsed concurrently (default from config)")
	force := fs.Bool("force", false, "combine even when beads, blocks or template differ")
	glob := fs.String("glob", "*", "only combine exports whose name matches this pattern")
	if err := c.parse(fs, args, 1, 1); err != nil {
		return err
	}
	if err := requireOutput(fs, *out); err != nil {
		return err
	}
	if *parallel > 0 {
		c.cfg.Documents.ParallelLoads = *parallel
	}

	if err := c.checkPaths(*out, c.validator.ValidateInputDirectory, fs.Arg(0)); err != nil {
		return err
	}

	found, err := files.NewDiscovery("").FindFilesByPattern(fs.Arg(0), *glob)
	if err != nil {
		return err
	}
	outAbs, _ := filepath.Abs(*out)
	paths := make([]string, 0, len(found))
	for _, f := range found {
		if abs, _ := filepath.Abs(f.Path); abs == outAbs {
			continue
		}
		paths = append(paths, f.Path)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no exports found in %s", fs.Arg(0))
	}
	c.logger.InfoContext(ctx, "exports discovered",
		slog.String("dir", fs.Arg(0)),
		slog.Int("files", len(paths)))

	docs, err := c.parseAll(ctx, paths)
	if err != nil {
		return err
	}
	target, err := mergeInto(docs, dataprocessing.MergeOptions{ShiftLocations: true, Force: *force}, paths)
	if err != nil {
		return err
	}
	if err := writeDocument(*out, target); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "combined %d files, %d samples -> %s\n", len(docs), target.SampleCount(), *out)
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := c.flagSet("export", "FILE -o OUT")
	out := fs.StringP("output", "o", "", "destination file")
	format := fs.StringP("format", "f", "auto", "auto, csv, xlsx or long")
	blocks := fs.StringArray("block", nil, "long format: only this block (repeatable)")
	samples := fs.IntSlice("sample", nil, "long format: only these 1-based samples")
	annotations := fs.Bool("annotations", false, `long format: include columns such as "Total Events"`)
	bom := fs.Bool("bom", false, "long format: start with a UTF-8 byte order mark")
	if err := c.parse(fs, args, 1, 1); err != nil {
		return err
	}
	if err := requireOutput(fs, *out); err != nil {
		return err
	}

	if err := c.checkPaths(*out, c.validator.ValidateExport, fs.Arg(0)); err != nil {
		return err
	}

	doc, err := c.parseDocument(fs.Arg(0))
	if err != nil {
		return err
	}

	switch f := strings.ToLower(*format); f {
	case "auto":
		err = writeDocument(*out, doc)
	case "csv":
		err = exporter.WriteDocumentFile(*out, doc)
	case "xlsx":
		err = exporter.WriteWorkbookFile(*out, doc)
	case "long":
		var n int
		n, err = exporter.NewCSVWriter(nil, c.logger).ExportLong(*out, doc, exporter.LongOptions{
			Filter:      dataprocessing.DataFilter{Blocks: *blocks, Samples: *samples},
			Annotations: *annotations,
			BOMPrefix:   *bom,
		})
		if err == nil {
			fmt.Fprintf(c.stdout, "%d records -> %s\n", n, *out)
			return nil
		}
	default:
		return usagef("export: unknown format %q", f)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "exported %s -> %s\n", fs.Arg(0), *out)
	return nil
}

func (c *cli) collaborators(ctx context.Context, args []string) error {
	fs := c.flagSet("collaborators", "FILE... -o OUT")
	out := fs.StringP("output", "o", "", "destination CSV")
	if err := c.parse(fs, args, 1, -1); err != nil {
		return err
	}
	if err := requireOutput(fs, *out); err != nil {
		return err
	}

	if err := c.checkPaths(*out, c.validator.ValidateTable, fs.Args()...); err != nil {
		return err
	}

	tables := make([]*dataprocessing.CollaboratorTable, 0, fs.NArg())
	for _, path := range fs.Args() {
		t, err := dataprocessing.ReadCollaboratorFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		tables = append(tables, t)
	}

	join := dataprocessing.JoinCollaborators(tables...)
	if err := exporter.NewCSVWriter(nil, c.logger).ExportCollaborators(*out, join); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "joined %d tables, %d alleles -> %s\n", len(tables), len(join.Rows), *out)
	return nil
}

func (c *cli) serve(ctx context.Context, args []string) error {
	fs := c.flagSet("serve", "[--port N] [--preload FILE]...")
	port := fs.Int("port", 0, "listen port (default from config)")
	preload := fs.StringArray("preload", nil, "export loaded before serving, relative to the data directory (repeatable)")
	if err := c.parse(fs, args, 0, 0); err != nil {
		return err
	}
	if *port > 0 {
		c.cfg.Server.Port = *port
	}

	logger, err := infrastructure.InitializeLogger(c.cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	a, err := app.NewApplication(c.cfg, logger, c.stdout)
	if err != nil {
		return err
	}
	if err := a.Preload(ctx, *preload); err != nil {
		return err
	}
	return a.Run(ctx)
}
