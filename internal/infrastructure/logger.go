package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"beadcsv/internal/config"
)

// process-wide logger state, set once by InitializeLogger
var (
	mu       sync.Mutex
	global   *slog.Logger
	logFile  *os.File
	initDone bool
)

// InitializeLogger builds the process logger from cfg, installs it as the
// slog default and returns it. Later calls return the first logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()
	if initDone {
		return global, nil
	}

	out, file, err := logDestination(cfg)
	if err != nil {
		return nil, err
	}
	global = NewLogger(cfg, out)
	logFile = file
	initDone = true
	slog.SetDefault(global)
	return global, nil
}

// GetLogger returns the process logger, or slog.Default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return slog.Default()
	}
	return global
}

// NewLogger returns a JSON logger on out. Records logged with a context
// carrying a trace id get a trace_id attribute.
func NewLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Development {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	return slog.New(traceHandler{slog.NewJSONHandler(out, opts)})
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting forgets the process logger so the next
// InitializeLogger call builds a new one.
func ResetLoggerForTesting() {
	CloseLogFile()
	mu.Lock()
	global, initDone = nil, false
	mu.Unlock()
}

// logDestination returns the writer for cfg.Output. stdout is left to
// command output, so console logging goes to stderr.
func logDestination(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return os.Stderr, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.FilePath, err)
	}
	if output == "both" {
		return io.MultiWriter(os.Stderr, f), f, nil
	}
	return f, f, nil
}

// traceHandler adds the context's trace id to every record
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

// parseLogLevel accepts slog level names in any case plus "warning".
// Unknown names mean info.
func parseLogLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
