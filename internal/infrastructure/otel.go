package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"beadcsv/internal/config"
	apperrors "beadcsv/internal/errors"
)

// InstrumentationName names the tracer and meter of this module.
const InstrumentationName = "beadcsv"

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// always usable; they are no-ops when telemetry is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and a Prometheus-backed meter. Spans are
// written to traceOut when cfg.TraceStdout is set.
func InitializeOTel(cfg config.TelemetryConfig, traceOut io.Writer, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()
	providers := &OTelProviders{
		Tracer:         otel.Tracer(InstrumentationName),
		Meter:          otel.Meter(InstrumentationName),
		PrometheusHTTP: http.NotFoundHandler(),
		Logger:         logger,
	}
	if !cfg.Enabled {
		logger.InfoContext(ctx, "OpenTelemetry disabled")
		return providers, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("service.instance.id", instanceID()),
	)

	if err := initializeTracing(cfg, traceOut, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.Bool("trace_stdout", cfg.TraceStdout))
	return providers, nil
}

func initializeTracing(cfg config.TelemetryConfig, out io.Writer, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceStdout {
		if out == nil {
			out = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func instanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// DocumentMetrics are the instruments of document operations.
type DocumentMetrics struct {
	Operations        metric.Int64Counter
	OperationErrors   metric.Int64Counter
	OperationDuration metric.Float64Histogram
	DocumentsLoaded   metric.Int64UpDownCounter
	SamplesProcessed  metric.Int64Counter
}

// NewDocumentMetrics creates the document instruments on meter.
func NewDocumentMetrics(meter metric.Meter) (*DocumentMetrics, error) {
	operations, err := meter.Int64Counter(
		"document_operations_total",
		metric.WithDescription("Document operations by kind (load, merge, update, write, export)"),
	)
	if err != nil {
		return nil, err
	}

	operationErrors, err := meter.Int64Counter(
		"document_operation_errors_total",
		metric.WithDescription("Failed document operations by kind and error type"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"document_operation_duration_seconds",
		metric.WithDescription("Document operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	loaded, err := meter.Int64UpDownCounter(
		"documents_loaded",
		metric.WithDescription("Documents currently held in memory"),
	)
	if err != nil {
		return nil, err
	}

	samples, err := meter.Int64Counter(
		"document_samples_processed_total",
		metric.WithDescription("Samples read from parsed exports"),
	)
	if err != nil {
		return nil, err
	}

	return &DocumentMetrics{
		Operations:        operations,
		OperationErrors:   operationErrors,
		OperationDuration: duration,
		DocumentsLoaded:   loaded,
		SamplesProcessed:  samples,
	}, nil
}

// RecordOperation records one finished operation of kind op.
func (m *DocumentMetrics) RecordOperation(ctx context.Context, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("operation", op), attribute.String("status", status))
	m.Operations.Add(ctx, 1, attrs)
	m.OperationDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		errType := string(apperrors.TypeOf(err))
		if errType == "" {
			errType = "UNKNOWN"
		}
		m.OperationErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("error.type", errType)))
	}
}

// RecordLoaded adjusts the number of documents held and counts samples.
func (m *DocumentMetrics) RecordLoaded(ctx context.Context, delta int64, samples int) {
	if m == nil {
		return
	}
	m.DocumentsLoaded.Add(ctx, delta)
	if samples > 0 {
		m.SamplesProcessed.Add(ctx, int64(samples))
	}
}

// EndSpan records err on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceIDFromContext extracts the OpenTelemetry trace id, if any.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}
