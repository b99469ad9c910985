package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"beadcsv/internal/config"
	"beadcsv/internal/errors"
	"beadcsv/internal/files"
	"beadcsv/internal/infrastructure"
	custommw "beadcsv/internal/middleware"
	"beadcsv/internal/services"
	handlers "beadcsv/internal/transport/http"
	"beadcsv/internal/websocket"
)

const AppName = "beadcsv"

// Version is set at build time with -ldflags "-X beadcsv/internal/app.Version=..."
var Version = "dev"

// Application represents the HTTP server and everything it depends on
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Documents     *services.DocumentService
	HealthService *services.HealthService
	Events        *websocket.Hub
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *errors.ErrorHandler
}

// NewApplication wires services, handlers and middleware for cfg. Spans
// are written to traceOut when cfg.Telemetry.TraceStdout is set.
func NewApplication(cfg *config.Config, logger *slog.Logger, traceOut io.Writer) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = Version
	}
	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, traceOut, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() error {
	metrics, err := infrastructure.NewDocumentMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create document metrics: %w", err)
	}

	a.Documents = services.NewDocumentService(
		a.Config.Documents,
		files.NewManager(a.Paths, a.Logger),
		a.OTelProviders.Tracer,
		metrics,
		a.Logger,
	)
	a.Events = websocket.NewHub(a.Logger)
	a.Events.Start()
	a.Documents.SetPublisher(a.Events)

	a.HealthService = services.NewHealthService(Version, a.Paths, a.Documents, a.Logger)
	return nil
}

// setupRouter applies middleware in the order
// RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → RateLimit → MaxBody
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.ErrorHandler))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.StripSlashes)

	// Scrapes and probes bypass rate limiting
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/healthz/ready", healthHandler.ReadinessCheck)
	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(a.OTelProviders))

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if a.Config.Server.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}
		r.Use(custommw.MaxBodySize(a.Config.Server.MaxBodyBytes, a.ErrorHandler))

		r.Get("/version", healthHandler.Version)
		r.Method(http.MethodGet, "/events", websocket.NewHandler(a.Events, a.Logger))
		r.Mount("/documents", handlers.NewDocumentHandler(a.Documents, a.Logger, a.ErrorHandler).Routes())
	})

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Preload registers the given exports before the server starts
func (a *Application) Preload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	docs, err := a.Documents.LoadMany(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to preload documents: %w", err)
	}
	a.Logger.InfoContext(ctx, "documents preloaded", slog.Int("count", len(docs)))
	return nil
}

// Start begins serving in the background. A listener failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop drains the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not closed by Shutdown
	a.Events.Stop()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until SIGINT, SIGTERM or a listener failure
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	// ctx may already be cancelled here
	return a.Stop(context.WithoutCancel(ctx))
}

func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Output":  a.Paths.OutputDir,
		"Backups": a.Paths.BackupDir,
		"Logs":    a.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
