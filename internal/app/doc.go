// Package app wires the document API server: configuration, logging,
// OpenTelemetry, services, handlers and middleware, and runs it until
// interrupted.
//
// # Usage
//
//	a, err := app.NewApplication(cfg, logger, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	if err := a.Preload(ctx, paths); err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// Besides the document routes the server exposes /healthz, /metrics and
// the websocket stream GET /api/events, which announces every load, merge,
// update, write and delete.
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Event subscribers are disconnected
// first, then in-flight requests get
// ServerConfig.ShutdownTimeout to complete before telemetry is flushed.
//
// All initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
