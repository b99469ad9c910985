// Package services sits between the HTTP handlers and the document model.
//
// # Available Services
//
//	- DocumentService: registry of parsed exports keyed by generated ids,
//	  with load, merge, update, write and export operations
//	- HealthService: liveness, readiness and version information
//
// # Concurrency
//
// Documents are not safe for concurrent mutation. DocumentService guards
// its registry with a sync.RWMutex: queries and exports share the lock,
// merge, update and delete take it exclusively. LoadMany parses files in
// parallel (bounded by DocumentsConfig.ParallelLoads) before registering
// them under the write lock.
//
// # Observability
//
// Every mutating or exporting operation runs inside an OpenTelemetry span
// named document.<operation> and is counted by infrastructure.DocumentMetrics,
// labelled with the AppError type when it fails:
//
//	summary, err := svc.Load(ctx, "plate1.csv")
//	if errors.Is(err, apperrors.ErrMalformedFormat) {
//	    ...
//	}
//
// # Error Handling
//
// Services return *apperrors.AppError values. Unknown ids are NOT_FOUND;
// loading the same content twice or past MaxDocuments is VALIDATION.
// Handlers translate them with apperrors.ErrorHandler.
package services
