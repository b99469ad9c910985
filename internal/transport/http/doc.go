// Package http implements the HTTP handlers of the document API. Handlers
// stay thin: they decode and validate requests, call the document service
// and render JSON with go-chi/render.
//
// # Routes
//
//	GET    /api/documents                    list loaded documents
//	POST   /api/documents                    load {"path"} or {"paths"}
//	GET    /api/documents/{id}               summary
//	DELETE /api/documents/{id}
//	GET    /api/documents/{id}/blocks
//	GET    /api/documents/{id}/beads
//	GET    /api/documents/{id}/samples
//	GET    /api/documents/{id}/data          ?block=&sample=
//	GET    /api/documents/{id}/summary       per-bead statistics
//	POST   /api/documents/{id}/merge         {"source_id", "shift_locations", "force"}
//	POST   /api/documents/{id}/update        {"source_id", "pairs", "exclude_wells", "force"}
//	POST   /api/documents/{id}/write         {"path", "backup"}
//	GET    /api/documents/{id}/export.xlsx
//	GET    /api/documents/{id}/export.csv    long format, ?block=&sample=&annotations=&bom=
//
// # Error Handling
//
// Failures are rendered as RFC 7807 problem details by apperrors.ErrorHandler:
//
//	{
//	    "type": "/errors/document/incompatible-schema",
//	    "title": "Incompatible Documents",
//	    "status": 409,
//	    "detail": "bead sets differ",
//	    "instance": "/api/documents/6f1c.../merge",
//	    "trace_id": "..."
//	}
//
// # Testing
//
// Handlers depend on DocumentServiceInterface and are tested against a
// testify mock with httptest.
package http
