package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"beadcsv/internal/dataprocessing"
	apierrors "beadcsv/internal/errors"
	"beadcsv/internal/exporter"
	custommw "beadcsv/internal/middleware"
	"beadcsv/pkg/contracts/domain"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// DocumentHandler handles document HTTP requests with RFC 7807 errors
type DocumentHandler struct {
	service      DocumentServiceInterface
	validator    *custommw.RequestValidator
	query        *custommw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service DocumentServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DocumentHandler {
	return &DocumentHandler{
		service:      service,
		validator:    custommw.NewRequestValidator(logger),
		query:        custommw.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "document_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the document routes
func (h *DocumentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(custommw.ContentTypeValidator("application/json"))

	r.Get("/", h.List)
	r.Post("/", h.Load)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DocumentCtx)
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)

		r.Get("/blocks", h.Blocks)
		r.Get("/beads", h.Beads)
		r.Get("/samples", h.Samples)
		r.Get("/data", h.Data)
		r.Get("/summary", h.Summary)

		r.Post("/merge", h.Merge)
		r.Post("/update", h.Update)
		r.Post("/write", h.Write)

		r.Get("/export.xlsx", h.ExportWorkbook)
		r.Get("/export.csv", h.ExportLong)
	})
	return r
}

// DocumentCtx validates the document id parameter
func (h *DocumentHandler) DocumentCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "id")); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.FieldError("id", "Document id must be a UUID"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *DocumentHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.DebugContext(r.Context(), "document request failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())))
	h.errorHandler.HandleError(w, r, err)
}

// List handles GET /api/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs := h.service.List(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   docs,
		"count":  len(docs),
	})
}

// Load handles POST /api/documents with either {"path"} or {"paths"}
func (h *DocumentHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req domain.LoadDocumentRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if len(req.Paths) > 0 {
		docs, err := h.service.LoadMany(r.Context(), req.Paths)
		if err != nil {
			h.fail(w, r, "load_many", err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]interface{}{
			"status": "success",
			"data":   docs,
			"count":  len(docs),
		})
		return
	}

	doc, err := h.service.Load(r.Context(), req.Path)
	if err != nil {
		h.fail(w, r, "load", err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   doc,
	})
}

// Get handles GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   doc,
	})
}

// Delete handles DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Blocks handles GET /api/documents/{id}/blocks
func (h *DocumentHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Blocks(r.Context(), chi.URLParam(r, "id"))
	respondList(h, w, r, names, err)
}

// Beads handles GET /api/documents/{id}/beads
func (h *DocumentHandler) Beads(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.Beads(r.Context(), chi.URLParam(r, "id"))
	respondList(h, w, r, names, err)
}

// Samples handles GET /api/documents/{id}/samples
func (h *DocumentHandler) Samples(w http.ResponseWriter, r *http.Request) {
	samples, err := h.service.Samples(r.Context(), chi.URLParam(r, "id"))
	respondList(h, w, r, samples, err)
}

// Data handles GET /api/documents/{id}/data?block=&sample=
func (h *DocumentHandler) Data(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Data(r.Context(), chi.URLParam(r, "id"), filter)
	respondList(h, w, r, rows, err)
}

// Summary handles GET /api/documents/{id}/summary
func (h *DocumentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Summarize(r.Context(), chi.URLParam(r, "id"))
	respondList(h, w, r, summaries, err)
}

func respondList[T any](h *DocumentHandler, w http.ResponseWriter, r *http.Request, items []T, err error) {
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   items,
		"count":  len(items),
	})
}

func (h *DocumentHandler) filter(w http.ResponseWriter, r *http.Request) (dataprocessing.DataFilter, bool) {
	samples, ok := h.query.ValidateInts(w, r, "sample", 1)
	if !ok {
		return dataprocessing.DataFilter{}, false
	}
	return dataprocessing.DataFilter{
		Blocks:  h.query.Strings(r, "block"),
		Samples: samples,
	}, true
}

// Merge handles POST /api/documents/{id}/merge
func (h *DocumentHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req domain.MergeRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	doc, err := h.service.Merge(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "merge", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   doc,
	})
}

// Update handles POST /api/documents/{id}/update
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result.Applied),
	})
}

// Write handles POST /api/documents/{id}/write
func (h *DocumentHandler) Write(w http.ResponseWriter, r *http.Request) {
	var req domain.WriteRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dest, err := h.service.Write(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "write", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"path": dest},
	})
}

// ExportWorkbook handles GET /api/documents/{id}/export.xlsx
func (h *DocumentHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.service.ExportWorkbook(r.Context(), id, &buf); err != nil {
		h.fail(w, r, "export_xlsx", err)
		return
	}
	h.attach(w, r, contentTypeXLSX, id+".xlsx", &buf)
}

// ExportLong handles GET /api/documents/{id}/export.csv?block=&sample=&annotations=&bom=
func (h *DocumentHandler) ExportLong(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	annotations, ok := h.query.ValidateBool(w, r, "annotations")
	if !ok {
		return
	}
	bom, ok := h.query.ValidateBool(w, r, "bom")
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	n, err := h.service.ExportLong(r.Context(), id, &buf, exporter.LongOptions{
		Filter:      filter,
		Annotations: annotations,
		BOMPrefix:   bom,
	})
	if err != nil {
		h.fail(w, r, "export_long", err)
		return
	}
	w.Header().Set("X-Record-Count", strconv.Itoa(n))
	h.attach(w, r, contentTypeCSV, id+".csv", &buf)
}

func (h *DocumentHandler) attach(w http.ResponseWriter, r *http.Request, contentType, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export response interrupted",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}
