package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem type URIs
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"

	TypeDecode                  = "/errors/document/decode"
	TypeMalformedFormat         = "/errors/document/malformed"
	TypeInconsistentSampleCount = "/errors/document/sample-count"
	TypeTableShape              = "/errors/document/table-shape"
	TypeIncompatibleSchema      = "/errors/document/incompatible-schema"
	TypeWrite                   = "/errors/document/write"
)

type problemKind struct {
	status int
	uri    string
	title  string
}

var internalProblem = problemKind{http.StatusInternalServerError, TypeInternal, "Internal Server Error"}

var appErrorKinds = map[ErrorType]problemKind{
	ErrTypeNotFound:                {http.StatusNotFound, TypeNotFound, "Resource Not Found"},
	ErrTypeValidation:              {http.StatusUnprocessableEntity, TypeValidation, "Validation Failed"},
	ErrTypeDecode:                  {http.StatusUnprocessableEntity, TypeDecode, "Undecodable Export"},
	ErrTypeMalformedFormat:         {http.StatusUnprocessableEntity, TypeMalformedFormat, "Malformed Export"},
	ErrTypeInconsistentSampleCount: {http.StatusUnprocessableEntity, TypeInconsistentSampleCount, "Inconsistent Sample Count"},
	ErrTypeTableShape:              {http.StatusUnprocessableEntity, TypeTableShape, "Invalid Table Shape"},
	ErrTypeIncompatibleSchema:      {http.StatusConflict, TypeIncompatibleSchema, "Incompatible Documents"},
	ErrTypeWrite:                   {http.StatusInternalServerError, TypeWrite, "Write Failed"},
	ErrTypeConfig:                  {http.StatusInternalServerError, TypeInternal, "Configuration Error"},
}

// problem type URIs by APIError code
var apiErrorURIs = map[string]string{
	"VALIDATION_FAILED":   TypeValidation,
	"INVALID_REQUEST":     TypeValidation,
	"NOT_FOUND":           TypeNotFound,
	"CONFLICT":            TypeConflict,
	"RATE_LIMIT_EXCEEDED": TypeRateLimit,
	"PAYLOAD_TOO_LARGE":   TypePayloadTooLarge,
}

// StatusFor returns the HTTP status err is rendered with.
func StatusFor(err error) int {
	if k, ok := appErrorKinds[TypeOf(err)]; ok {
		return k.status
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders errors as RFC 7807 problem details and logs them.
// With includeStack set, panics and errors carry a stack extension.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err (warn below 500, error otherwise) and writes it as
// a problem response. A nil err writes nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	level := slog.LevelWarn
	if StatusFor(err) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("error_type", string(TypeOf(err))),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	problem := h.ErrorToProblem(err, r)
	if h.includeStack {
		problem.WithExtension("stack", string(debug.Stack()))
	}
	h.respond(w, r, problem)
}

// ErrorToProblem maps err to problem details. Cancellation becomes 504,
// AppErrors and APIErrors keep their status, anything else is a 500.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var (
		appErr *AppError
		apiErr *APIError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request was cancelled before it completed", r.URL.Path)

	case errors.As(err, &appErr):
		k, ok := appErrorKinds[appErr.Type]
		if !ok {
			k = internalProblem
		}
		problem := NewProblemDetails(k.status, k.uri, k.title, appErr.Error(), r.URL.Path).
			WithExtension("error_code", string(appErr.Type))
		if len(appErr.Context) > 0 {
			problem.WithExtension("context", appErr.Context)
		}
		return problem

	case errors.As(err, &apiErr):
		uri, ok := apiErrorURIs[apiErr.ErrorCode]
		if !ok {
			uri = TypeInternal
		}
		problem := NewProblemDetails(apiErr.StatusCode, uri, http.StatusText(apiErr.StatusCode),
			apiErr.Message, r.URL.Path).
			WithExtension("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			problem.WithExtension("details", apiErr.Details)
		}
		return problem
	}

	return NewProblemDetails(internalProblem.status, internalProblem.uri, internalProblem.title,
		"An unexpected error occurred while processing the request", r.URL.Path)
}

// HandlePanic logs a recovered panic with its stack and answers 500
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	stack := string(debug.Stack())
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack))

	problem := NewProblemDetails(internalProblem.status, internalProblem.uri, internalProblem.title,
		"An unexpected error occurred", r.URL.Path)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprint(recovered))
		problem.WithExtension("stack", stack)
	}
	h.respond(w, r, problem)
}

// NotFound is the router's 404 handler
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"No route matches "+r.URL.Path, r.URL.Path))
}

// MethodNotAllowed is the router's 405 handler
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeInternal, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}

// respond tags problem with the request id and renders it
func (h *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, problem *ProblemDetails) {
	problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, problem)
}

// RecoveryMiddleware turns panics in next into problem responses
func RecoveryMiddleware(handler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					handler.HandlePanic(w, r, rec)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
