package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "beadcsv/internal/errors"
)

var (
	wellPattern     = regexp.MustCompile(`^[A-Pa-p]([1-9]|1[0-9]|2[0-4])$`)
	locationPattern = regexp.MustCompile(`^\s*\d+\s*\(.*\)\s*$|^\s*\d+\s*$`)
)

// RequestValidator decodes JSON request bodies and validates them using
// struct tags
type RequestValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewRequestValidator creates a new request validator
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	v := validator.New()

	v.RegisterValidation("well", isWell)
	v.RegisterValidation("location", isLocation)
	v.RegisterValidation("exportpath", isExportPath)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "request_validator")),
	}
}

// Decode reads the JSON body of r into dst and validates it. Unknown
// fields are rejected.
func (m *RequestValidator) Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apierrors.ErrBodyRequired
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierrors.PayloadTooLarge(maxErr.Limit, 0)
		}
		m.logger.DebugContext(r.Context(), "request body rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return apierrors.InvalidRequestWithError(err)
	}

	return m.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (m *RequestValidator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Namespace(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator ensures requests with a body have an allowed content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.Render(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "well":
		return fmt.Sprintf("%s must be a plate well such as A1 or H12", field)
	case "location":
		return fmt.Sprintf("%s must be a location such as 1(1,A1)", field)
	case "exportpath":
		return fmt.Sprintf("%s must be a .csv, .csv.zst or .xlsx path", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isWell(fl validator.FieldLevel) bool {
	return wellPattern.MatchString(fl.Field().String())
}

func isLocation(fl validator.FieldLevel) bool {
	return locationPattern.MatchString(fl.Field().String())
}

func isExportPath(fl validator.FieldLevel) bool {
	path := strings.ToLower(fl.Field().String())
	if path == "" || strings.Contains(path, "..") {
		return false
	}
	return strings.HasSuffix(path, ".csv") || strings.HasSuffix(path, ".csv.zst") || strings.HasSuffix(path, ".xlsx")
}

// QueryParamValidator validates query parameters
type QueryParamValidator struct {
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{errorHandler: errorHandler}
}

// ValidateInts parses every occurrence of param, also accepting comma
// separated lists. Values below min are rejected.
func (v *QueryParamValidator) ValidateInts(w http.ResponseWriter, r *http.Request, param string, min int) ([]int, bool) {
	var out []int
	for _, raw := range splitQuery(r.URL.Query()[param]) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			v.errorHandler.HandleError(w, r, apierrors.FieldError(param, fmt.Sprintf("%s must be a valid integer", param)))
			return nil, false
		}
		if n < min {
			v.errorHandler.HandleError(w, r, apierrors.FieldError(param, fmt.Sprintf("%s must be at least %d", param, min)))
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// Strings returns every occurrence of param, also splitting comma separated lists
func (v *QueryParamValidator) Strings(r *http.Request, param string) []string {
	return splitQuery(r.URL.Query()[param])
}

// ValidateEnum validates an enum query parameter
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	v.errorHandler.HandleError(w, r, apierrors.FieldError(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}

// ValidateBool validates a boolean query parameter
func (v *QueryParamValidator) ValidateBool(w http.ResponseWriter, r *http.Request, param string) (bool, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return false, true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.FieldError(param, fmt.Sprintf("%s must be true or false", param)))
		return false, false
	}
	return b, true
}

func splitQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
