package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad body")
	assert.Equal(t, "bad body", err.Error())
}

func TestNewWithDetails(t *testing.T) {
	tests := []struct {
		name    string
		details interface{}
	}{
		{name: "string details", details: "path is required"},
		{name: "struct details", details: ValidationError{Field: "path", Message: "required"}},
		{name: "nil details", details: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", tt.details)

			assert.Equal(t, http.StatusBadRequest, err.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)
			assert.Equal(t, tt.details, err.Details)
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrBodyRequired, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
		})
	}
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(fmt.Errorf("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "unexpected EOF", err.Details)
}

func TestFieldError(t *testing.T) {
	err := FieldError("source_id", "must be a uuid")

	details, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "source_id", details.Field)
	assert.Equal(t, "must be a uuid", details.Message)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "path", Message: "required"},
		{Field: "pairs", Message: "min 1"},
	})

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}

func TestPayloadTooLarge(t *testing.T) {
	err := PayloadTooLarge(1024, 4096)
	assert.Equal(t, http.StatusRequestEntityTooLarge, err.StatusCode)
	assert.Equal(t, map[string]interface{}{"max_size": int64(1024), "size": int64(4096)}, err.Details)

	err = PayloadTooLarge(1024, 0)
	assert.Equal(t, map[string]interface{}{"max_size": int64(1024)}, err.Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusConflict, TypeIncompatibleSchema, "Incompatible Documents", "", "/api/documents/1/merge").
		WithExtension("error_code", "INCOMPATIBLE_SCHEMA")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, TypeIncompatibleSchema, out["type"])
	assert.Equal(t, float64(http.StatusConflict), out["status"])
	assert.Equal(t, "INCOMPATIBLE_SCHEMA", out["error_code"])
	assert.NotContains(t, out, "detail")
}
