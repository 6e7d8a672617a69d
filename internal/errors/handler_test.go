package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpem/internal/infrastructure"
	"kalpem/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "handle nil error",
			err:        nil,
			wantStatus: http.StatusOK,
		},
		{
			name:       "handle context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "handle wrapped context canceled",
			err:        fmt.Errorf("refresh: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "handle APIError",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "handle unknown chart",
			err:        ErrChartNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeChartNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "handle generic error",
			err:        fmt.Errorf("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-1"))

			handler.HandleError(w, r, tt.err)

			if tt.err == nil {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Zero(t, w.Body.Len())
				return
			}

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, tt.wantTitle, body["title"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/dashboard", body["instance"])
			assert.Equal(t, "trace-1", body["trace_id"])

			testutil.AssertLogged(t, logHandler, slog.LevelError, "request failed")
		})
	}
}

func TestErrorHandler_ValidationDetails(t *testing.T) {
	handler := NewErrorHandler(testutil.DiscardLogger(), false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard?month=Smarch", nil)

	handler.HandleError(w, r, NewValidationErrors([]ValidationError{
		{Field: "month", Message: "must be one of the twelve months"},
	}))

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		ErrorCode string            `json:"error_code"`
		Errors    []ValidationError `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_FAILED", body.ErrorCode)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "month", body.Errors[0].Field)
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{"without stack", false},
		{"with stack", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, tt.includeStack)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/export", nil)
			handler.HandlePanic(w, r, "boom")

			assert.Equal(t, http.StatusInternalServerError, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, TypeInternal, body["type"])
			_, hasPanic := body["panic"]
			assert.Equal(t, tt.includeStack, hasPanic)

			testutil.AssertLogged(t, logHandler, slog.LevelError, "panic recovered")
		})
	}
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	handler := NewErrorHandler(testutil.DiscardLogger(), false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}

func TestProblemDetailsMarshal(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("error_code", "NOT_FOUND").
		WithExtension("status", 999)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusNotFound), body["status"], "extensions cannot override standard members")
	assert.Equal(t, "NOT_FOUND", body["error_code"])
	_, hasDetail := body["detail"]
	assert.False(t, hasDetail)
}

func TestAPIErrorHelpers(t *testing.T) {
	err := ErrValidation("organizer", "too long")
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "Request validation failed", err.Error())

	nf := NotFoundError("chart")
	assert.Equal(t, "chart not found", nf.Message)

	inv := InvalidRequestWithError(fmt.Errorf("bad query"))
	assert.Equal(t, "bad query", inv.Details)
}
