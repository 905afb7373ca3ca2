package httputil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/logger"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]int{"count": 2}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"count":2}}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/9", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-1"))
	rec := httptest.NewRecorder()

	WriteError(rec, req, apperrors.NotFound("product", "9"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "corr-1", resp.Error.RequestID)
}

func TestWriteError_WrappedSentinel(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("backend: %w", apperrors.ErrServiceUnavail), testLogger())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, rec).Error.Code)
}

func TestWriteError_UnknownIsInternal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("boom"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
}

func TestWriteValidationError(t *testing.T) {
	type form struct {
		Email string `json:"email" validate:"required,email"`
	}
	rec := httptest.NewRecorder()
	WriteValidationError(rec, validator.Validate(form{Email: "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "email")
}

func TestParseID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseID(rec, "42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		_, ok := ParseID(rec, bad)
		assert.False(t, ok, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}
