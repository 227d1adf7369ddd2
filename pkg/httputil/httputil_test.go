package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]int{"quantity": 30})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"quantity":30}}`, rec.Body.String())
}

func TestWriteError_BusinessRule(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "req-1"))

	WriteError(rec, req, fmt.Errorf("transfer: %w", apperrors.InsufficientStock("p-1", 2, 5)), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.False(t, e.Retryable)
	assert.Equal(t, "req-1", e.RequestID)
}

func TestWriteError_ConcurrentModificationIsRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteError(rec, req, apperrors.ConcurrentModification("stock", "s-1"), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, decodeError(t, rec).Retryable)
}

func TestWriteError_WrappedSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, fmt.Errorf("get invoice: %w", apperrors.ErrNotFound), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestWriteError_InternalIsLoggedAndHidden(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil)

	WriteError(rec, req, errors.New("connection reset by peer"), l)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", e.Code)
	assert.NotContains(t, e.Message, "connection reset")
	assert.Contains(t, buf.String(), "connection reset by peer")
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, rec).Code)
}

func TestDecodeBody_ValidationFailure(t *testing.T) {
	type body struct {
		Quantity int `json:"quantity" validate:"gt=0"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0}`))

	var dst body
	assert.False(t, DecodeBody(rec, req, &dst, 1024))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)
	assert.Contains(t, e.Fields, "quantity")
}
