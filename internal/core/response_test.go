package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"astroweather/internal/types"
)

func TestJSON_WritesEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	JSON(rec, req, http.StatusOK, APIResponse{Data: map[string]int{"hours": 48}})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var resp struct {
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if resp.Data["hours"] != 48 {
		t.Errorf("unexpected data: %v", resp.Data)
	}
}

func TestError_AppErrorMapsStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()

	Error(rec, req, types.NewAppError(types.ErrCodeNotFoundWindow, "window not found", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeNotFoundWindow) {
		t.Errorf("unexpected error code %q", resp.Error.Code)
	}
	if resp.Error.Message != "window not found" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("unexpected request ID %q", resp.Error.RequestID)
	}
}

func TestError_UnknownErrorIsOpaque500(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	Error(rec, req, errors.New("pgx: connection refused on 10.0.0.5"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("unexpected error code %q", resp.Error.Code)
	}
	if resp.Error.Message != "an unexpected error occurred" {
		t.Errorf("internal detail leaked into message: %q", resp.Error.Message)
	}
}

func TestError_WrappedAppErrorIsUnwrapped(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	inner := types.NewAppError(types.ErrCodeValidationInvalidParam, "hours must be positive", nil)
	Error(rec, req, inner)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
