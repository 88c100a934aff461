package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/retainerkit/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusConflict, model.NewInvoiceOverlapError(model.NewDate(2024, 1, 1), model.NewDate(2024, 1, 31)))

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	for _, field := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
	if raw["code"] != model.ErrCodeInvoiceOverlap || raw["category"] != model.CategoryConflict {
		t.Errorf("body = %v", raw)
	}
}

// TestWriteInternalServerError は内部エラーの詳細を返さないことを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" || body.Message != "Internal server error." || body.Category != model.CategorySystem {
		t.Errorf("body = %+v", body)
	}
	if body.Action == "" {
		t.Error("action should not be empty")
	}
}

func TestStatusCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{"validation", model.NewValidationError("bad"), http.StatusBadRequest},
		{"no updates", model.NewNoUpdatesError(), http.StatusBadRequest},
		{"not found", model.NewNotFoundError("Client"), http.StatusNotFound},
		{"overlap", model.NewInvoiceOverlapError(model.Date{}, model.Date{}), http.StatusConflict},
		{"duplicate", model.NewDuplicateError("Client"), http.StatusConflict},
		{"unauthorized", model.NewUnauthorizedError(), http.StatusUnauthorized},
		{"forbidden", model.NewForbiddenError(), http.StatusForbidden},
		{"client not assigned", model.NewClientNotAssignedError(), http.StatusNotFound},
		{"unknown category", &model.APIError{Code: "X", Category: "other"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCodeFor(tt.err); got != tt.want {
				t.Errorf("StatusCodeFor(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}
