package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExportMonth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
		ok    bool
	}{
		{"explicit month", "?month=2026-03", "2026-03", true},
		{"default to current month", "", time.Now().UTC().Format("2006-01"), true},
		{"malformed month", "?month=March", "March", false},
		{"date instead of month", "?month=2026-03-01", "2026-03-01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/exports/payroll.xlsx"+tt.query, nil)
			month, ok := exportMonth(req)
			if ok != tt.ok {
				t.Errorf("exportMonth() ok = %v, want %v", ok, tt.ok)
			}
			if ok && month != tt.want {
				t.Errorf("exportMonth() = %s, want %s", month, tt.want)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "EXPORT_FAILED"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] != "EXPORT_FAILED" {
		t.Errorf("Expected error EXPORT_FAILED, got %v", body["error"])
	}
}
