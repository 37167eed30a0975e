package api_test

import (
	"net/http"
	"testing"

	"github.com/odinkg/odin/internal/models"
)

func TestLiveness_WithoutDatabase(t *testing.T) {
	t.Parallel()

	w := doRequest(newTestRouter(nil), http.MethodGet, "/api/v1/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	decodeJSON(t, w, &body)

	if body["status"] != "ok" || body["version"] != "test-v1" {
		t.Errorf("body = %v", body)
	}

	if body["database"] != "not_configured" {
		t.Errorf("expected database not_configured, got %v", body["database"])
	}

	if _, ok := body["records"]; ok {
		t.Error("records count reported without a database")
	}
}

func TestLiveness_WithDatabase(t *testing.T) {
	t.Parallel()

	repo := &mockRecords{records: map[string]*models.Record{"http://a": record("http://a", nil)}}
	w := doRequest(newTestRouter(repo), http.MethodGet, "/api/v1/health", "")

	var body map[string]any
	decodeJSON(t, w, &body)

	if body["database"] != "connected" || body["records"] != float64(1) {
		t.Errorf("body = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	w := doRequest(newTestRouter(nil), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
