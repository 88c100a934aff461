package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestSetupMetricsRoute_ExposesAllFamilies は全メトリクスが/metricsに出力されることを検証する。
func TestSetupMetricsRoute_ExposesAllFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordInvoiceGenerated("JPY", 120000)
	c.RecordInvoicePreview()
	c.RecordInvoiceOverlap()
	c.RecordWorkspaceProvisioned()
	c.RecordLogin("google", true)
	c.RecordHTTPStatus(http.StatusConflict)
	c.RecordHTTPLatency(25 * time.Millisecond)
	c.RecordCleanup("sessions", 3)

	w := httptest.NewRecorder()
	SetupMetricsRoute(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Result().Body)

	for _, name := range []string{
		"retainerkit_invoices_generated_total",
		"retainerkit_invoiced_cents_total",
		"retainerkit_invoice_previews_total",
		"retainerkit_invoice_overlap_conflicts_total",
		"retainerkit_workspaces_provisioned_total",
		"retainerkit_logins_total",
		"retainerkit_http_status_total",
		"retainerkit_http_request_duration_seconds",
		"retainerkit_cleanup_deleted_total",
	} {
		t.Run(name, func(t *testing.T) {
			if !strings.Contains(string(body), "# TYPE "+name) {
				t.Errorf("%s is not exposed", name)
			}
		})
	}
}

func TestSetupMetricsRoute_OnlyServesMetricsPath(t *testing.T) {
	handler := SetupMetricsRoute(prometheus.NewRegistry())

	for _, path := range []string{"/", "/api/invoices", "/metrics/extra"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}
