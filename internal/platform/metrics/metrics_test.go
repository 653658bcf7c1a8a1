package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryExposesCounters(t *testing.T) {
	reg := NewRegistry()
	reg.CommitSucceeded(0.2)
	reg.CommitPartial()
	reg.CatalogFallback("Productos")
	reg.SequenceFallback()
	reg.DialogEvent("callback")

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"orderbot_orders_committed_total 1",
		"orderbot_orders_partial_total 1",
		`orderbot_catalog_fallbacks_total{entity="Productos"} 1`,
		"orderbot_sequence_fallbacks_total 1",
		`orderbot_dialog_events_total{kind="callback"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, text)
		}
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	reg.CommitSucceeded(1)
	reg.CommitPartial()
	reg.CommitRecovered()
	reg.CommitAbandoned()
	reg.CatalogFallback("Clientes")
	reg.SequenceFallback()
	reg.DialogEvent("message")

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil registry, got %d", rec.Code)
	}
}
