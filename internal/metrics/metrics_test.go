package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLookupAndReload(t *testing.T) {
	m := New()

	m.ObserveLookup("shipping_cost", OutcomeOK)
	m.ObserveLookup("shipping_cost", OutcomeOK)
	m.ObserveLookup("shipping_cost", OutcomeNoTier)
	m.ObserveReload(true, 8)
	m.ObserveReload(false, 0)

	if got := testutil.ToFloat64(m.Lookups.WithLabelValues("shipping_cost", OutcomeOK)); got != 2 {
		t.Errorf("ok lookups = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TierRows); got != 8 {
		t.Errorf("tier rows = %v, want 8 (failed reload must not reset it)", got)
	}
	if got := testutil.ToFloat64(m.Reloads.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveLookup("k", OutcomeOK)
	m.ObserveFallback("k")
	m.ObserveReload(true, 1)
	m.ObserveQuote()
	m.ObserveRequest("/price", 200, time.Millisecond)
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.ObserveFallback("preparation_team")
	m.ObserveRequest("POST /price", 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`matali_label_fallbacks_total{default_key="preparation_team"} 1`,
		`matali_http_request_duration_seconds_count{route="POST /price",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
