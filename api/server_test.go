package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"matali-pricing/core/engine"
	"matali-pricing/core/output"
	"matali-pricing/core/types"
	"matali-pricing/internal/config"
	"matali-pricing/internal/metrics"
)

const tiersCSV = `service_key,tier_name,min_volume,max_volume,unit_price
preparation_team,Starter,0,1000,6
preparation_team,Growth,1001,5000,5
shipping_cost,Local,0,500,8
shipping_cost,Bulk,501,2000,7
storage_fee,Pallet,1,0,45
receiving_service,Inbound,0,1000,3.5
`

type testServer struct {
	*Server
	metrics   *metrics.Metrics
	tiersPath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiers.csv")
	if err := os.WriteFile(path, []byte(tiersCSV), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Data.TiersPath = path
	m := metrics.New()
	e, err := engine.New(context.Background(), cfg, engine.Options{
		Metrics: m,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	return &testServer{Server: NewServer(e, "test", zap.NewNop()), metrics: m, tiersPath: path}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	health := decodeBody[HealthResponse](t, w)
	if health.Status != "healthy" || health.Tiers != 6 || health.TableHash == "" {
		t.Errorf("health = %+v", health)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("response should carry a request id")
	}

	w = ts.do(t, http.MethodGet, "/version", "")
	if v := decodeBody[map[string]string](t, w); v["version"] != "test" {
		t.Errorf("version = %v", v)
	}
}

func TestPriceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantTotal  string
	}{
		{"by label", `{"label":"ايراد الشحن","quantity":"501"}`, http.StatusOK, "", "3507"},
		{"by key", `{"service_key":"storage_fee","quantity":12.5}`, http.StatusOK, "", "562.5"},
		{"no tier", `{"service_key":"shipping_cost","quantity":"9000"}`, http.StatusUnprocessableEntity, "NO_MATCHING_TIER", ""},
		{"unknown key", `{"service_key":"packing","quantity":"1"}`, http.StatusUnprocessableEntity, "NO_MATCHING_TIER", ""},
		{"negative", `{"service_key":"shipping_cost","quantity":"-1"}`, http.StatusBadRequest, "INPUT_ERROR", ""},
		{"missing label", `{"quantity":"1"}`, http.StatusBadRequest, "INPUT_ERROR", ""},
		{"bad json", `{"quantity":`, http.StatusBadRequest, "INPUT_ERROR", ""},
		{"unknown field", `{"qty":"1"}`, http.StatusBadRequest, "INPUT_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/price", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				resp := decodeBody[ErrorResponse](t, w)
				if resp.Error.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
				}
				return
			}
			resp := decodeBody[map[string]any](t, w)
			if resp["total"] != tt.wantTotal {
				t.Errorf("total = %v, want %s", resp["total"], tt.wantTotal)
			}
		})
	}
}

func TestNoTierErrorCarriesDetails(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/price", `{"service_key":"shipping_cost","quantity":"9000"}`)
	resp := decodeBody[ErrorResponse](t, w)
	if resp.Error.Details["service_key"] != "shipping_cost" || resp.Error.Details["reason"] != string(types.MissAboveRange) {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestServicesAndClassify(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/services", "")
	services := decodeBody[ServicesResponse](t, w)
	if len(services.Services) != 4 || services.DefaultKey != "preparation_team" {
		t.Errorf("services = %+v", services)
	}

	w = ts.do(t, http.MethodPost, "/services/classify", `{"labels":["ايراد التخزين","ايراد التغليف"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("classify status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[ClassifyResponse](t, w)
	if len(resp.Results) != 2 || !resp.Results[0].Known || resp.Results[0].Key != "storage_fee" || resp.Results[1].Known {
		t.Errorf("classify = %+v", resp)
	}

	w = ts.do(t, http.MethodPost, "/services/classify", `{"labels":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty labels status = %d", w.Code)
	}
}

func TestTiersEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/tiers?service_key=shipping_cost", "")
	tiers := decodeBody[TiersResponse](t, w)
	if len(tiers.Tiers) != 2 || tiers.Version != 1 || tiers.Source != ts.tiersPath {
		t.Errorf("tiers = %+v", tiers)
	}

	w = ts.do(t, http.MethodGet, "/tiers?service_key=packing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown service status = %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/tiers/report", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"services"`) {
		t.Errorf("report = %d %s", w.Code, w.Body.String())
	}
}

func TestReloadEndpoint(t *testing.T) {
	ts := newTestServer(t)

	if err := os.WriteFile(ts.tiersPath, []byte(strings.Replace(tiersCSV, "501,2000,7", "501,2000,6.5", 1)), 0644); err != nil {
		t.Fatal(err)
	}
	w := ts.do(t, http.MethodPost, "/tiers/reload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/price", `{"service_key":"shipping_cost","quantity":"1000"}`)
	if resp := decodeBody[map[string]any](t, w); resp["unit_price"] != "6.5" {
		t.Errorf("price after reload = %v", resp)
	}

	if err := os.WriteFile(ts.tiersPath, []byte("service_key\nshipping_cost\n"), 0644); err != nil {
		t.Fatal(err)
	}
	w = ts.do(t, http.MethodPost, "/tiers/reload", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("broken reload status = %d", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.Error.Details["phase"] != "fetch" {
		t.Errorf("error should name the phase: %+v", resp.Error)
	}
}

func TestQuoteEndpoints(t *testing.T) {
	ts := newTestServer(t)

	body := `{"customer_name":"Acme Retail","validity_days":15,"items":[
		{"service_label":"ايراد التجهيز","quantity":"500"},
		{"service_key":"shipping_cost","quantity":"501"}]}`

	w := ts.do(t, http.MethodPost, "/quotes?preview=true", body)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/quotes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody[types.Quote](t, w)
	if created.Status != types.QuotePending || len(created.Lines) != 2 || created.Totals.Revenue.String() != "6507" {
		t.Errorf("created = %+v", created)
	}
	if w.Header().Get("Location") != "/quotes/"+created.ID {
		t.Errorf("location = %q", w.Header().Get("Location"))
	}
	if got := testutil.ToFloat64(ts.metrics.Quotes); got != 1 {
		t.Errorf("quotes counter = %v, preview must not count", got)
	}

	w = ts.do(t, http.MethodGet, "/quotes?customer=acme%20retail", "")
	list := decodeBody[QuoteListResponse](t, w)
	if list.Count != 1 || list.Quotes[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	w = ts.do(t, http.MethodGet, "/quotes/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/quotes/"+created.ID+"/status", `{"status":"accepted"}`)
	if updated := decodeBody[types.Quote](t, w); updated.Status != types.QuoteAccepted {
		t.Errorf("status update = %+v", updated)
	}

	w = ts.do(t, http.MethodPost, "/quotes/"+created.ID+"/status", `{"status":"maybe"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/quotes/summary?status=accepted", "")
	summary := decodeBody[types.QuoteSummary](t, w)
	if summary.Count != 1 || summary.TotalRevenue.String() != "6507" {
		t.Errorf("summary = %+v", summary)
	}

	w = ts.do(t, http.MethodGet, "/quotes/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing quote status = %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/quotes?limit=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d", w.Code)
	}
}

func TestQuoteExport(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/quotes", `{"customer_name":"Acme","items":[{"service_key":"storage_fee","quantity":"10"}]}`)
	created := decodeBody[types.Quote](t, w)

	w = ts.do(t, http.MethodGet, "/quotes/"+created.ID+"/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer f.Close()
	name, err := f.GetCellValue(output.QuoteSheet, "B6")
	if err != nil || name != "Storage" {
		t.Errorf("first line service = %q, %v", name, err)
	}
}

func TestCreateQuoteRejectsBadPreviewFlag(t *testing.T) {
	ts := newTestServer(t)
	body := `{"customer_name":"Acme","items":[{"service_key":"storage_fee","quantity":"10"}]}`

	for _, flag := range []string{"yes", "1x", "%20"} {
		w := ts.do(t, http.MethodPost, "/quotes?preview="+flag, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("preview=%s status = %d, want 400", flag, w.Code)
			continue
		}
		resp := decodeBody[ErrorResponse](t, w)
		if resp.Error.Code != "INPUT_ERROR" || resp.Error.Details["parameter"] != "preview" {
			t.Errorf("preview=%s error = %+v", flag, resp.Error)
		}
	}

	w := ts.do(t, http.MethodGet, "/quotes", "")
	if list := decodeBody[QuoteListResponse](t, w); list.Count != 0 {
		t.Errorf("rejected requests saved %d quotes", list.Count)
	}
	if got := testutil.ToFloat64(ts.metrics.Quotes); got != 0 {
		t.Errorf("quotes counter = %v", got)
	}

	w = ts.do(t, http.MethodPost, "/quotes?preview=false", body)
	if w.Code != http.StatusCreated {
		t.Errorf("preview=false status = %d, want 201", w.Code)
	}
}

// brokenWriter accepts headers but fails every body write
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestQuoteExportLogsWriteFailure(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/quotes", `{"customer_name":"Acme","items":[{"service_key":"storage_fee","quantity":"10"}]}`)
	created := decodeBody[types.Quote](t, w)

	core, logs := observer.New(zap.WarnLevel)
	srv := NewServer(ts.engine, "test", zap.New(core))

	r := httptest.NewRequest(http.MethodGet, "/quotes/"+created.ID+"/export", nil)
	srv.ServeHTTP(brokenWriter{httptest.NewRecorder()}, r)

	entries := logs.FilterMessage("write quote export").All()
	if len(entries) != 1 {
		t.Fatalf("expected one write failure entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["quote_id"] != created.ID || ctx["error"] != "connection reset" {
		t.Errorf("entry context = %v", ctx)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/price", `{"service_key":"shipping_cost","quantity":"10"}`)
	w := ts.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	for _, want := range []string{"matali_price_lookups_total", "matali_http_request_duration_seconds"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodDelete, "/price", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
}
