// Package api - HTTP handlers
// Handlers decode, call the engine and encode. No pricing logic lives here.
package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"matali-pricing/core/capacity"
	"matali-pricing/core/output"
	"matali-pricing/core/pricing"
	"matali-pricing/core/quote"
	"matali-pricing/core/types"
	"matali-pricing/db"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: s.version, Time: time.Now().UTC()}
	if snap := s.engine.Snapshot(); snap != nil {
		resp.Tiers = snap.Table.Rows()
		resp.TableHash = snap.Hash().Hex()
	}
	s.writeJSON(w, resp, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version": s.version,
		"service": "matali-pricing",
	}, http.StatusOK)
}

// handleServices handles GET /services
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	services := s.engine.Services()
	resp := ServicesResponse{
		Services:   make([]ServiceInfo, 0, len(services)),
		DefaultKey: s.engine.Catalog().DefaultKey(),
	}
	for _, svc := range services {
		p := capacity.ProfileOf(svc)
		resp.Services = append(resp.Services, ServiceInfo{
			Service:         svc,
			MonthlyCapacity: p.MonthlyCapacity,
			CostPerUnit:     p.CostPerUnit,
		})
	}
	s.writeJSON(w, resp, http.StatusOK)
}

// handleClassify handles POST /services/classify
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Labels) == 0 {
		s.writeError(w, apperrors.Input("labels must not be empty"))
		return
	}

	resp := ClassifyResponse{DefaultKey: s.engine.Catalog().DefaultKey()}
	for _, label := range req.Labels {
		resp.Results = append(resp.Results, s.engine.Classify(label))
	}
	s.writeJSON(w, resp, http.StatusOK)
}

// handleTiers handles GET /tiers[?service_key=]
func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap == nil {
		s.writeError(w, apperrors.NoTable())
		return
	}

	resp := TiersResponse{
		Source:    snap.Source,
		LoadedAt:  snap.LoadedAt,
		Version:   s.engine.TableVersion(),
		TableHash: snap.Hash().Hex(),
	}
	if key := r.URL.Query().Get("service_key"); key != "" {
		if !snap.Table.Has(key) {
			s.writeError(w, apperrors.NotFound("service", key))
			return
		}
		resp.Tiers = snap.Table.Tiers(key)
	} else {
		resp.Tiers = snap.Table.All()
	}
	s.writeJSON(w, resp, http.StatusOK)
}

// handleReport handles GET /tiers/report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Report()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, report, http.StatusOK)
}

// handleReload handles POST /tiers/reload
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Reload(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, res, http.StatusOK)
}

// handlePrice handles POST /price
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req pricing.PriceRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.engine.Price(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, res, http.StatusOK)
}

// handleCreateQuote handles POST /quotes. With ?preview=true nothing is saved.
func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	preview, err := parseBool(r, "preview")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req quote.Request
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if preview {
		q, err := s.engine.Preview(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, q, http.StatusOK)
		return
	}

	q, err := s.engine.CreateQuote(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/quotes/"+q.ID)
	s.writeJSON(w, q, http.StatusCreated)
}

// handleListQuotes handles GET /quotes
func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	quotes, err := s.engine.ListQuotes(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if quotes == nil {
		quotes = []*types.Quote{}
	}
	s.writeJSON(w, QuoteListResponse{Quotes: quotes, Count: len(quotes)}, http.StatusOK)
}

// handleSummary handles GET /quotes/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := s.engine.Summary(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, summary, http.StatusOK)
}

// handleGetQuote handles GET /quotes/{id}
func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.GetQuote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, q, http.StatusOK)
}

// handleQuoteStatus handles POST /quotes/{id}/status
func (s *Server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.engine.SetQuoteStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, q, http.StatusOK)
}

// handleExportQuote handles GET /quotes/{id}/export
func (s *Server) handleExportQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.GetQuote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := output.WriteQuoteXLSX(&buf, q); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="quote-`+q.ID+`.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("write quote export", logging.QuoteID(q.ID), zap.Error(err))
	}
}

// parseBool reads an optional boolean query parameter; absent means false
func parseBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.Newf(apperrors.TypeInput, "%s must be true or false, got %q", name, v).
			WithContext("parameter", name)
	}
	return b, nil
}

// parseListFilter reads customer, status, since, until, limit and offset.
// Dates are RFC 3339 or YYYY-MM-DD.
func parseListFilter(r *http.Request) (*db.ListFilter, error) {
	q := r.URL.Query()
	f := &db.ListFilter{
		Customer: strings.TrimSpace(q.Get("customer")),
		Status:   types.QuoteStatus(q.Get("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Newf(apperrors.TypeInput, "invalid status %q", f.Status)
	}

	var err error
	if f.Since, err = parseTime(q.Get("since")); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "invalid since", err)
	}
	if f.Until, err = parseTime(q.Get("until")); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "invalid until", err)
	}
	if f.Limit, err = parseCount(q.Get("limit")); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "invalid limit", err)
	}
	if f.Offset, err = parseCount(q.Get("offset")); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "invalid offset", err)
	}
	return f, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, apperrors.Input("must not be negative")
	}
	return n, nil
}
