// Package api - Thin HTTP layer over the pricing engine
// The API is ONLY responsible for: request decoding, engine calls, response serialization.
// The API NEVER performs pricing logic.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"matali-pricing/core/engine"
	"matali-pricing/internal/config"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

// Server is the API server
type Server struct {
	engine  *engine.Engine
	mux     *http.ServeMux
	version string
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewServer creates an API server over e
func NewServer(e *engine.Engine, version string, log *zap.Logger) *Server {
	if log == nil {
		log = logging.Named("api")
	}
	s := &Server{
		engine:  e,
		mux:     http.NewServeMux(),
		version: version,
		log:     log,
		metrics: e.Metrics(),
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /services", s.handleServices)
	s.mux.HandleFunc("POST /services/classify", s.handleClassify)

	s.mux.HandleFunc("GET /tiers", s.handleTiers)
	s.mux.HandleFunc("GET /tiers/report", s.handleReport)
	s.mux.HandleFunc("POST /tiers/reload", s.handleReload)

	s.mux.HandleFunc("POST /price", s.handlePrice)

	s.mux.HandleFunc("POST /quotes", s.handleCreateQuote)
	s.mux.HandleFunc("GET /quotes", s.handleListQuotes)
	s.mux.HandleFunc("GET /quotes/summary", s.handleSummary)
	s.mux.HandleFunc("GET /quotes/{id}", s.handleGetQuote)
	s.mux.HandleFunc("POST /quotes/{id}/status", s.handleQuoteStatus)
	s.mux.HandleFunc("GET /quotes/{id}/export", s.handleExportQuote)
}

// ServeHTTP implements http.Handler. Every request is logged and timed.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	elapsed := time.Since(start)
	s.metrics.ObserveRequest(route, rec.status, elapsed)
	s.log.Debug("http request",
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("route", route),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", elapsed))
}

// HTTPServer wraps s in an *http.Server with the configured timeouts
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// Run serves until ctx is done, then shuts down gracefully. A positive
// reloadEvery re-reads the tier table on that interval; failed reloads keep
// the current table and are only logged.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig, reloadEvery time.Duration) error {
	srv := s.HTTPServer(cfg.Addr,
		time.Duration(cfg.ReadTimeoutSeconds)*time.Second,
		time.Duration(cfg.WriteTimeoutSeconds)*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", cfg.Addr), zap.String("version", s.version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if reloadEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(reloadEvery)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					// errors are logged by the pipeline
					_, _ = s.engine.Reload(gctx)
				}
			}
		})
	}
	return g.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

// writeError renders err in the error envelope; the status follows the error type
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	body := ErrorBody{Code: string(apperrors.TypeInternal), Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		body.Code = string(appErr.Type)
		body.Message = appErr.Message
		if appErr.Cause != nil {
			body.Message += ": " + appErr.Cause.Error()
		}
		body.Details = appErr.Context
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, ErrorResponse{Error: body}, status)
}

func (s *Server) decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.TypeInput, "invalid JSON body", err)
	}
	return nil
}
