// Package api - API request and response types
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"matali-pricing/core/catalog"
	"matali-pricing/core/types"
)

// ErrorResponse is the error envelope of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error type as code
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Tiers     int       `json:"tiers"`
	TableHash string    `json:"table_hash"`
	Time      time.Time `json:"time"`
}

// ClassifyRequest is the body of POST /services/classify
type ClassifyRequest struct {
	Labels []string `json:"labels"`
}

// ClassifyResponse maps each label; DefaultKey is what unknown labels price as
type ClassifyResponse struct {
	Results    []catalog.Classification `json:"results"`
	DefaultKey string                   `json:"default_key"`
}

// ServicesResponse is returned by GET /services
type ServicesResponse struct {
	Services   []ServiceInfo `json:"services"`
	DefaultKey string        `json:"default_key"`
}

// ServiceInfo is a service master entry with its derived capacity figures
type ServiceInfo struct {
	types.Service
	MonthlyCapacity decimal.Decimal `json:"monthly_capacity"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
}

// TiersResponse is returned by GET /tiers
type TiersResponse struct {
	Source    string            `json:"source"`
	LoadedAt  time.Time         `json:"loaded_at"`
	Version   int64             `json:"version"`
	TableHash string            `json:"table_hash"`
	Tiers     []types.PriceTier `json:"tiers"`
}

// QuoteListResponse is returned by GET /quotes
type QuoteListResponse struct {
	Quotes []*types.Quote `json:"quotes"`
	Count  int            `json:"count"`
}

// StatusRequest is the body of POST /quotes/{id}/status
type StatusRequest struct {
	Status types.QuoteStatus `json:"status"`
}
