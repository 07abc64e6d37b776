// Package ingestion - Tier table ingestion pipeline
// FETCH -> NORMALIZE -> VALIDATE -> COMMIT. Nothing reaches the store until
// every phase has passed.
package ingestion

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matali-pricing/core/pricing"
	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

// Phase names a pipeline step
type Phase string

const (
	PhaseFetch     Phase = "fetch"
	PhaseNormalize Phase = "normalize"
	PhaseValidate  Phase = "validate"
	PhaseCommit    Phase = "commit"
)

// Result describes one ingestion run
type Result struct {
	Source    string         `json:"source"`
	Rows      int            `json:"rows"`
	Services  []string       `json:"services"`
	Hash      string         `json:"hash"`
	Report    pricing.Report `json:"report"`
	Warnings  []string       `json:"warnings,omitempty"`
	Unchanged bool           `json:"unchanged"`
	Version   int64          `json:"version"`
	Duration  time.Duration  `json:"duration"`
}

// Options configures a Pipeline
type Options struct {
	// Strict rejects tables with overlapping tiers or missing contract services
	Strict   bool
	Contract *Contract
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Pipeline loads a tier table from a fetcher into a store
type Pipeline struct {
	fetcher  Fetcher
	store    *pricing.Store
	strict   bool
	contract *Contract
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewPipeline creates a pipeline committing into store
func NewPipeline(fetcher Fetcher, store *pricing.Store, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = logging.Named("ingestion")
	}
	return &Pipeline{
		fetcher:  fetcher,
		store:    store,
		strict:   opts.Strict,
		contract: opts.Contract,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Run executes every phase. On failure the store keeps its previous table.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx)
	if err != nil {
		p.metrics.ObserveReload(false, 0)
		p.log.Error("tier table ingestion failed", logging.Source(p.fetcher.Source()), zap.Error(err))
		return nil, err
	}
	res.Duration = time.Since(start)
	p.metrics.ObserveReload(true, res.Rows)
	p.log.Info("tier table ingested",
		logging.Source(res.Source),
		zap.Int("rows", res.Rows),
		zap.Int("services", len(res.Services)),
		logging.TableHash(res.Hash),
		zap.Bool("unchanged", res.Unchanged),
		zap.Duration("duration", res.Duration))
	for _, w := range res.Warnings {
		p.log.Warn("tier table warning", logging.Source(res.Source), zap.String("warning", w))
	}
	return res, nil
}

// Build runs FETCH, NORMALIZE and VALIDATE without committing
func (p *Pipeline) Build(ctx context.Context) (*pricing.TierTable, *Result, error) {
	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, nil, inPhase(PhaseFetch, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tiers, err := Normalize(raw)
	if err != nil {
		return nil, nil, inPhase(PhaseNormalize, err)
	}

	table, err := pricing.NewTierTable(tiers)
	if err != nil {
		return nil, nil, inPhase(PhaseValidate, err)
	}

	res := &Result{
		Source:   p.fetcher.Source(),
		Rows:     table.Rows(),
		Services: table.ServiceKeys(),
		Hash:     table.Hash().Hex(),
		Report:   table.Validate(),
	}

	for _, g := range res.Report.Gaps {
		res.Warnings = append(res.Warnings, g.String())
	}
	var violations []string
	for _, o := range res.Report.Overlaps {
		violations = append(violations, o.String())
	}
	if p.contract != nil {
		violations = append(violations, p.contract.Check(table)...)
	}

	if p.strict && len(violations) > 0 {
		err := apperrors.Newf(apperrors.TypeValidation, "tier table rejected: %s", strings.Join(violations, "; ")).
			WithContext("violations", violations)
		return nil, nil, inPhase(PhaseValidate, err)
	}
	res.Warnings = append(res.Warnings, violations...)
	return table, res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	table, res, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}

	// same content as the live table: keep it, nothing to swap
	if cur := p.store.Current(); cur != nil && cur.Hash() == table.Hash() {
		res.Unchanged = true
		res.Version = p.store.Version()
		return res, nil
	}

	p.store.Swap(table, res.Source)
	res.Version = p.store.Version()
	return res, nil
}

func inPhase(phase Phase, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.WithContext("phase", string(phase))
	}
	return apperrors.Wrap(apperrors.TypeInternal, string(phase)+" failed", err).WithContext("phase", string(phase))
}

// Normalize converts raw rows into tiers. Blank numeric cells count as zero;
// thousands separators are accepted.
func Normalize(raw []RawRow) ([]types.PriceTier, error) {
	tiers := make([]types.PriceTier, 0, len(raw))
	for _, r := range raw {
		t := types.PriceTier{
			ServiceKey: strings.TrimSpace(r.Fields[ColServiceKey]),
			TierName:   strings.TrimSpace(r.Fields[ColTierName]),
			Row:        r.Line,
		}
		var err error
		if t.MinVolume, err = ParseNumber(r, ColMinVolume); err != nil {
			return nil, err
		}
		if t.MaxVolume, err = ParseNumber(r, ColMaxVolume); err != nil {
			return nil, err
		}
		if t.UnitPrice, err = ParseNumber(r, ColUnitPrice); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

// ParseNumber reads a decimal cell of r
func ParseNumber(r RawRow, column string) (decimal.Decimal, error) {
	s := strings.TrimSpace(r.Fields[column])
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.Parsing("row "+strconv.Itoa(r.Line)+": "+column+" is not a number", err).
			WithContext("row", r.Line).
			WithContext("column", column)
	}
	return d, nil
}
