// Package engine provides the API-primary pricing engine.
// CLI and HTTP are thin wrappers around this engine.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"matali-pricing/core/catalog"
	"matali-pricing/core/pricing"
	"matali-pricing/core/quote"
	"matali-pricing/core/types"
	"matali-pricing/db"
	"matali-pricing/db/ingestion"
	"matali-pricing/internal/config"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

// Engine is the primary API for pricing and quoting.
// All other interfaces (CLI, HTTP) are thin wrappers.
type Engine struct {
	config   *config.Config
	catalog  *catalog.Catalog
	store    *pricing.Store
	pricer   *pricing.Pricer
	builder  *quote.Builder
	pipeline *ingestion.Pipeline
	quotes   db.QuoteStore
	metrics  *metrics.Metrics
	log      *zap.Logger

	// one reload at a time; lookups never wait on it
	reloadMu sync.Mutex
}

// Options overrides parts of the wiring, mostly for tests
type Options struct {
	// Catalog replaces the configured service master
	Catalog *catalog.Catalog

	// Fetcher replaces the configured tier table source
	Fetcher ingestion.Fetcher

	// Quotes replaces the configured quote store
	Quotes db.QuoteStore

	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// New wires an engine from cfg and loads the tier table.
// A table that fails to load is fatal: the engine never starts empty.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("engine")
	}

	e := &Engine{
		config:  cfg,
		store:   pricing.NewStore(),
		metrics: opts.Metrics,
		log:     opts.Logger,
	}

	var err error
	if e.catalog, err = loadCatalog(cfg, opts.Catalog); err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		if fetcher, err = ingestion.FetcherFor(cfg.Data.TiersPath, cfg.Data.TiersSheet); err != nil {
			return nil, err
		}
	}
	e.pipeline = ingestion.NewPipeline(fetcher, e.store, ingestion.Options{
		Strict:   cfg.Pricing.StrictTiers,
		Contract: ingestion.ContractFor(e.catalog),
		Logger:   e.log.Named("ingestion"),
		Metrics:  e.metrics,
	})
	if _, err := e.pipeline.Run(ctx); err != nil {
		return nil, err
	}

	e.pricer = pricing.NewPricer(e.catalog, e.store, pricing.PricerOptions{
		Policy:       cfg.Pricing.OutOfRange,
		StrictLabels: cfg.Pricing.StrictLabels,
		Logger:       e.log.Named("pricer"),
		Metrics:      e.metrics,
	})
	e.builder = quote.NewBuilder(e.pricer, quote.BuilderOptions{
		Currency:            cfg.Pricing.Currency,
		DefaultValidityDays: cfg.Quotes.DefaultValidityDays,
		Now:                 opts.Now,
		Logger:              e.log.Named("quote"),
	})

	e.quotes = opts.Quotes
	if e.quotes == nil {
		if e.quotes, err = db.Open(ctx, db.Driver(cfg.Quotes.Driver), cfg.Quotes.DSN); err != nil {
			return nil, err
		}
	}

	snap := e.store.Current()
	e.log.Info("engine ready",
		zap.Int("services", e.catalog.Len()),
		zap.Int("tiers", snap.Table.Rows()),
		logging.TableHash(snap.Hash().Hex()),
		zap.String("out_of_range", string(cfg.Pricing.OutOfRange)),
		zap.String("quotes_driver", cfg.Quotes.Driver))
	return e, nil
}

func loadCatalog(cfg *config.Config, override *catalog.Catalog) (*catalog.Catalog, error) {
	c := override
	if c == nil {
		if cfg.Data.ServicesPath == "" {
			c = catalog.Default()
		} else {
			var err error
			if c, err = catalog.LoadFile(cfg.Data.ServicesPath); err != nil {
				return nil, err
			}
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the engine's configuration
func (e *Engine) Config() *config.Config {
	return e.config
}

// Catalog returns the service catalog
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Metrics returns the metrics sink; may be nil
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Snapshot returns the live tier table snapshot
func (e *Engine) Snapshot() *pricing.Snapshot {
	return e.store.Current()
}

// TableVersion counts tier table swaps since start
func (e *Engine) TableVersion() int64 {
	return e.store.Version()
}

// Price prices a single quantity
func (e *Engine) Price(ctx context.Context, req pricing.PriceRequest) (*pricing.PriceResult, error) {
	return e.pricer.Price(ctx, req)
}

// Classify maps a label to a service key without falling back
func (e *Engine) Classify(label string) catalog.Classification {
	return e.catalog.Classify(label)
}

// Services lists the service master
func (e *Engine) Services() []types.Service {
	return e.catalog.Services()
}

// Tiers returns the live tier table
func (e *Engine) Tiers() (*pricing.TierTable, error) {
	return e.store.Table()
}

// Report validates the live tier table
func (e *Engine) Report() (pricing.Report, error) {
	table, err := e.store.Table()
	if err != nil {
		return pricing.Report{}, err
	}
	return table.Validate(), nil
}

// Reload re-runs ingestion. On failure the current table stays live.
func (e *Engine) Reload(ctx context.Context) (*ingestion.Result, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()
	return e.pipeline.Run(ctx)
}

// Preview builds a quote without saving it
func (e *Engine) Preview(ctx context.Context, req quote.Request) (*types.Quote, error) {
	return e.builder.Build(ctx, req)
}

// CreateQuote builds a quote and saves it to history
func (e *Engine) CreateQuote(ctx context.Context, req quote.Request) (*types.Quote, error) {
	q, err := e.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.quotes.Save(ctx, q); err != nil {
		return nil, err
	}
	e.metrics.ObserveQuote()
	return q, nil
}

// GetQuote loads a saved quote
func (e *Engine) GetQuote(ctx context.Context, id string) (*types.Quote, error) {
	return e.quotes.Get(ctx, id)
}

// ListQuotes lists saved quotes, newest first
func (e *Engine) ListQuotes(ctx context.Context, filter *db.ListFilter) ([]*types.Quote, error) {
	return e.quotes.List(ctx, filter)
}

// SetQuoteStatus records the customer's answer
func (e *Engine) SetQuoteStatus(ctx context.Context, id string, status types.QuoteStatus) (*types.Quote, error) {
	q, err := e.quotes.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	e.log.Info("quote status changed", logging.QuoteID(id), zap.String("status", string(status)))
	return q, nil
}

// Summary aggregates the quotes matching filter; paging is ignored
func (e *Engine) Summary(ctx context.Context, filter *db.ListFilter) (types.QuoteSummary, error) {
	var f db.ListFilter
	if filter != nil {
		f = *filter
	}
	f.Limit, f.Offset = 0, 0

	quotes, err := e.quotes.List(ctx, &f)
	if err != nil {
		return types.QuoteSummary{}, err
	}
	all := make([]types.Quote, 0, len(quotes))
	for _, q := range quotes {
		all = append(all, *q)
	}
	return quote.Summarize(all), nil
}

// Close releases the quote store
func (e *Engine) Close() error {
	if e.quotes == nil {
		return nil
	}
	if err := e.quotes.Close(); err != nil {
		return apperrors.Storage("close quote store", err)
	}
	return nil
}
