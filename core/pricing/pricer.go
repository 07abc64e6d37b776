package pricing

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matali-pricing/core/catalog"
	"matali-pricing/core/determinism"
	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

// PriceRequest asks for the price of a quantity of one service.
// Either Label (a display label) or ServiceKey must be set; ServiceKey wins.
type PriceRequest struct {
	Label      string          `json:"label,omitempty"`
	ServiceKey string          `json:"service_key,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// PriceResult is a priced request
type PriceResult struct {
	Label      string           `json:"label,omitempty"`
	ServiceKey string           `json:"service_key"`
	Fallback   bool             `json:"fallback"`
	Tier       types.PriceTier  `json:"tier"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Total      decimal.Decimal  `json:"total"`
	Clamped    bool             `json:"clamped,omitempty"`
	Zeroed     bool             `json:"zeroed,omitempty"`
	Miss       types.MissReason `json:"miss,omitempty"`
	TableHash  string           `json:"table_hash"`
}

// PricerOptions configures a Pricer
type PricerOptions struct {
	Policy       types.OutOfRangePolicy
	StrictLabels bool
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// Pricer maps labels to service keys and keys to unit prices
type Pricer struct {
	catalog *catalog.Catalog
	store   *Store
	policy  types.OutOfRangePolicy
	strict  bool
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewPricer creates a pricer over a catalog and a tier store
func NewPricer(c *catalog.Catalog, store *Store, opts PricerOptions) *Pricer {
	if opts.Policy == "" {
		opts.Policy = types.OutOfRangeFail
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("pricer")
	}
	return &Pricer{
		catalog: c,
		store:   store,
		policy:  opts.Policy,
		strict:  opts.StrictLabels,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// Catalog returns the service catalog
func (p *Pricer) Catalog() *catalog.Catalog {
	return p.catalog
}

// Store returns the tier store
func (p *Pricer) Store() *Store {
	return p.store
}

// Policy returns the out-of-range policy
func (p *Pricer) Policy() types.OutOfRangePolicy {
	return p.policy
}

// ResolveKey maps a request to a service key. fallback is true when an
// unrecognized label was mapped to the default key.
func (p *Pricer) ResolveKey(label, serviceKey string) (key string, fallback bool, err error) {
	if serviceKey != "" {
		return serviceKey, false, nil
	}
	if label == "" {
		return "", false, apperrors.Input("either label or service_key is required")
	}

	cl, err := p.catalog.Resolve(label, p.strict)
	if err != nil {
		p.metrics.ObserveLookup(metrics.UnknownKey, metrics.OutcomeUnknownService)
		return "", false, err
	}
	if !cl.Known {
		p.log.Warn("unrecognized service label, using default key",
			logging.Label(label),
			logging.ServiceKey(cl.Key))
		p.metrics.ObserveFallback(cl.Key)
		return cl.Key, true, nil
	}
	return cl.Key, false, nil
}

// Price resolves label -> key -> tier and computes the total
func (p *Pricer) Price(ctx context.Context, req PriceRequest) (*PriceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, fallback, err := p.ResolveKey(req.Label, req.ServiceKey)
	if err != nil {
		return nil, err
	}

	snap := p.store.Current()
	if snap == nil {
		p.observe(key, nil, metrics.OutcomeError)
		return nil, apperrors.NoTable()
	}

	match, err := snap.Table.Resolve(key, req.Quantity, p.policy)
	if err != nil {
		outcome := metrics.OutcomeError
		if apperrors.IsType(err, apperrors.TypeNoTier) {
			outcome = metrics.OutcomeNoTier
		}
		p.observe(key, snap.Table, outcome)
		p.log.Debug("price lookup failed",
			logging.ServiceKey(key),
			zap.String("quantity", req.Quantity.String()),
			zap.Error(err))
		return nil, err
	}

	if !match.Exact() {
		p.log.Warn("quantity outside tier ranges",
			logging.ServiceKey(key),
			zap.String("quantity", req.Quantity.String()),
			zap.String("reason", string(match.Miss)),
			zap.String("policy", string(p.policy)))
	}
	p.observe(key, snap.Table, metrics.OutcomeOK)

	return &PriceResult{
		Label:      req.Label,
		ServiceKey: key,
		Fallback:   fallback,
		Tier:       match.Tier,
		Quantity:   req.Quantity,
		UnitPrice:  match.UnitPrice(),
		Total:      determinism.Money(match.UnitPrice().Mul(req.Quantity)),
		Clamped:    match.Clamped,
		Zeroed:     match.Zeroed,
		Miss:       match.Miss,
		TableHash:  snap.Hash().Hex(),
	}, nil
}

// observe counts a lookup. Keys neither the catalog nor the table knows share one
// label, so request input cannot add series.
func (p *Pricer) observe(key string, table *TierTable, outcome string) {
	if _, ok := p.catalog.Service(key); !ok && (table == nil || !table.Has(key)) {
		key = metrics.UnknownKey
	}
	p.metrics.ObserveLookup(key, outcome)
}

// Match resolves a service key directly against the current table
func (p *Pricer) Match(serviceKey string, quantity decimal.Decimal) (Match, error) {
	table, err := p.store.Table()
	if err != nil {
		return Match{}, err
	}
	return table.Resolve(serviceKey, quantity, p.policy)
}
