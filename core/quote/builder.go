package quote

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matali-pricing/core/pricing"
	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
)

// DefaultValidityDays applies when a request leaves validity unset
const DefaultValidityDays = 30

// Item is one requested service. Label is a display label; ServiceKey wins when both are set.
type Item struct {
	Label      string          `json:"service_label,omitempty"`
	ServiceKey string          `json:"service_key,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Request asks for a quote
type Request struct {
	Customer     string     `json:"customer_name"`
	Date         *time.Time `json:"quote_date,omitempty"`
	ValidityDays int        `json:"validity_days,omitempty"`
	Items        []Item     `json:"items"`
}

// BuilderOptions configures a Builder
type BuilderOptions struct {
	Currency            types.Currency
	DefaultValidityDays int
	Now                 func() time.Time
	Logger              *zap.Logger
}

// Builder turns quote requests into priced quotes
type Builder struct {
	pricer   *pricing.Pricer
	currency types.Currency
	validity int
	now      func() time.Time
	log      *zap.Logger
}

// NewBuilder creates a builder pricing through p
func NewBuilder(p *pricing.Pricer, opts BuilderOptions) *Builder {
	if opts.Currency == "" {
		opts.Currency = types.CurrencySAR
	}
	if opts.DefaultValidityDays <= 0 {
		opts.DefaultValidityDays = DefaultValidityDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("quote")
	}
	return &Builder{
		pricer:   p,
		currency: opts.Currency,
		validity: opts.DefaultValidityDays,
		now:      opts.Now,
		log:      opts.Logger,
	}
}

// Build prices every item with a positive quantity and totals the quote.
// Items with zero quantity are skipped; at least one line must remain.
func (b *Builder) Build(ctx context.Context, req Request) (*types.Quote, error) {
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return nil, apperrors.Input("customer_name is required")
	}
	validity := req.ValidityDays
	if validity == 0 {
		validity = b.validity
	}
	if validity < 0 {
		return nil, apperrors.Newf(apperrors.TypeInput, "validity_days must be positive, got %d", validity)
	}

	now := b.now().UTC()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	lines := make([]types.QuoteLine, 0, len(req.Items))
	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.Quantity.IsNegative() {
			return nil, apperrors.Newf(apperrors.TypeInput, "item %d: quantity must not be negative", i+1).
				WithContext("item", i+1)
		}
		if item.Quantity.IsZero() {
			continue
		}

		line, err := b.priceItem(item)
		if err != nil {
			if appErr, ok := apperrors.As(err); ok {
				appErr.WithContext("item", i+1)
			}
			return nil, err
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, apperrors.Input("quote needs at least one item with a positive quantity")
	}

	q := &types.Quote{
		ID:           uuid.NewString(),
		Customer:     customer,
		Date:         date,
		ValidityDays: validity,
		ValidUntil:   date.AddDate(0, 0, validity),
		Currency:     b.currency,
		Status:       types.QuotePending,
		Lines:        lines,
		Totals:       Totals(lines),
		CreatedAt:    now,
	}

	b.log.Info("quote built",
		logging.QuoteID(q.ID),
		zap.String("customer", q.Customer),
		zap.Int("services", q.ServicesCount()),
		zap.String("revenue", q.Totals.Revenue.StringFixed(2)))
	return q, nil
}

func (b *Builder) priceItem(item Item) (types.QuoteLine, error) {
	key, fallback, err := b.pricer.ResolveKey(item.Label, item.ServiceKey)
	if err != nil {
		return types.QuoteLine{}, err
	}

	match, err := b.pricer.Match(key, item.Quantity)
	if err != nil {
		return types.QuoteLine{}, err
	}

	svc, ok := b.pricer.Catalog().Service(key)
	if !ok {
		svc = types.Service{Key: key}
	}
	line := CalculateLine(svc, item.Quantity, match)
	line.KeyFallback = fallback
	return line, nil
}
