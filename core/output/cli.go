package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"matali-pricing/core/capacity"
	"matali-pricing/core/pricing"
	"matali-pricing/core/types"
	"matali-pricing/db/ingestion"
	apperrors "matali-pricing/internal/errors"
)

const (
	labelWidth = 50
	valueWidth = 20
)

// CLIFormatter renders boxed tables for a terminal
type CLIFormatter struct{}

func (f *CLIFormatter) Format() Format {
	return FormatCLI
}

func (f *CLIFormatter) Render(w io.Writer, v any) error {
	b := &box{w: w}
	switch v := v.(type) {
	case *pricing.PriceResult:
		renderPrice(b, v)
	case *types.Quote:
		renderQuote(b, v)
	case []*types.Quote:
		renderQuotes(b, v)
	case types.QuoteSummary:
		renderSummary(b, v)
	case *pricing.TierTable:
		renderTiers(b, v)
	case pricing.Report:
		renderReport(b, v)
	case []types.Service:
		renderServices(b, v)
	case *ingestion.Result:
		renderIngestion(b, v)
	default:
		return apperrors.NotSupported(fmt.Sprintf("cli rendering of %T", v))
	}
	return b.err
}

// box writes a fixed-width table and keeps the first write error
type box struct {
	w   io.Writer
	err error
}

func (b *box) printf(format string, args ...any) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.w, format, args...)
}

func (b *box) line(left, right string) {
	b.printf("%s%s%s\n", left, strings.Repeat("─", labelWidth+valueWidth+3), right)
}

func (b *box) top(title string) {
	b.line("┌", "┐")
	width := labelWidth + valueWidth + 1
	pad := (width - len([]rune(title))) / 2
	if pad < 0 {
		pad = 0
	}
	b.printf("│ %-*s │\n", width, strings.Repeat(" ", pad)+title)
	b.sep()
}

func (b *box) sep() {
	b.line("├", "┤")
}

func (b *box) bottom() {
	b.line("└", "┘")
}

func (b *box) row(label, value string) {
	b.printf("│ %-*s %*s │\n", labelWidth, truncate(label, labelWidth), valueWidth, truncate(value, valueWidth))
}

func (b *box) sub(label, value string) {
	b.printf("│   └─ %-*s %*s │\n", labelWidth-5, truncate(label, labelWidth-5), valueWidth, truncate(value, valueWidth))
}

func renderPrice(b *box, r *pricing.PriceResult) {
	b.top("PRICE")
	if r.Label != "" {
		b.row("Label", r.Label)
	}
	key := r.ServiceKey
	if r.Fallback {
		key += " (default)"
	}
	b.row("Service", key)
	b.row("Tier", tierRange(r.Tier))
	b.row("Quantity", r.Quantity.String())
	b.row("Unit price", r.UnitPrice.String())
	if r.Clamped {
		b.sub("clamped to nearest tier", string(r.Miss))
	}
	if r.Zeroed {
		b.sub("priced at zero", string(r.Miss))
	}
	b.sep()
	b.row("TOTAL", r.Total.StringFixed(2))
	b.bottom()
	b.printf("\nTier table: %s\n", shortHash(r.TableHash))
}

func renderQuote(b *box, q *types.Quote) {
	b.top("QUOTE " + q.ID)
	b.row("Customer", q.Customer)
	b.row("Date", q.Date.Format("2006-01-02"))
	b.row("Valid until", q.ValidUntil.Format("2006-01-02"))
	b.row("Status", string(q.Status))
	b.sep()
	for _, l := range q.Lines {
		name := l.ServiceName
		if l.Clamped {
			name += " *"
		}
		b.row(name, money(q.Currency, l.Revenue))
		b.sub(fmt.Sprintf("%s × %s (%s)", l.Quantity, l.UnitPrice, l.TierName), "")
		b.sub("cost used", money(q.Currency, l.CostUsed))
		b.sub("margin used", pct(l.MarginUsedPct))
		b.sub("capacity utilization", pct(l.UtilizationPct))
	}
	b.sep()
	b.row("TOTAL REVENUE", money(q.Currency, q.Totals.Revenue))
	b.row("TOTAL COST", money(q.Currency, q.Totals.Cost))
	b.row("TOTAL MARGIN", money(q.Currency, q.Totals.Margin))
	b.row("MARGIN", pct(q.Totals.MarginPct))
	b.bottom()
}

func renderQuotes(b *box, quotes []*types.Quote) {
	b.top("QUOTES")
	if len(quotes) == 0 {
		b.row("no quotes", "")
	}
	for _, q := range quotes {
		b.row(fmt.Sprintf("%s  %s  %s", q.Date.Format("2006-01-02"), q.Customer, q.Status),
			money(q.Currency, q.Totals.Revenue))
		b.sub(q.ID, pct(q.Totals.MarginPct))
	}
	b.bottom()
}

func renderSummary(b *box, s types.QuoteSummary) {
	b.top("QUOTE HISTORY")
	b.row("Quotes", fmt.Sprintf("%d", s.Count))
	b.row("Total revenue", s.TotalRevenue.StringFixed(2))
	b.row("Average revenue", s.AverageRevenue.StringFixed(2))
	b.row("Average margin", pct(s.AverageMarginPct))
	b.bottom()
}

func renderTiers(b *box, t *pricing.TierTable) {
	b.top("PRICE TIERS")
	for i, key := range t.ServiceKeys() {
		if i > 0 {
			b.sep()
		}
		b.row(key, "unit price")
		for _, tier := range t.Tiers(key) {
			label := tierRange(tier)
			if tier.TierName != "" {
				label = tier.TierName + "  " + label
			}
			b.sub(label, tier.UnitPrice.String())
		}
	}
	b.bottom()
	b.printf("\n%d tiers, hash %s\n", t.Rows(), shortHash(t.Hash().Hex()))
}

func renderReport(b *box, r pricing.Report) {
	b.top("TIER TABLE REPORT")
	for _, s := range r.Services {
		upper := s.Max.String()
		if s.Unbounded {
			upper = "∞"
		}
		b.row(s.ServiceKey, fmt.Sprintf("%d tiers", s.Tiers))
		b.sub("covers", s.Min.String()+".."+upper)
	}
	b.sep()
	if r.OK() {
		b.row("no overlaps or gaps", "OK")
	} else if r.WholeUnitsOK() {
		b.row("whole quantities covered", "OK")
	}
	for _, p := range r.Problems() {
		b.row(p, "")
	}
	b.bottom()
}

func renderServices(b *box, services []types.Service) {
	b.top("SERVICES")
	for _, svc := range services {
		p := capacity.ProfileOf(svc)
		b.row(svc.Key, svc.DisplayName())
		b.sub("monthly capacity", p.MonthlyCapacity.StringFixed(0))
		b.sub("monthly cost", svc.MonthlyCost.StringFixed(2))
		b.sub("cost per unit", p.CostPerUnit.StringFixed(4))
		for _, l := range svc.Labels {
			b.sub("label", l)
		}
	}
	b.bottom()
}

func renderIngestion(b *box, r *ingestion.Result) {
	b.top("TIER TABLE LOAD")
	b.row("Source", r.Source)
	b.row("Rows", fmt.Sprintf("%d", r.Rows))
	b.row("Services", fmt.Sprintf("%d", len(r.Services)))
	b.row("Hash", shortHash(r.Hash))
	status := "loaded"
	if r.Unchanged {
		status = "unchanged"
	}
	b.row("Status", status)
	for _, w := range r.Warnings {
		b.sub(w, "warning")
	}
	b.bottom()
}

func tierRange(t types.PriceTier) string {
	if t.Unbounded() {
		return t.MinVolume.String() + "+"
	}
	return t.MinVolume.String() + "–" + t.MaxVolume.String()
}

func money(c types.Currency, d decimal.Decimal) string {
	return fmt.Sprintf("%s %s", d.StringFixed(2), c)
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// truncate shortens s to maxLen runes; labels are often Arabic
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
