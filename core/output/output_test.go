package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"matali-pricing/core/pricing"
	"matali-pricing/core/types"
	"matali-pricing/db/ingestion"
	apperrors "matali-pricing/internal/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleQuote() *types.Quote {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &types.Quote{
		ID:           "q-1",
		Customer:     "=Acme Retail",
		Date:         date,
		ValidityDays: 30,
		ValidUntil:   date.AddDate(0, 0, 30),
		Currency:     types.CurrencySAR,
		Status:       types.QuotePending,
		Lines: []types.QuoteLine{{
			ServiceKey:    "preparation_team",
			ServiceName:   "Order preparation",
			Unit:          "order",
			TierName:      "T1",
			Quantity:      d("500"),
			UnitPrice:     d("6"),
			Revenue:       d("3000"),
			CostUsed:      d("1000"),
			MarginUsed:    d("2000"),
			MarginUsedPct: d("66.67"),
		}},
		Totals: types.QuoteTotals{Revenue: d("3000"), Cost: d("1000"), Margin: d("2000"), MarginPct: d("66.67")},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCLI, false},
		{"CLI", FormatCLI, false},
		{" json ", FormatJSON, false},
		{"html", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCLIRenderQuote(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CLIFormatter{}).Render(&buf, sampleQuote()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"QUOTE q-1", "Order preparation", "3000.00 SAR", "TOTAL MARGIN", "66.67%", "2026-03-31"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// every line of the box has the same rune width
	var width int
	for i, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		n := len([]rune(line))
		if i == 0 {
			width = n
		} else if n != width {
			t.Errorf("line %d width %d, want %d: %q", i, n, width, line)
		}
	}
}

func TestCLIRenderTiersAndReport(t *testing.T) {
	table, err := pricing.NewTierTable([]types.PriceTier{
		{ServiceKey: "shipping_cost", TierName: "S1", MinVolume: d("0"), MaxVolume: d("500"), UnitPrice: d("8")},
		{ServiceKey: "shipping_cost", TierName: "S2", MinVolume: d("600"), UnitPrice: d("7")},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	f := &CLIFormatter{}
	if err := f.Render(&buf, table); err != nil {
		t.Fatalf("Render tiers: %v", err)
	}
	if !strings.Contains(buf.String(), "600+") || !strings.Contains(buf.String(), "2 tiers") {
		t.Errorf("tiers output:\n%s", buf.String())
	}

	buf.Reset()
	if err := f.Render(&buf, table.Validate()); err != nil {
		t.Fatalf("Render report: %v", err)
	}
	if !strings.Contains(buf.String(), "shipping_cost: gap 500 < q < 600") {
		t.Errorf("report should list the gap:\n%s", buf.String())
	}
}

func TestCLIRenderIngestionResult(t *testing.T) {
	var buf bytes.Buffer
	res := &ingestion.Result{Source: "tiers.csv", Rows: 4, Services: []string{"a"}, Hash: "0123456789abcdef", Unchanged: true}
	if err := (&CLIFormatter{}).Render(&buf, res); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "unchanged") || !strings.Contains(buf.String(), "0123456789ab") {
		t.Errorf("ingestion output:\n%s", buf.String())
	}
}

func TestCLIRenderUnsupported(t *testing.T) {
	err := (&CLIFormatter{}).Render(&bytes.Buffer{}, 42)
	if !apperrors.IsType(err, apperrors.TypeNotSupported) {
		t.Errorf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestJSONRender(t *testing.T) {
	f, err := New(FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Render(&buf, sampleQuote()); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if got["customer_name"] != "=Acme Retail" || got["id"] != "q-1" {
		t.Errorf("decoded = %v", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := truncate("ايراد التجهيز", 20); got != "ايراد التجهيز" {
		t.Errorf("short label changed: %q", got)
	}
	if got := truncate("ايراد التجهيز الشهري", 10); got != "ايراد ا..." {
		t.Errorf("truncate = %q", got)
	}
}

func TestWriteQuoteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQuoteXLSX(&buf, sampleQuote()); err != nil {
		t.Fatalf("WriteQuoteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(QuoteSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) < 6 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0][0] != "'=Acme Retail" {
		t.Errorf("title = %q, formula prefix should be escaped", rows[0][0])
	}
	if rows[4][1] != "Service" {
		t.Errorf("header row = %v", rows[4])
	}
	if rows[5][1] != "Order preparation" || rows[5][6] != "3000" {
		t.Errorf("line row = %v", rows[5])
	}

	revenue, err := f.GetCellValue(QuoteSheet, "G8", excelize.Options{RawCellValue: true})
	if err != nil || revenue != "3000" {
		t.Errorf("total revenue cell = %q, %v", revenue, err)
	}
}

func TestSanitizeCell(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"Shipping": "Shipping",
		"=SUM(A1)": "'=SUM(A1)",
		"-5":       "'-5",
		"@cmd":     "'@cmd",
	}
	for in, want := range tests {
		if got := sanitizeCell(in); got != want {
			t.Errorf("sanitizeCell(%q) = %q, want %q", in, got, want)
		}
	}
}
