package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"matali-pricing/core/types"
	apperrors "matali-pricing/internal/errors"
)

// QuoteSheet is the worksheet name of an exported quote
const QuoteSheet = "Quote"

var quoteHeaders = []string{
	"#", "Service", "Unit", "Tier", "Volume", "Unit Price",
	"Revenue", "Cost Used", "Margin Used", "Margin %",
}

// WriteQuoteXLSX writes q as a single-sheet workbook.
// Layout: title rows 1-3, headers on row 5, one row per line from row 6,
// then totals after a blank row.
func WriteQuoteXLSX(w io.Writer, q *types.Quote) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), QuoteSheet); err != nil {
		return apperrors.Internal("set sheet name", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(quoteHeaders))

	widths := []float64{5, 32, 10, 16, 10, 12, 14, 14, 14, 10}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(QuoteSheet, col, col, width); err != nil {
			return apperrors.Internal("set col width "+col, err)
		}
	}

	styles, err := newQuoteStyles(f)
	if err != nil {
		return err
	}

	set := func(cell string, v any) {
		if err == nil {
			err = f.SetCellValue(QuoteSheet, cell, v)
		}
	}
	style := func(from, to string, id int) {
		if err == nil {
			err = f.SetCellStyle(QuoteSheet, from, to, id)
		}
	}

	if err := f.MergeCell(QuoteSheet, "A1", lastCol+"1"); err != nil {
		return apperrors.Internal("merge title", err)
	}
	set("A1", sanitizeCell(q.Customer))
	style("A1", lastCol+"1", styles.title)
	set("A2", "Ref: "+q.ID)
	set("A3", fmt.Sprintf("Date: %s  Valid until: %s  Currency: %s",
		q.Date.Format("2006-01-02"), q.ValidUntil.Format("2006-01-02"), q.Currency))

	for i, h := range quoteHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		set(cell, h)
	}
	style("A5", lastCol+"5", styles.header)

	row := 6
	for i, l := range q.Lines {
		values := []any{
			i + 1,
			sanitizeCell(l.ServiceName),
			sanitizeCell(l.Unit),
			sanitizeCell(l.TierName),
			l.Quantity.InexactFloat64(),
			l.UnitPrice.InexactFloat64(),
			l.Revenue.InexactFloat64(),
			l.CostUsed.InexactFloat64(),
			l.MarginUsed.InexactFloat64(),
			l.MarginUsedPct.InexactFloat64(),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			set(cell, v)
		}
		style(fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), styles.line)
		row++
	}

	row++
	totals := []struct {
		label string
		col   string
		value float64
	}{
		{"Total Revenue:", "G", q.Totals.Revenue.InexactFloat64()},
		{"Total Cost:", "H", q.Totals.Cost.InexactFloat64()},
		{"Total Margin:", "I", q.Totals.Margin.InexactFloat64()},
		{"Margin %:", "J", q.Totals.MarginPct.InexactFloat64()},
	}
	for _, t := range totals {
		set(fmt.Sprintf("F%d", row), t.label)
		set(fmt.Sprintf("%s%d", t.col, row), t.value)
		style(fmt.Sprintf("F%d", row), fmt.Sprintf("%s%d", t.col, row), styles.total)
		row++
	}
	if err != nil {
		return apperrors.Internal("fill quote sheet", err)
	}

	if err := f.Write(w); err != nil {
		return apperrors.Internal("write quote workbook", err)
	}
	return nil
}

type quoteStyles struct {
	title, header, line, total int
}

func newQuoteStyles(f *excelize.File) (quoteStyles, error) {
	var s quoteStyles
	var err error

	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	}); err != nil {
		return s, apperrors.Internal("create title style", err)
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Border:    thinBorders(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, apperrors.Internal("create header style", err)
	}

	numFmt := "#,##0.00"
	if s.line, err = f.NewStyle(&excelize.Style{
		Border:       thinBorders(),
		CustomNumFmt: &numFmt,
	}); err != nil {
		return s, apperrors.Internal("create line style", err)
	}

	if s.total, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &numFmt,
	}); err != nil {
		return s, apperrors.Internal("create total style", err)
	}
	return s, nil
}

// sanitizeCell stops spreadsheet apps from evaluating user text as a formula
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
