// Package cmd - CLI commands: matali quote, matali quotes
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"matali-pricing/core/output"
	"matali-pricing/core/quote"
	"matali-pricing/core/types"
	"matali-pricing/db"
	apperrors "matali-pricing/internal/errors"
)

var (
	quoteFile     string
	quoteSave     bool
	quoteXLSX     string
	quotesCust    string
	quotesStatus  string
	quotesLimit   int
	quotesSummary bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Build a quote from a JSON request",
	Long: `Price every item of a quote request and print the quote.

The request file (or stdin with -f -) looks like:

  {
    "customer_name": "Acme Retail",
    "validity_days": 30,
    "items": [
      {"service_label": "ايراد التجهيز", "quantity": 1200},
      {"service_key": "shipping_cost", "quantity": 800}
    ]
  }

Items with zero quantity are skipped. The quote is only stored with --save.`,
	RunE: runQuote,
}

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "List saved quotes",
	RunE:  runQuotes,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(quotesCmd)

	quoteCmd.Flags().StringVarP(&quoteFile, "file", "f", "", "quote request JSON file, - for stdin")
	quoteCmd.Flags().BoolVar(&quoteSave, "save", false, "store the quote in the quote history")
	quoteCmd.Flags().StringVar(&quoteXLSX, "xlsx", "", "also write the quote to this .xlsx file")
	quoteCmd.MarkFlagRequired("file")

	quotesCmd.Flags().StringVar(&quotesCust, "customer", "", "only this customer")
	quotesCmd.Flags().StringVar(&quotesStatus, "status", "", "only this status (pending, accepted, rejected)")
	quotesCmd.Flags().IntVar(&quotesLimit, "limit", 20, "maximum number of quotes")
	quotesCmd.Flags().BoolVar(&quotesSummary, "summary", false, "print totals instead of the list")
}

func readQuoteRequest(path string) (quote.Request, error) {
	var req quote.Request

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, apperrors.Wrap(apperrors.TypeInput, "open quote request", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, apperrors.Parsing("decode quote request", err)
	}
	return req, nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := readQuoteRequest(quoteFile)
	if err != nil {
		return err
	}

	e, err := newEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	var q *types.Quote
	if quoteSave {
		q, err = e.CreateQuote(cmd.Context(), req)
	} else {
		q, err = e.Preview(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if quoteXLSX != "" {
		f, err := os.Create(quoteXLSX)
		if err != nil {
			return apperrors.Wrap(apperrors.TypeInput, "create "+quoteXLSX, err)
		}
		if err := output.WriteQuoteXLSX(f, q); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return apperrors.Internal("close "+quoteXLSX, err)
		}
		fmt.Fprintf(os.Stderr, "quote written to %s\n", quoteXLSX)
	}
	return render(q)
}

func runQuotes(cmd *cobra.Command, args []string) error {
	e, err := newEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	filter := &db.ListFilter{
		Customer: quotesCust,
		Status:   types.QuoteStatus(quotesStatus),
		Limit:    quotesLimit,
	}
	if quotesSummary {
		summary, err := e.Summary(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return render(summary)
	}

	quotes, err := e.ListQuotes(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return render(quotes)
}
