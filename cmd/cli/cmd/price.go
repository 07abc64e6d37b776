// Package cmd - CLI command: matali price
package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"matali-pricing/core/pricing"
	apperrors "matali-pricing/internal/errors"
)

var priceByKey bool

var priceCmd = &cobra.Command{
	Use:   "price <label> <quantity>",
	Short: "Price a quantity of one service",
	Long: `Resolve a service label to its key, find the tier covering the quantity
and print the unit price and total.

Unrecognized labels are priced as the default service unless
pricing.strict_labels is set. Use --key to pass a service key directly.`,
	Example: `  matali price "ايراد التجهيز" 1200
  matali price --key shipping_cost 501 --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)

	priceCmd.Flags().BoolVarP(&priceByKey, "key", "k", false, "treat the first argument as a service key")
}

func runPrice(cmd *cobra.Command, args []string) error {
	quantity, err := decimal.NewFromString(args[1])
	if err != nil {
		return apperrors.Wrap(apperrors.TypeInput, "invalid quantity "+args[1], err)
	}

	req := pricing.PriceRequest{Quantity: quantity}
	if priceByKey {
		req.ServiceKey = args[0]
	} else {
		req.Label = args[0]
	}

	e, err := newEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.Price(cmd.Context(), req)
	if err != nil {
		return err
	}
	return render(res)
}
