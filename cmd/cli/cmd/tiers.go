// Package cmd - CLI commands: matali tiers list|validate
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"matali-pricing/core/catalog"
	"matali-pricing/core/pricing"
	"matali-pricing/db/ingestion"
	"matali-pricing/internal/config"
	apperrors "matali-pricing/internal/errors"
	"matali-pricing/internal/logging"
)

var (
	tiersFile    string
	tiersSheet   string
	tiersService string
	tiersStrict  bool
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Tier table commands",
	Long:  "Commands for listing and validating the volume price tier table.",
}

var tiersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the tier table",
	RunE:  runTiersList,
}

var tiersValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a tier table without loading it",
	Long: `Run the ingestion pipeline up to validation, without committing:

  1. FETCH     - Read rows from the .csv or .xlsx file
  2. NORMALIZE - Parse volumes and prices
  3. VALIDATE  - Build the table, report overlaps, gaps and services
                 missing from the service master

Overlaps and missing services fail with --strict (or pricing.strict_tiers).
Gaps are always warnings.`,
	RunE: runTiersValidate,
}

func init() {
	rootCmd.AddCommand(tiersCmd)
	tiersCmd.AddCommand(tiersListCmd)
	tiersCmd.AddCommand(tiersValidateCmd)

	tiersCmd.PersistentFlags().StringVar(&tiersFile, "file", "", "tier table file (default is data.tiers_path)")
	tiersCmd.PersistentFlags().StringVar(&tiersSheet, "sheet", "", "worksheet of an .xlsx table (default is the first)")
	tiersListCmd.Flags().StringVarP(&tiersService, "service", "s", "", "only this service key")
	tiersValidateCmd.Flags().BoolVar(&tiersStrict, "strict", false, "reject overlaps and missing services")
}

// tiersPipeline builds a pipeline over --file, or the configured table, into a scratch store
func tiersPipeline(strict bool) (*ingestion.Pipeline, error) {
	cfg := config.Get()
	path, sheet := cfg.Data.TiersPath, cfg.Data.TiersSheet
	if tiersFile != "" {
		path, sheet = tiersFile, tiersSheet
	}

	fetcher, err := ingestion.FetcherFor(path, sheet)
	if err != nil {
		return nil, err
	}

	c := catalog.Default()
	if cfg.Data.ServicesPath != "" {
		if c, err = catalog.LoadFile(cfg.Data.ServicesPath); err != nil {
			return nil, err
		}
	}

	return ingestion.NewPipeline(fetcher, pricing.NewStore(), ingestion.Options{
		Strict:   strict || cfg.Pricing.StrictTiers,
		Contract: ingestion.ContractFor(c),
		Logger:   logging.Named("ingestion"),
	}), nil
}

func runTiersList(cmd *cobra.Command, args []string) error {
	p, err := tiersPipeline(false)
	if err != nil {
		return err
	}
	table, _, err := p.Build(cmd.Context())
	if err != nil {
		return err
	}

	if tiersService == "" {
		return render(table)
	}
	if !table.Has(tiersService) {
		return apperrors.NotFound("service", tiersService)
	}
	sub, err := pricing.NewTierTable(table.Tiers(tiersService))
	if err != nil {
		return err
	}
	return render(sub)
}

func runTiersValidate(cmd *cobra.Command, args []string) error {
	p, err := tiersPipeline(tiersStrict)
	if err != nil {
		return err
	}
	_, res, err := p.Build(cmd.Context())
	if err != nil {
		return err
	}

	if err := render(res.Report); err != nil {
		return err
	}
	if outputFormat != "json" {
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Printf("\n%d tiers across %d services, hash %s\n", res.Rows, len(res.Services), res.Hash)
	}
	return nil
}
