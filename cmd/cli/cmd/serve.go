// Package cmd - CLI command: matali serve
package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"matali-pricing/api"
	"matali-pricing/internal/config"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

var (
	serveAddr        string
	serveReloadEvery time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pricing HTTP API",
	Long: `Load the tier table and service master, then serve the HTTP API.

The tier table is loaded once at start; a table that fails to load stops
the server. Use POST /tiers/reload or --reload-every to pick up changes.
SIGINT and SIGTERM shut the server down gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().DurationVar(&serveReloadEvery, "reload-every", 0, "re-read the tier table on this interval (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logging.Sync()

	cfg := config.Get()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	e, err := newEngine(ctx, metrics.New())
	if err != nil {
		return err
	}
	defer e.Close()

	srv := api.NewServer(e, Version, logging.Named("api"))
	return srv.Run(ctx, cfg.Server, serveReloadEvery)
}
