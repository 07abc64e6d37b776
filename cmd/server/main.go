// Package main - Entry point for the Matali pricing server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"matali-pricing/api"
	"matali-pricing/core/engine"
	"matali-pricing/internal/config"
	"matali-pricing/internal/logging"
	"matali-pricing/internal/metrics"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "matali.yaml", "config file (.yaml or .json); missing file means defaults")
	addr := flag.String("addr", "", "server address (overrides server.addr)")
	reloadEvery := flag.Duration("reload-every", 0, "re-read the tier table on this interval (0 disables)")
	flag.Parse()

	if err := run(*configPath, *addr, *reloadEvery); err != nil {
		fmt.Fprintf(os.Stderr, "matali-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, reloadEvery time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(ctx, nil); err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()

	e, err := engine.New(ctx, cfg, engine.Options{
		Metrics: metrics.New(),
		Logger:  logging.Named("engine"),
	})
	if err != nil {
		return err
	}
	defer e.Close()

	logging.Info("matali pricing server", zap.String("version", version), zap.String("addr", cfg.Server.Addr))
	return api.NewServer(e, version, logging.Named("api")).Run(ctx, cfg.Server, reloadEvery)
}
