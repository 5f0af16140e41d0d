// Package main - Entry point for the apparel pricing HTTP server
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

	"apparel-pricing/api"
	"apparel-pricing/core/catalog"
	"apparel-pricing/core/provider"
	"apparel-pricing/internal/config"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
	"apparel-pricing/internal/store"
)

var version = "1.0.0"

func main() {
	cfgFile := flag.String("config", "", "config file (JSON; environment and .env override it)")
	addr := flag.String("addr", "", "server address (default from config)")
	flag.Parse()

	if err := run(*cfgFile, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgFile, addr string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()

	m := metrics.New()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	source, err := provider.FromConfig(cfg.Provider, cat, m)
	if err != nil {
		return err
	}

	opts := api.Options{
		Version: version,
		Catalog: cat,
		Source:  source,
		Metrics: m,
	}
	if cfg.Store.DatabasePath != "" {
		st, err := store.Open(cfg.Store.DatabasePath, m)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Quotes = st
	} else {
		logging.Warn("quote storage disabled; set PRICING_DB_PATH to enable saving quotes")
	}

	srv, err := api.NewServer(opts)
	if err != nil {
		return err
	}

	logging.Info("apparel pricing server starting",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("source", source.Name()),
		zap.Int("product_lines", cat.Len()))

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(cfg.Server.Addr) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case s := <-sig:
		logging.Info("shutting down", zap.String("signal", s.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
