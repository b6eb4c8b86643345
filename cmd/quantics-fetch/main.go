package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"quantics/internal/config"
	"quantics/internal/datafeed"
	"quantics/internal/domain"
	"quantics/internal/store"
	"quantics/internal/util"
)

// quantics-fetch downloads daily bars from the Alpaca API into the local
// Parquet cache so later backtests run fully offline.
func main() {
	cfgPath := flag.String("config", "config/quantics.yaml", "path to config YAML")
	symbols := flag.String("symbols", "", "comma-separated symbols to fetch (required)")
	startStr := flag.String("start", "", "start date YYYY-MM-DD (required)")
	endStr := flag.String("end", "", "end date YYYY-MM-DD (default today)")
	flag.Parse()

	if p := os.Getenv("QUANTICS_CONFIG"); p != "" && *cfgPath == "config/quantics.yaml" {
		*cfgPath = p
	}
	if *symbols == "" || *startStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("parsing start date: %v", err)
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		if end, err = time.Parse("2006-01-02", *endStr); err != nil {
			log.Fatalf("parsing end date: %v", err)
		}
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	remote := datafeed.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, 0)
	src := datafeed.NewCachedSource(remote, pstore, domain.MarketUS)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Backtest.MaxWorkers)

	for _, sym := range strings.Split(*symbols, ",") {
		sym := strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		g.Go(func() error {
			bars, err := src.Fetch(ctx, sym, start, end)
			if errors.Is(err, datafeed.ErrNotAvailable) {
				logger.Warn("no bars", "symbol", sym)
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", sym, err)
			}
			logger.Info("cached", "symbol", sym, "bars", len(bars))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("fetch error: %v", err)
	}
}
