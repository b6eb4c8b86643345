package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"quantics/internal/backtest"
	"quantics/internal/config"
	"quantics/internal/datafeed"
	"quantics/internal/domain"
	"quantics/internal/report"
	"quantics/internal/store"
	"quantics/internal/strategy"
	"quantics/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quantics-backtest <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version     Print the version\n")
		fmt.Fprintf(os.Stderr, "  strategies  List built-in strategies\n")
		fmt.Fprintf(os.Stderr, "  run         Backtest one strategy and print its metrics\n")
		fmt.Fprintf(os.Stderr, "  compare     Backtest several strategies over the same bars\n")
		fmt.Fprintf(os.Stderr, "  optimize    Grid-search strategy parameters\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("quantics-backtest %s\n", version)

	case "strategies":
		for _, name := range strategy.DefaultRegistry().List() {
			fmt.Println(name)
		}

	case "run":
		err = cmdRun(ctx, os.Args[2:])

	case "compare":
		err = cmdCompare(ctx, os.Args[2:])

	case "optimize":
		err = cmdOptimize(ctx, os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// commonFlags are the flags shared by run, compare, and optimize.
type commonFlags struct {
	configPath string
	symbol     string
	start, end string
}

func registerCommon(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.configPath, "config", defaultConfigPath(), "path to config YAML")
	fs.StringVar(&cf.symbol, "symbol", "", "symbol to backtest (required)")
	fs.StringVar(&cf.start, "start", "", "start date YYYY-MM-DD (required)")
	fs.StringVar(&cf.end, "end", "", "end date YYYY-MM-DD (default today)")
}

func defaultConfigPath() string {
	if p := os.Getenv("QUANTICS_CONFIG"); p != "" {
		return p
	}
	return "config/quantics.yaml"
}

// setup loads config, initializes logging, and fetches the bar series.
func setup(ctx context.Context, cf *commonFlags) (*config.Config, []domain.Bar, error) {
	if cf.symbol == "" {
		return nil, nil, fmt.Errorf("-symbol is required")
	}
	if cf.start == "" {
		return nil, nil, fmt.Errorf("-start is required")
	}

	cfg, err := config.LoadOrDefault(cf.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	start, err := time.Parse("2006-01-02", cf.start)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing start date %q: %w", cf.start, err)
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if cf.end != "" {
		end, err = time.Parse("2006-01-02", cf.end)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing end date %q: %w", cf.end, err)
		}
	}
	if !start.Before(end) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	remote := datafeed.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, 0)
	src := datafeed.NewCachedSource(remote, pstore, domain.MarketUS)

	bars, err := src.Fetch(ctx, cf.symbol, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching bars for %s: %w", cf.symbol, err)
	}
	return cfg, bars, nil
}

func newEngine(cfg *config.Config) *backtest.Engine {
	return backtest.NewEngine(cfg.Backtest.Commission, backtest.MetricsConfig{
		RiskFreeRate: cfg.Backtest.RiskFreeRate,
		BarsPerYear:  cfg.Backtest.BarsPerYear,
	})
}

func lookupFactory(name string) (backtest.StrategyFactory, error) {
	factory, ok := strategy.DefaultRegistry().Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (see: quantics-backtest strategies)", name)
	}
	return factory, nil
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	stratName := fs.String("strategy", "buyhold", "strategy name")
	paramStr := fs.String("params", "", "strategy parameters, e.g. \"rsi_period=7,rsi_low=25\"")
	chartPath := fs.String("chart", "", "write the equity curve as an HTML chart to this path")
	noSave := fs.Bool("no-save", false, "skip persisting the run to the results database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params, err := parseParams(*paramStr)
	if err != nil {
		return err
	}
	factory, err := lookupFactory(*stratName)
	if err != nil {
		return err
	}

	cfg, bars, err := setup(ctx, &cf)
	if err != nil {
		return err
	}

	strat, err := factory(params)
	if err != nil {
		return err
	}

	res, err := newEngine(cfg).Run(bars, strat, cfg.Backtest.InitialCash)
	if err != nil {
		return err
	}
	res.Params = params

	fmt.Printf("%s %s  %s..%s  (%d bars)\n\n",
		strings.ToUpper(cf.symbol), *stratName, cf.start, cf.end, len(bars))
	if err := report.MetricsTable(os.Stdout, res.Metrics); err != nil {
		return err
	}

	if *chartPath != "" {
		title := fmt.Sprintf("%s %s", strings.ToUpper(cf.symbol), *stratName)
		if err := report.WriteEquityChart(*chartPath, title, res.EquityCurve); err != nil {
			return err
		}
		fmt.Printf("\nchart written to %s\n", *chartPath)
	}

	if !*noSave {
		rs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening results database: %w", err)
		}
		defer rs.Close()

		rec := &store.RunRecord{
			Symbol:      strings.ToUpper(cf.symbol),
			Strategy:    *stratName,
			Params:      params,
			InitialCash: cfg.Backtest.InitialCash,
			FinalEquity: res.FinalEquity,
			Metrics:     res.Metrics,
		}
		if err := rs.SaveRun(ctx, rec, res.Trades, res.EquityCurve); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Printf("\nrun saved as %s\n", rec.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// compare
// ---------------------------------------------------------------------------

func cmdCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	names := fs.String("strategies", "", "comma-separated strategy names (default: all built-ins)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []string
	if *names == "" {
		list = strategy.DefaultRegistry().List()
	} else {
		list = strings.Split(*names, ",")
	}

	configs := make([]backtest.StrategyConfig, 0, len(list))
	for _, name := range list {
		name = strings.TrimSpace(name)
		factory, err := lookupFactory(name)
		if err != nil {
			return err
		}
		configs = append(configs, backtest.StrategyConfig{Name: name, Factory: factory})
	}

	cfg, bars, err := setup(ctx, &cf)
	if err != nil {
		return err
	}

	rows := newEngine(cfg).Compare(ctx, configs, bars, cfg.Backtest.InitialCash, cfg.Backtest.MaxWorkers)

	fmt.Printf("%s  %s..%s  (%d bars)\n\n", strings.ToUpper(cf.symbol), cf.start, cf.end, len(bars))
	return report.CompareTable(os.Stdout, rows)
}

// ---------------------------------------------------------------------------
// optimize
// ---------------------------------------------------------------------------

func cmdOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	var cf commonFlags
	registerCommon(fs, &cf)
	stratName := fs.String("strategy", "", "strategy name (required)")
	gridStr := fs.String("grid", "", "parameter grid, e.g. \"fast_period=10,15;slow_period=40,50\" (required)")
	metric := fs.String("metric", backtest.MetricSharpeRatio, "metric to rank combinations by")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *stratName == "" {
		return fmt.Errorf("-strategy is required")
	}
	factory, err := lookupFactory(*stratName)
	if err != nil {
		return err
	}
	grid, err := parseGrid(*gridStr)
	if err != nil {
		return err
	}

	cfg, bars, err := setup(ctx, &cf)
	if err != nil {
		return err
	}

	rep, err := newEngine(cfg).Optimize(ctx, factory, bars, grid, *metric,
		cfg.Backtest.InitialCash, cfg.Backtest.MaxWorkers)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s  %s..%s  (%d combinations)\n\n",
		strings.ToUpper(cf.symbol), *stratName, cf.start, cf.end, rep.Combinations)
	return report.OptimizeTable(os.Stdout, rep)
}

// ---------------------------------------------------------------------------
// Flag value parsing
// ---------------------------------------------------------------------------

// parseParams parses "name=value,name=value" into a parameter set.
func parseParams(s string) (backtest.Params, error) {
	if s == "" {
		return nil, nil
	}
	params := make(backtest.Params)
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("bad parameter %q, want name=value", pair)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value for parameter %q: %w", name, err)
		}
		params[name] = f
	}
	return params, nil
}

// parseGrid parses "name=v1,v2;name=v3,v4" into a parameter grid. Parameter
// order in the string fixes the enumeration order.
func parseGrid(s string) (*backtest.Grid, error) {
	if s == "" {
		return nil, fmt.Errorf("-grid is required")
	}
	grid := backtest.NewGrid()
	for _, part := range strings.Split(s, ";") {
		name, list, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("bad grid entry %q, want name=v1,v2", part)
		}
		var values []float64
		for _, v := range strings.Split(list, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("bad value for grid parameter %q: %w", name, err)
			}
			values = append(values, f)
		}
		grid.Add(name, values)
	}
	return grid, nil
}
