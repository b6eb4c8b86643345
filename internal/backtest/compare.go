package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"quantics/internal/domain"
)

// StrategyConfig names one strategy configuration to evaluate in a
// comparison sweep.
type StrategyConfig struct {
	Name    string
	Factory StrategyFactory
	Params  Params
}

// CompareRow is one row of a comparison table. Err is non-empty when the
// configuration failed; its metrics are then absent.
type CompareRow struct {
	Name    string
	Params  Params
	Metrics map[string]float64
	Err     string
}

// Failed reports whether this configuration's run failed.
func (r CompareRow) Failed() bool {
	return r.Err != ""
}

// Compare runs every configuration against the same bar series and returns
// one row per configuration, in input order. Rows never reorder by metric
// value, and a single failing configuration is recorded in its row instead
// of aborting the sweep.
//
// Runs execute on a bounded worker pool of maxWorkers goroutines; the bar
// series is shared read-only across them.
func (e *Engine) Compare(ctx context.Context, configs []StrategyConfig, bars []domain.Bar, initialCash float64, maxWorkers int) []CompareRow {
	rows := make([]CompareRow, len(configs))

	g := new(errgroup.Group)
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g.SetLimit(maxWorkers)

	for i := range configs {
		cfg := configs[i]
		rows[i] = CompareRow{Name: cfg.Name, Params: cfg.Params}

		if err := ctx.Err(); err != nil {
			// Sweep abandoned between runs; remaining rows are flagged.
			rows[i].Err = err.Error()
			continue
		}

		g.Go(func() error {
			metrics, err := e.runConfig(cfg.Factory, cfg.Params, bars, initialCash)
			if err != nil {
				rows[i].Err = err.Error()
				return nil
			}
			rows[i].Metrics = metrics
			return nil
		})
	}

	g.Wait()
	return rows
}

// runConfig builds a fresh strategy instance and runs one simulation,
// returning its metrics. Construction and run failures both surface here so
// sweeps can flag them per row.
func (e *Engine) runConfig(factory StrategyFactory, params Params, bars []domain.Bar, initialCash float64) (map[string]float64, error) {
	strat, err := factory(params)
	if err != nil {
		return nil, err
	}
	res, err := e.Run(bars, strat, initialCash)
	if err != nil {
		return nil, err
	}
	return res.Metrics, nil
}
