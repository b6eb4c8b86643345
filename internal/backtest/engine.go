// Package backtest replays historical bar data through trading strategies
// and computes performance metrics. It contains the simulation engine, the
// metrics calculator, and the comparison/optimization sweeps built on top of
// them.
package backtest

import (
	"fmt"

	"quantics/internal/domain"
)

// Strategy is the capability the engine needs from a trading strategy: given
// the bars observed so far (oldest first, current bar last), emit a signal
// for the current bar. Implementations must not assume access to anything
// beyond the slice they are handed; they may carry indicator state across
// calls within one run, so a fresh instance is required for each run.
type Strategy interface {
	Evaluate(bars []domain.Bar) (domain.Signal, error)
}

// Params is a named set of strategy parameter values.
type Params map[string]float64

// Clone returns a copy of the parameter set.
func (p Params) Clone() Params {
	clone := make(Params, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// StrategyFactory builds a fresh Strategy instance from a parameter set.
// Factories reject invalid parameters with a *ParameterError before any bar
// is processed.
type StrategyFactory func(params Params) (Strategy, error)

// Result holds everything produced by one simulation run.
type Result struct {
	Params      Params
	Metrics     map[string]float64
	EquityCurve []domain.EquityPoint
	Trades      []domain.Trade
	FinalEquity float64
}

// Engine replays bars through a strategy under a fixed execution policy:
// long-only, at most one open position, full-cash market orders filled at
// the current bar's close.
type Engine struct {
	commission float64
	metricsCfg MetricsConfig
}

// NewEngine creates an Engine. commission is the fraction of traded notional
// charged on both entry and exit (0 disables costs). metricsCfg configures
// the metrics computed for each run.
func NewEngine(commission float64, metricsCfg MetricsConfig) *Engine {
	if commission < 0 {
		commission = 0
	}
	return &Engine{
		commission: commission,
		metricsCfg: metricsCfg,
	}
}

// Run simulates the strategy over the bar series starting with initialCash
// and returns the resulting equity curve, trade log, and metrics.
//
// Execution policy, bar by bar:
//   - The strategy only ever sees bars[0..i] when deciding at bar i.
//   - BUY with no open position spends all available cash at the bar close,
//     rounded down to whole units; if that rounds to zero units the signal
//     is a silent no-op.
//   - SELL with an open position liquidates everything at the bar close and
//     appends a Trade; PnL excludes commission.
//   - Redundant signals (BUY while holding, SELL while flat) and HOLD never
//     change state and never fail.
//
// A position still open after the last bar is left open; its unrealized PnL
// shows up in the final equity value only.
func (e *Engine) Run(bars []domain.Bar, strat Strategy, initialCash float64) (*Result, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}
	if initialCash <= 0 {
		return nil, dataErrorf("initial cash must be positive, got %v", initialCash)
	}
	if strat == nil {
		return nil, dataErrorf("strategy is nil")
	}

	cash := initialCash
	var pos domain.Position
	equity := make([]domain.EquityPoint, 0, len(bars))
	var trades []domain.Trade

	for i := range bars {
		bar := bars[i]

		sig, err := strat.Evaluate(bars[:i+1])
		if err != nil {
			return nil, fmt.Errorf("strategy failed at bar %d (%s): %w",
				i, bar.Timestamp.Format("2006-01-02"), err)
		}

		switch sig {
		case domain.SignalBuy:
			if !pos.Open() {
				price := bar.Close
				qty := int64(cash / (price * (1 + e.commission)))
				// Guard against float rounding pushing the cost past available cash.
				for qty > 0 && float64(qty)*price*(1+e.commission) > cash {
					qty--
				}
				if qty > 0 {
					notional := float64(qty) * price
					cash -= notional + notional*e.commission
					pos = domain.Position{
						Symbol:        bar.Symbol,
						Quantity:      qty,
						AvgEntryPrice: price,
						EntryTime:     bar.Timestamp,
					}
				}
			}
		case domain.SignalSell:
			if pos.Open() {
				price := bar.Close
				notional := float64(pos.Quantity) * price
				cash += notional - notional*e.commission
				trades = append(trades, domain.Trade{
					Symbol:     pos.Symbol,
					EntryTime:  pos.EntryTime,
					EntryPrice: pos.AvgEntryPrice,
					ExitTime:   bar.Timestamp,
					ExitPrice:  price,
					Quantity:   pos.Quantity,
					PnL:        (price - pos.AvgEntryPrice) * float64(pos.Quantity),
				})
				pos = domain.Position{}
			}
		case domain.SignalHold:
			// No state change.
		default:
			return nil, fmt.Errorf("strategy returned unknown signal %q at bar %d", sig, i)
		}

		equity = append(equity, domain.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    cash + pos.MarketValue(bar.Close),
		})
	}

	return &Result{
		Metrics:     ComputeMetrics(equity, trades, e.metricsCfg),
		EquityCurve: equity,
		Trades:      trades,
		FinalEquity: equity[len(equity)-1].Equity,
	}, nil
}

// validateBars rejects empty series, non-chronological timestamps, and
// non-positive prices before the simulation starts.
func validateBars(bars []domain.Bar) error {
	if len(bars) == 0 {
		return dataErrorf("empty bar series")
	}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return dataErrorf("non-positive price at bar %d (%s)",
				i, b.Timestamp.Format("2006-01-02"))
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return dataErrorf("timestamps not strictly increasing at bar %d (%s)",
				i, b.Timestamp.Format("2006-01-02"))
		}
	}
	return nil
}
