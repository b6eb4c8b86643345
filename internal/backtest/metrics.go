package backtest

import (
	"math"

	"quantics/internal/domain"
)

// Metric name keys used in the metrics map.
const (
	MetricTotalReturn      = "total_return"
	MetricAnnualizedReturn = "annualized_return"
	MetricSharpeRatio      = "sharpe_ratio"
	MetricMaxDrawdown      = "max_drawdown"
	MetricWinRate          = "win_rate"
	MetricProfitFactor     = "profit_factor"
	MetricTotalTrades      = "total_trades"
	MetricFinalEquity      = "final_equity"
)

// MetricsConfig parametrizes the metrics calculation. It is passed explicitly
// into every call so the calculator stays stateless and safe to share across
// concurrent runs.
type MetricsConfig struct {
	RiskFreeRate float64 // annual risk-free rate used for Sharpe
	BarsPerYear  int     // annualization factor; 252 is the trading-day convention
}

// DefaultMetricsConfig returns the trading-day convention defaults.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{RiskFreeRate: 0, BarsPerYear: 252}
}

// ComputeMetrics derives the standard performance statistics from one run's
// equity curve and trade log. It is a pure function of its inputs.
//
// Edge cases are defined, not errors:
//   - annualized_return is NaN when the curve has fewer than two points.
//   - sharpe_ratio is exactly 0 when periodic returns have zero variance.
//   - max_drawdown is always <= 0, and exactly 0 for a non-decreasing curve.
//   - win_rate is 0 with an empty trade log.
//   - profit_factor is +Inf with winners and no losers, 0 with no trades.
func ComputeMetrics(equity []domain.EquityPoint, trades []domain.Trade, cfg MetricsConfig) map[string]float64 {
	if cfg.BarsPerYear <= 0 {
		cfg.BarsPerYear = 252
	}

	m := map[string]float64{
		MetricTotalReturn:      0,
		MetricAnnualizedReturn: math.NaN(),
		MetricSharpeRatio:      0,
		MetricMaxDrawdown:      0,
		MetricWinRate:          0,
		MetricProfitFactor:     0,
		MetricTotalTrades:      float64(len(trades)),
		MetricFinalEquity:      0,
	}
	if len(equity) == 0 {
		return m
	}

	n := len(equity)
	first, last := equity[0].Equity, equity[n-1].Equity
	m[MetricFinalEquity] = last

	totalReturn := last/first - 1
	m[MetricTotalReturn] = totalReturn

	if n > 1 {
		m[MetricAnnualizedReturn] = math.Pow(1+totalReturn, float64(cfg.BarsPerYear)/float64(n-1)) - 1
	}

	// Per-bar returns.
	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		returns = append(returns, equity[i].Equity/equity[i-1].Equity-1)
	}

	m[MetricSharpeRatio] = sharpe(returns, cfg)
	m[MetricMaxDrawdown] = maxDrawdown(equity)

	// Trade statistics.
	var wins int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			wins++
			grossProfit += t.PnL
		case t.PnL < 0:
			grossLoss += -t.PnL
		}
	}
	if len(trades) > 0 {
		m[MetricWinRate] = float64(wins) / float64(len(trades))
		if grossLoss > 0 {
			m[MetricProfitFactor] = grossProfit / grossLoss
		} else if grossProfit > 0 {
			m[MetricProfitFactor] = math.Inf(1)
		}
	}

	return m
}

// sharpe is the annualized ratio of mean excess per-bar return to the sample
// standard deviation of per-bar returns. Zero variance yields exactly 0.
func sharpe(returns []float64, cfg MetricsConfig) float64 {
	if len(returns) < 2 {
		return 0
	}

	rfPerBar := cfg.RiskFreeRate / float64(cfg.BarsPerYear)

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sqDiff float64
	for _, r := range returns {
		d := r - mean
		sqDiff += d * d
	}
	stdev := math.Sqrt(sqDiff / float64(len(returns)-1))
	if stdev == 0 {
		return 0
	}

	return (mean - rfPerBar) / stdev * math.Sqrt(float64(cfg.BarsPerYear))
}

// maxDrawdown is the deepest percentage decline from the running equity
// peak. It is <= 0, and 0 only when the curve never declines.
func maxDrawdown(equity []domain.EquityPoint) float64 {
	peak := equity[0].Equity
	var worst float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if dd := p.Equity/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}
