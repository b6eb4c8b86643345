package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quantics/internal/backtest"
	"quantics/internal/domain"
)

// rsiStrategy is a mean-reversion strategy on the Relative Strength Index:
// buy when RSI drops below the low threshold, sell when it rises above the
// high threshold.
type rsiStrategy struct {
	period    int
	low, high float64
}

var _ backtest.Strategy = (*rsiStrategy)(nil)

// NewRSI builds an RSI mean-reversion strategy.
//
// Parameters: rsi_period (default 14), rsi_low (default 30), rsi_high
// (default 70). Thresholds must satisfy 0 <= rsi_low < rsi_high <= 100.
func NewRSI(params backtest.Params) (backtest.Strategy, error) {
	period, err := intParam(params, "rsi_period", 14)
	if err != nil {
		return nil, err
	}
	low := floatParam(params, "rsi_low", 30)
	high := floatParam(params, "rsi_high", 70)
	if low < 0 || high > 100 || low >= high {
		return nil, backtest.ParameterErrorf("thresholds must satisfy 0 <= rsi_low < rsi_high <= 100, got %v/%v", low, high)
	}
	return &rsiStrategy{period: period, low: low, high: high}, nil
}

func (s *rsiStrategy) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	// RSI needs period+1 closes before its first defined value.
	if len(bars) < s.period+1 {
		return domain.SignalHold, nil
	}

	rsi := talib.Rsi(closePrices(bars), s.period)
	cur := rsi[len(rsi)-1]

	switch {
	case cur < s.low:
		return domain.SignalBuy, nil
	case cur > s.high:
		return domain.SignalSell, nil
	default:
		return domain.SignalHold, nil
	}
}
