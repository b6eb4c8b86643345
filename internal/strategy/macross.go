package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quantics/internal/backtest"
	"quantics/internal/domain"
)

// maCross trades moving-average crossovers: buy when the fast SMA crosses
// above the slow SMA, sell when it crosses back below.
type maCross struct {
	fast, slow int

	// prevDiff carries the fast-minus-slow spread from the previous bar so a
	// crossover is only signalled on the bar where the sign flips.
	prevDiff float64
	primed   bool
}

var _ backtest.Strategy = (*maCross)(nil)

// NewMACross builds a moving-average crossover strategy.
//
// Parameters: fast_period (default 20), slow_period (default 50). The fast
// period must be strictly smaller than the slow period.
func NewMACross(params backtest.Params) (backtest.Strategy, error) {
	fast, err := intParam(params, "fast_period", 20)
	if err != nil {
		return nil, err
	}
	slow, err := intParam(params, "slow_period", 50)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, backtest.ParameterErrorf("fast_period (%d) must be smaller than slow_period (%d)", fast, slow)
	}
	return &maCross{fast: fast, slow: slow}, nil
}

func (s *maCross) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	if len(bars) < s.slow {
		return domain.SignalHold, nil
	}

	closes := closePrices(bars)
	fastMA := talib.Sma(closes, s.fast)
	slowMA := talib.Sma(closes, s.slow)
	diff := fastMA[len(fastMA)-1] - slowMA[len(slowMA)-1]

	defer func() {
		s.prevDiff = diff
		s.primed = true
	}()

	if !s.primed {
		return domain.SignalHold, nil
	}
	if s.prevDiff <= 0 && diff > 0 {
		return domain.SignalBuy, nil
	}
	if s.prevDiff >= 0 && diff < 0 {
		return domain.SignalSell, nil
	}
	return domain.SignalHold, nil
}

func closePrices(bars []domain.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
