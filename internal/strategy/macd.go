package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quantics/internal/backtest"
	"quantics/internal/domain"
)

// macdStrategy trades MACD signal-line crossovers: buy when the MACD line
// crosses above its signal line, sell when it crosses back below.
type macdStrategy struct {
	fast, slow, signal int

	prevDiff float64
	primed   bool
}

var _ backtest.Strategy = (*macdStrategy)(nil)

// NewMACD builds a MACD crossover strategy.
//
// Parameters: fastperiod (default 12), slowperiod (default 26), signalperiod
// (default 9). The fast period must be strictly smaller than the slow period.
func NewMACD(params backtest.Params) (backtest.Strategy, error) {
	fast, err := intParam(params, "fastperiod", 12)
	if err != nil {
		return nil, err
	}
	slow, err := intParam(params, "slowperiod", 26)
	if err != nil {
		return nil, err
	}
	sig, err := intParam(params, "signalperiod", 9)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, backtest.ParameterErrorf("fastperiod (%d) must be smaller than slowperiod (%d)", fast, slow)
	}
	return &macdStrategy{fast: fast, slow: slow, signal: sig}, nil
}

func (s *macdStrategy) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	// The signal line needs slow+signal closes to settle.
	if len(bars) < s.slow+s.signal {
		return domain.SignalHold, nil
	}

	macd, sigLine, _ := talib.Macd(closePrices(bars), s.fast, s.slow, s.signal)
	diff := macd[len(macd)-1] - sigLine[len(sigLine)-1]

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
