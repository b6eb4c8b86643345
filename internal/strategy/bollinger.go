package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quantics/internal/backtest"
	"quantics/internal/domain"
)

// bollinger is a band-reversion strategy: buy when the close falls below the
// lower Bollinger band, sell when it rises above the upper band.
type bollinger struct {
	period int
	dev    float64
}

var _ backtest.Strategy = (*bollinger)(nil)

// NewBollinger builds a Bollinger band reversion strategy.
//
// Parameters: period (default 20), devfactor (default 2).
func NewBollinger(params backtest.Params) (backtest.Strategy, error) {
	period, err := intParam(params, "period", 20)
	if err != nil {
		return nil, err
	}
	dev := floatParam(params, "devfactor", 2)
	if dev <= 0 {
		return nil, backtest.ParameterErrorf("devfactor must be positive, got %v", dev)
	}
	return &bollinger{period: period, dev: dev}, nil
}

func (s *bollinger) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	if len(bars) < s.period {
		return domain.SignalHold, nil
	}

	closes := closePrices(bars)
	upper, _, lower := talib.BBands(closes, s.period, s.dev, s.dev, talib.SMA)
	cur := closes[len(closes)-1]

	switch {
	case cur < lower[len(lower)-1]:
		return domain.SignalBuy, nil
	case cur > upper[len(upper)-1]:
		return domain.SignalSell, nil
	default:
		return domain.SignalHold, nil
	}
}
