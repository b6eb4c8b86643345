package strategy

import (
	"quantics/internal/backtest"
	"quantics/internal/domain"
)

// buyHold buys on the first bar and never sells. It is the baseline every
// other strategy is compared against.
type buyHold struct{}

var _ backtest.Strategy = (*buyHold)(nil)

// NewBuyHold builds the buy-and-hold baseline. It takes no parameters.
func NewBuyHold(backtest.Params) (backtest.Strategy, error) {
	return &buyHold{}, nil
}

func (s *buyHold) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	if len(bars) == 1 {
		return domain.SignalBuy, nil
	}
	return domain.SignalHold, nil
}
