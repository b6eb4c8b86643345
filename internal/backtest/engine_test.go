package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"quantics/internal/domain"
)

// scriptedStrategy replays a fixed signal sequence, one signal per bar.
type scriptedStrategy struct {
	signals []domain.Signal
}

func (s *scriptedStrategy) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	i := len(bars) - 1
	if i >= len(s.signals) {
		return domain.SignalHold, nil
	}
	return s.signals[i], nil
}

// failingStrategy errors on the first bar.
type failingStrategy struct{}

func (failingStrategy) Evaluate(bars []domain.Bar) (domain.Signal, error) {
	return "", errors.New("indicator blew up")
}

// makeBars builds a daily bar series with the given closes, starting
// 2024-01-02. Open/high/low are derived from the close.
func makeBars(closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func script(signals ...domain.Signal) *scriptedStrategy {
	return &scriptedStrategy{signals: signals}
}

func TestRunBuyAndHold(t *testing.T) {
	e := NewEngine(0, DefaultMetricsConfig())
	bars := makeBars(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)

	res, err := e.Run(bars, script(domain.SignalBuy), 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 1000 cash buys exactly 10 units at 100; final equity is 10 * 109.
	if res.FinalEquity != 1090 {
		t.Errorf("final equity = %v, want 1090", res.FinalEquity)
	}
	if got := res.Metrics[MetricTotalReturn]; math.Abs(got-0.09) > 1e-12 {
		t.Errorf("total_return = %v, want 0.09", got)
	}
	if got := res.Metrics[MetricMaxDrawdown]; got != 0 {
		t.Errorf("max_drawdown = %v, want 0 for a non-decreasing curve", got)
	}
	// No sell signal, so the position stays open and no trade is logged.
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0 (position left open)", len(res.Trades))
	}
	if len(res.EquityCurve) != len(bars) {
		t.Errorf("equity curve has %d points, want %d", len(res.EquityCurve), len(bars))
	}
}

func TestRunRoundTrip(t *testing.T) {
	e := NewEngine(0, DefaultMetricsConfig())
	bars := makeBars(100, 110, 120, 90, 95)

	res, err := e.Run(bars, script(
		domain.SignalBuy,  // buy 10 @ 100
		domain.SignalHold,
		domain.SignalSell, // sell 10 @ 120
		domain.SignalHold,
		domain.SignalHold,
	), 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.Quantity != 10 || tr.EntryPrice != 100 || tr.ExitPrice != 120 {
		t.Errorf("trade = %+v, want qty 10 entry 100 exit 120", tr)
	}
	if tr.PnL != 200 {
		t.Errorf("trade PnL = %v, want 200", tr.PnL)
	}
	// All cash after the sell; the later dip to 90 does not touch equity.
	if res.FinalEquity != 1200 {
		t.Errorf("final equity = %v, want 1200", res.FinalEquity)
	}
	if res.Metrics[MetricMaxDrawdown] != 0 {
		t.Errorf("max_drawdown = %v, want 0", res.Metrics[MetricMaxDrawdown])
	}
}

func TestRunRedundantSignalsAreNoOps(t *testing.T) {
	e := NewEngine(0, DefaultMetricsConfig())
	bars := makeBars(100, 100, 100, 100)

	// Sell while flat, double buy, then nothing. Only the first buy acts.
	res, err := e.Run(bars, script(
		domain.SignalSell,
		domain.SignalBuy,
		domain.SignalBuy,
		domain.SignalHold,
	), 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0", len(res.Trades))
	}
	if res.FinalEquity != 1000 {
		t.Errorf("final equity = %v, want 1000", res.FinalEquity)
	}
}

func TestRunInsufficientCashIsNoOp(t *testing.T) {
	e := NewEngine(0, DefaultMetricsConfig())
	bars := makeBars(500, 510)

	// 100 cash cannot afford one unit at 500; buy is a silent no-op.
	res, err := e.Run(bars, script(domain.SignalBuy, domain.SignalHold), 100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FinalEquity != 100 {
		t.Errorf("final equity = %v, want 100", res.FinalEquity)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0", len(res.Trades))
	}
}

func TestRunCommissionReducesBuyingPower(t *testing.T) {
	e := NewEngine(0.01, DefaultMetricsConfig())
	bars := makeBars(100, 100)

	// 1000 cash at 1% commission affords 9 units, not 10.
	res, err := e.Run(bars, script(domain.SignalBuy, domain.SignalSell), 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	if res.Trades[0].Quantity != 9 {
		t.Errorf("quantity = %d, want 9", res.Trades[0].Quantity)
	}
	// PnL excludes commission, so a flat price round trip is zero.
	if res.Trades[0].PnL != 0 {
		t.Errorf("PnL = %v, want 0", res.Trades[0].PnL)
	}
	// Equity paid commission twice on 900 notional.
	want := 1000 - 2*9.0
	if math.Abs(res.FinalEquity-want) > 1e-9 {
		t.Errorf("final equity = %v, want %v", res.FinalEquity, want)
	}
}

func TestRunEquityNeverNegative(t *testing.T) {
	e := NewEngine(0.001, DefaultMetricsConfig())
	bars := makeBars(100, 50, 25, 12, 6)

	res, err := e.Run(bars, script(domain.SignalBuy), 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, p := range res.EquityCurve {
		if p.Equity < 0 {
			t.Errorf("equity[%d] = %v, must never be negative", i, p.Equity)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	e := NewEngine(0.001, DefaultMetricsConfig())
	bars := makeBars(100, 105, 98, 110, 107, 115)
	signals := []domain.Signal{
		domain.SignalBuy, domain.SignalHold, domain.SignalSell,
		domain.SignalBuy, domain.SignalHold, domain.SignalSell,
	}

	a, err := e.Run(bars, script(signals...), 10000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := e.Run(bars, script(signals...), 10000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if a.FinalEquity != b.FinalEquity {
		t.Errorf("runs differ: %v vs %v", a.FinalEquity, b.FinalEquity)
	}
	for k, v := range a.Metrics {
		w := b.Metrics[k]
		if v != w && !(math.IsNaN(v) && math.IsNaN(w)) {
			t.Errorf("metric %s differs: %v vs %v", k, v, w)
		}
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	e := NewEngine(0, DefaultMetricsConfig())
	good := makeBars(100, 101)

	var dataErr *DataError

	if _, err := e.Run(nil, script(), 1000); !errors.As(err, &dataErr) {
		t.Errorf("empty series: got %v, want DataError", err)
	}

	neg := makeBars(100, 101)
	neg[1].Close = -5
	if _, err := e.Run(neg, script(), 1000); !errors.As(err, &dataErr) {
		t.Errorf("negative price: got %v, want DataError", err)
	}

	unordered := makeBars(100, 101)
	unordered[1].Timestamp = unordered[0].Timestamp
	if _, err := e.Run(unordered, script(), 1000); !errors.As(err, &dataErr) {
		t.Errorf("duplicate timestamp: got %v, want DataError", err)
	}

	if _, err := e.Run(good, script(), 0); !errors.As(err, &dataErr) {
		t.Errorf("zero cash: got %v, want DataError", err)
	}
	if _, err := e.Run(good, nil, 1000); !errors.As(err, &dataErr) {
		t.Errorf("nil strategy: got %v, want DataError", err)
	}
}

func TestRunPropagatesStrategyError(t *testing.T) {
	e := NewEngine(0, DefaultMetricsConfig())
	_, err := e.Run(makeBars(100, 101), failingStrategy{}, 1000)
	if err == nil {
		t.Fatal("expected strategy error to propagate")
	}
}
