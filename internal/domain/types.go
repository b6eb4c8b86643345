// Package domain defines the core data types shared across the quantics
// platform: price bars, trading signals, positions, round-trip trades, and
// equity curve points.
package domain

import "time"

// Bar is a single OHLCV price observation for a fixed time interval.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Signal is a per-bar trading decision emitted by a strategy.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Position is an open long holding in the simulated portfolio. Quantity is
// always >= 0; a zero quantity means no position is open.
type Position struct {
	Symbol        string
	Quantity      int64
	AvgEntryPrice float64
	EntryTime     time.Time
}

// Open reports whether the position holds any quantity.
func (p Position) Open() bool {
	return p.Quantity > 0
}

// MarketValue returns the position value at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}

// Trade is one completed round trip: a position that was opened and then
// fully closed. PnL is (exit price - average entry price) * quantity and
// does not include commission.
type Trade struct {
	Symbol     string
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Quantity   int64
	PnL        float64
}

// EquityPoint is one point on the equity curve: total portfolio value
// (cash + marked position) after processing the bar at Timestamp.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Market identifies the market a symbol trades in.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)
