// Package store defines storage interfaces for persisting and retrieving
// domain objects: cached price bars and completed backtest runs.
package store

import (
	"context"
	"time"

	"quantics/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end],
	// sorted by timestamp ascending.
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// RunRecord is the persisted summary of one completed backtest run.
type RunRecord struct {
	ID          string
	CreatedAt   time.Time
	Symbol      string
	Strategy    string
	Params      map[string]float64
	InitialCash float64
	FinalEquity float64
	Metrics     map[string]float64
}

// ResultStore persists and retrieves backtest run results.
type ResultStore interface {
	// SaveRun inserts a run together with its trade log and equity curve.
	// A missing ID or CreatedAt is filled in before the insert.
	SaveRun(ctx context.Context, rec *RunRecord, trades []domain.Trade, equity []domain.EquityPoint) error

	// GetRun retrieves a single run summary by its ID.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// LoadTrades returns the trade log of a run in entry-time order.
	LoadTrades(ctx context.Context, runID string) ([]domain.Trade, error)

	// LoadEquity returns the equity curve of a run in time order.
	LoadEquity(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}
