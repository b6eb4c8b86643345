package datafeed

import (
	"context"
	"log/slog"
	"time"

	"quantics/internal/domain"
	"quantics/internal/store"
)

var _ Source = (*CachedSource)(nil)

// CachedSource is a read-through cache over a remote Source: bars already in
// the local store are served from disk, everything else is fetched from the
// remote and written back for the next run.
type CachedSource struct {
	remote Source
	store  store.BarStore
	market domain.Market
	log    *slog.Logger
}

// NewCachedSource wraps remote with the given bar store.
func NewCachedSource(remote Source, s store.BarStore, market domain.Market) *CachedSource {
	return &CachedSource{
		remote: remote,
		store:  s,
		market: market,
		log:    slog.Default().With("source", "cached"),
	}
}

// Fetch serves bars from the local store when present, otherwise fetches
// from the remote source and writes the result back. A write-back failure is
// logged but does not fail the fetch; the caller still gets the bars.
func (s *CachedSource) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	cached, err := s.store.ReadBars(ctx, symbol, s.market, start, end)
	if err == nil && len(cached) > 0 {
		s.log.Debug("cache hit", "symbol", symbol, "count", len(cached))
		return cached, nil
	}
	if err != nil {
		s.log.Warn("cache read failed, falling back to remote", "symbol", symbol, "error", err)
	}

	bars, err := s.remote.Fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.store.WriteBars(ctx, s.market, bars); err != nil {
		s.log.Warn("cache write-back failed", "symbol", symbol, "error", err)
	}
	return bars, nil
}
