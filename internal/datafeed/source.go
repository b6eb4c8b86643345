// Package datafeed provides historical daily bar sources: a remote source
// backed by the Alpaca market-data API and a caching wrapper over the local
// Parquet store.
package datafeed

import (
	"context"
	"errors"
	"time"

	"quantics/internal/domain"
)

// ErrNotAvailable reports that a source has no bars for the requested symbol
// and date range.
var ErrNotAvailable = errors.New("datafeed: no bars available")

// Source fetches daily bars for one symbol over a date range, oldest first.
type Source interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}
