package datafeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantics/internal/domain"
	"quantics/internal/store"
)

// fakeRemote serves a canned bar series and counts fetches.
type fakeRemote struct {
	bars  []domain.Bar
	calls int
	err   error
}

func (f *fakeRemote) Fetch(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func testBars() []domain.Bar {
	return []domain.Bar{
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:      185, High: 186, Low: 184, Close: 185.5,
			Volume: 1000,
		},
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:      185.5, High: 187, Low: 185, Close: 186,
			Volume: 1100,
		},
	}
}

func TestCachedSourceReadThrough(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{bars: testBars()}
	ps := store.NewParquetStore(t.TempDir())
	src := NewCachedSource(remote, ps, domain.MarketUS)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	// First fetch misses the cache and hits the remote.
	bars, err := src.Fetch(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if remote.calls != 1 {
		t.Errorf("remote calls = %d, want 1", remote.calls)
	}

	// Second fetch is served from the Parquet cache.
	bars, err = src.Fetch(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("Fetch (cached): %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("cached fetch got %d bars, want 2", len(bars))
	}
	if remote.calls != 1 {
		t.Errorf("remote calls after cached fetch = %d, want 1", remote.calls)
	}
	if bars[0].Close != 185.5 || bars[1].Close != 186 {
		t.Errorf("cached closes = %v/%v, want 185.5/186", bars[0].Close, bars[1].Close)
	}
}

func TestCachedSourcePropagatesRemoteError(t *testing.T) {
	remote := &fakeRemote{err: ErrNotAvailable}
	ps := store.NewParquetStore(t.TempDir())
	src := NewCachedSource(remote, ps, domain.MarketUS)

	_, err := src.Fetch(context.Background(), "ZZZZ",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("got %v, want ErrNotAvailable", err)
	}
}
