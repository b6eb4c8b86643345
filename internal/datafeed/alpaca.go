package datafeed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"quantics/internal/domain"
	"quantics/internal/util"
)

var _ Source = (*AlpacaSource)(nil)

// AlpacaSource fetches daily OHLCV bars for US equities from the Alpaca
// market-data API. Requests are rate limited and retried with exponential
// backoff.
type AlpacaSource struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given Alpaca credentials.
// dataURL overrides the default market-data endpoint when non-empty.
// ratePerMin bounds the request rate (200 is the free-tier limit).
func NewAlpacaSource(apiKey, apiSecret, dataURL string, ratePerMin int) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if ratePerMin <= 0 {
		ratePerMin = 200
	}

	return &AlpacaSource{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		log:     slog.Default().With("source", "alpaca"),
	}
}

// Fetch downloads daily bars for one symbol, oldest first. It returns
// ErrNotAvailable when the API has nothing for the range.
func (s *AlpacaSource) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		alpacaBars, err = s.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      "sip",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNotAvailable,
			symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	s.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return bars, nil
}
