// Package fetch refreshes watchlist metadata and daily bars from the
// market data feed. One broken ticker never aborts the rest of the run.
package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/api/marketdata"
	"github.com/Alias1177/spacradar/internal/config"
	"github.com/Alias1177/spacradar/models"
)

// MarketData is the feed contract the fetcher consumes.
type MarketData interface {
	GetDailyBar(ctx context.Context, symbol string) (*models.DailyBar, error)
	GetMetadata(ctx context.Context, symbol string) (*marketdata.Metadata, error)
}

// Store is the subset of the database the fetcher writes to.
type Store interface {
	UpsertTicker(ctx context.Context, t models.Ticker) error
	UpdateTickerMetadata(ctx context.Context, symbol, country, exchange string, ipoDate *time.Time) error
	UpsertDailyBar(ctx context.Context, bar models.DailyBar) error
	ListTickers(ctx context.Context) ([]models.Ticker, error)
}

// Fetcher is the first pipeline stage.
type Fetcher struct {
	store  Store
	api    MarketData
	logger zerolog.Logger
}

// New creates a Fetcher.
func New(store Store, api MarketData) *Fetcher {
	return &Fetcher{
		store:  store,
		api:    api,
		logger: log.With().Str("component", "fetch").Logger(),
	}
}

// Seed upserts the YAML watchlist into the store so later stages see
// every configured ticker even before its first successful fetch.
func (f *Fetcher) Seed(ctx context.Context, wl *config.Watchlist) error {
	for _, entry := range wl.Tickers {
		t := models.Ticker{Symbol: entry.Symbol, Company: entry.Company}
		if err := f.store.UpsertTicker(ctx, t); err != nil {
			return err
		}
	}

	f.logger.Info().Int("tickers", len(wl.Tickers)).Msg("Watchlist seeded")
	return nil
}

// Run fetches metadata and the latest finalized bar for each symbol.
// With no symbols given it processes every stored ticker. Per-ticker
// failures are logged and skipped.
func (f *Fetcher) Run(ctx context.Context, symbols []string) (models.StageResult, error) {
	if len(symbols) == 0 {
		tickers, err := f.store.ListTickers(ctx)
		if err != nil {
			return models.StageResult{}, err
		}
		for _, t := range tickers {
			symbols = append(symbols, t.Symbol)
		}
	}

	// Metadata and OHLCV are independent: a broken profile endpoint
	// must not lose the day's bar, and vice versa.
	updated := 0
	for _, symbol := range symbols {
		f.refreshMetadata(ctx, symbol)
		if f.refreshBar(ctx, symbol) {
			updated++
		}
	}

	f.logger.Info().Int("tickers", len(symbols)).Int("updated", updated).Msg("Fetch stage finished")

	return models.StageResult{Tickers: symbols}, nil
}

func (f *Fetcher) refreshMetadata(ctx context.Context, symbol string) {
	meta, err := f.api.GetMetadata(ctx, symbol)
	if err != nil {
		f.logger.Warn().Err(err).Str("ticker", symbol).Msg("Metadata fetch failed, skipping")
		return
	}
	if meta == nil {
		f.logger.Warn().Str("ticker", symbol).Msg("No profile data")
		return
	}

	if err := f.store.UpdateTickerMetadata(ctx, symbol, meta.Country, meta.Exchange, meta.IPODate); err != nil {
		f.logger.Warn().Err(err).Str("ticker", symbol).Msg("Metadata update failed, skipping")
		return
	}

	f.logger.Info().
		Str("ticker", symbol).
		Str("country", meta.Country).
		Str("exchange", meta.Exchange).
		Msg("Metadata updated")
}

func (f *Fetcher) refreshBar(ctx context.Context, symbol string) bool {
	bar, err := f.api.GetDailyBar(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			f.logger.Warn().Str("ticker", symbol).Msg("No OHLCV data")
		} else {
			f.logger.Warn().Err(err).Str("ticker", symbol).Msg("OHLCV fetch failed, skipping")
		}
		return false
	}
	if bar == nil {
		f.logger.Warn().Str("ticker", symbol).Msg("No OHLCV data")
		return false
	}

	if err := f.store.UpsertDailyBar(ctx, *bar); err != nil {
		f.logger.Warn().Err(err).Str("ticker", symbol).Msg("OHLCV store failed, skipping")
		return false
	}

	f.logger.Info().
		Str("ticker", symbol).
		Str("date", bar.TradeDate.Format(models.DateLayout)).
		Int64("volume", bar.Volume).
		Msg("Stored OHLCV")
	return true
}
