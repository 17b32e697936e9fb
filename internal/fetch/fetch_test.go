package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/spacradar/internal/api/marketdata"
	"github.com/Alias1177/spacradar/internal/config"
	"github.com/Alias1177/spacradar/models"
)

type fakeFeed struct {
	bars    map[string]*models.DailyBar
	meta    map[string]*marketdata.Metadata
	barErr  map[string]error
	metaErr map[string]error
}

func (f *fakeFeed) GetDailyBar(_ context.Context, symbol string) (*models.DailyBar, error) {
	if err := f.barErr[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakeFeed) GetMetadata(_ context.Context, symbol string) (*marketdata.Metadata, error) {
	if err := f.metaErr[symbol]; err != nil {
		return nil, err
	}
	return f.meta[symbol], nil
}

type fakeStore struct {
	tickers []models.Ticker
	bars    []models.DailyBar
}

func (f *fakeStore) UpsertTicker(_ context.Context, t models.Ticker) error {
	f.tickers = append(f.tickers, t)
	return nil
}

func (f *fakeStore) UpdateTickerMetadata(_ context.Context, symbol, country, exchange string, ipoDate *time.Time) error {
	for i := range f.tickers {
		if f.tickers[i].Symbol == symbol {
			f.tickers[i].Country = country
			f.tickers[i].Exchange = exchange
			f.tickers[i].IPODate = ipoDate
		}
	}
	return nil
}

func (f *fakeStore) UpsertDailyBar(_ context.Context, bar models.DailyBar) error {
	f.bars = append(f.bars, bar)
	return nil
}

func (f *fakeStore) ListTickers(_ context.Context) ([]models.Ticker, error) {
	return f.tickers, nil
}

func TestRunIsolatesPerTickerFailures(t *testing.T) {
	tradeDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feed := &fakeFeed{
		bars: map[string]*models.DailyBar{
			"ANNA": {Ticker: "ANNA", TradeDate: tradeDate, Close: 4.36, Volume: 5000},
			"BOLT": {Ticker: "BOLT", TradeDate: tradeDate, Close: 9.80, Volume: 300_000},
			"CLOV": {Ticker: "CLOV", TradeDate: tradeDate, Close: 2.10, Volume: 100},
		},
		meta: map[string]*marketdata.Metadata{
			"ANNA": {Country: "China", Exchange: "NASDAQ"},
			"CLOV": {Country: "United States", Exchange: "NYSE"},
		},
		metaErr: map[string]error{"BOLT": errors.New("feed timeout")},
		barErr:  map[string]error{"CLOV": errors.New("connection reset")},
	}
	store := &fakeStore{tickers: []models.Ticker{{Symbol: "ANNA"}, {Symbol: "BOLT"}, {Symbol: "CLOV"}}}

	f := New(store, feed)
	res, err := f.Run(context.Background(), nil)
	require.NoError(t, err)

	// Each ticker's failures stay its own: BOLT's broken profile call
	// does not lose its bar, CLOV's broken quote call does not lose its
	// metadata, and ANNA is untouched by either.
	assert.Equal(t, []string{"ANNA", "BOLT", "CLOV"}, res.Tickers)
	require.Len(t, store.bars, 2)
	assert.Equal(t, "ANNA", store.bars[0].Ticker)
	assert.Equal(t, "BOLT", store.bars[1].Ticker)
	assert.Equal(t, "China", store.tickers[0].Country)
	assert.Equal(t, "United States", store.tickers[2].Country)
}

func TestRunMetadataFailureStillStoresBar(t *testing.T) {
	tradeDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feed := &fakeFeed{
		bars:    map[string]*models.DailyBar{"ANNA": {Ticker: "ANNA", TradeDate: tradeDate, Close: 4.36, Volume: 5000}},
		metaErr: map[string]error{"ANNA": errors.New("profile endpoint down")},
	}
	store := &fakeStore{tickers: []models.Ticker{{Symbol: "ANNA"}}}

	_, err := New(store, feed).Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, store.bars, 1)
	assert.Equal(t, "ANNA", store.bars[0].Ticker)
	assert.Empty(t, store.tickers[0].Country)
}

func TestRunNilBarIsSkippedNotPanic(t *testing.T) {
	// A feed reporting neither a bar nor an error for a symbol is
	// treated like the no-data case.
	feed := &fakeFeed{
		meta: map[string]*marketdata.Metadata{"ANNA": {Country: "United States"}},
	}
	store := &fakeStore{tickers: []models.Ticker{{Symbol: "ANNA"}, {Symbol: "GONE"}}}

	res, err := New(store, feed).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ANNA", "GONE"}, res.Tickers)
	assert.Empty(t, store.bars)
	assert.Equal(t, "United States", store.tickers[0].Country)
	assert.Empty(t, store.tickers[1].Country)
}

func TestRunTreatsNoDataAsSkip(t *testing.T) {
	feed := &fakeFeed{
		meta:   map[string]*marketdata.Metadata{"ANNA": {Country: "United States"}},
		barErr: map[string]error{"ANNA": marketdata.ErrNoData},
	}
	store := &fakeStore{tickers: []models.Ticker{{Symbol: "ANNA"}}}

	res, err := New(store, feed).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ANNA"}, res.Tickers)
	assert.Empty(t, store.bars)
}

func TestSeed(t *testing.T) {
	store := &fakeStore{}
	wl := &config.Watchlist{Tickers: []config.WatchlistEntry{
		{Symbol: "ANNA", Company: "Anna Acquisition Corp"},
		{Symbol: "BOLT"},
	}}

	require.NoError(t, New(store, &fakeFeed{}).Seed(context.Background(), wl))
	require.Len(t, store.tickers, 2)
	assert.Equal(t, "Anna Acquisition Corp", store.tickers[0].Company)
}
