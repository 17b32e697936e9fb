// Package marketdata is the client for the daily quote/metadata feed.
// The rest of the system only sees GetDailyBar and GetMetadata; feed
// quirks (string-typed numbers, optional fields) stay in here.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/platform/http"
	"github.com/Alias1177/spacradar/models"
)

// ErrNoData is returned when the feed has no daily bar for a ticker.
var ErrNoData = errors.New("no daily bar available")

// Metadata is the company profile the lifecycle and risk rules consume,
// plus the exchange-reported volume averages the volume rule compares
// against.
type Metadata struct {
	Country         string
	Exchange        string
	IPODate         *time.Time
	AvgVolume10Day  int64
	AvgVolume3Month int64
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// Client is the market data API client
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewClient creates a new market data client with rate limiting
func NewClient(opts ClientOptions) *Client {
	return &Client{
		http: http.NewClient(http.ClientOptions{
			Timeout:        opts.RequestTimeout,
			RequestsPerSec: opts.RequestsPerSec,
		}),
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		logger:  log.With().Str("component", "marketdata").Logger(),
		now:     time.Now,
	}
}

type quoteValue struct {
	TradeDate string  `json:"trade_date"`
	Open      float64 `json:"open,string"`
	High      float64 `json:"high,string"`
	Low       float64 `json:"low,string"`
	Close     float64 `json:"close,string"`
	Volume    int64   `json:"volume,string"`
}

type quoteResponse struct {
	Symbol  string       `json:"symbol"`
	Values  []quoteValue `json:"values"`
	Status  string       `json:"status,omitempty"`
	Message string       `json:"message,omitempty"`
}

type profileResponse struct {
	Symbol          string `json:"symbol"`
	Country         string `json:"country"`
	Exchange        string `json:"exchange"`
	IPODate         string `json:"ipo_date"`
	AvgVolume10Day  int64  `json:"avg_volume_10d"`
	AvgVolume3Month int64  `json:"avg_volume_3m"`
	Status          string `json:"status,omitempty"`
	Message         string `json:"message,omitempty"`
}

// GetDailyBar fetches the latest finalized daily OHLCV row for a ticker.
// The feed returns sessions newest-first; a row dated today is still
// forming, so the previous session is used instead when one is present.
// Returns ErrNoData when the feed has nothing for the symbol.
func (c *Client) GetDailyBar(ctx context.Context, symbol string) (*models.DailyBar, error) {
	u := fmt.Sprintf("%s/v1/quote/daily?symbol=%s&outputsize=2&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)

	c.logger.Debug().Str("symbol", symbol).Msg("Fetching daily bar")

	var data quoteResponse
	if err := c.http.GetJSON(ctx, u, &data); err != nil {
		return nil, fmt.Errorf("fetching daily bar for %s: %w", symbol, err)
	}

	if data.Status == "error" {
		c.logger.Warn().Str("symbol", symbol).Str("message", data.Message).Msg("Feed error")
		return nil, fmt.Errorf("feed error for %s: %s", symbol, data.Message)
	}

	value, ok := c.selectSession(data.Values)
	if !ok {
		return nil, ErrNoData
	}

	tradeDate, err := time.Parse(models.DateLayout, value.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("malformed trade date %q for %s: %w", value.TradeDate, symbol, err)
	}

	return &models.DailyBar{
		Ticker:    symbol,
		TradeDate: tradeDate,
		Open:      value.Open,
		High:      value.High,
		Low:       value.Low,
		Close:     value.Close,
		Volume:    value.Volume,
	}, nil
}

// selectSession picks the bar to store from a newest-first session list.
// A bar carrying today's date is skipped in favor of the one before it,
// so intraday partial volume never enters the history. With only a
// today-dated row available it is taken as-is rather than dropped.
func (c *Client) selectSession(values []quoteValue) (quoteValue, bool) {
	if len(values) == 0 {
		return quoteValue{}, false
	}
	today := c.now().Format(models.DateLayout)
	if values[0].TradeDate == today && len(values) > 1 {
		return values[1], true
	}
	return values[0], true
}

// GetMetadata fetches the company profile for a ticker. A malformed or
// missing IPO date yields a nil IPODate rather than an error, so one bad
// field never blocks the volume and risk rules.
func (c *Client) GetMetadata(ctx context.Context, symbol string) (*Metadata, error) {
	u := fmt.Sprintf("%s/v1/quote/profile?symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)

	c.logger.Debug().Str("symbol", symbol).Msg("Fetching metadata")

	var data profileResponse
	if err := c.http.GetJSON(ctx, u, &data); err != nil {
		return nil, fmt.Errorf("fetching metadata for %s: %w", symbol, err)
	}

	if data.Status == "error" {
		c.logger.Warn().Str("symbol", symbol).Str("message", data.Message).Msg("Feed error")
		return nil, fmt.Errorf("feed error for %s: %s", symbol, data.Message)
	}

	meta := &Metadata{
		Country:         data.Country,
		Exchange:        data.Exchange,
		AvgVolume10Day:  data.AvgVolume10Day,
		AvgVolume3Month: data.AvgVolume3Month,
	}

	if data.IPODate != "" {
		if ipo, err := time.Parse(models.DateLayout, data.IPODate); err == nil {
			meta.IPODate = &ipo
		} else {
			c.logger.Warn().Str("symbol", symbol).Str("ipo_date", data.IPODate).Msg("Skipping malformed IPO date")
		}
	}

	return meta, nil
}
