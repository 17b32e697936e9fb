package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WatchlistEntry is one SPAC to monitor. Country, exchange and IPO date
// are filled in later by the fetch stage, not by the watchlist.
type WatchlistEntry struct {
	Symbol  string `yaml:"symbol"`
	Company string `yaml:"company,omitempty"`
}

// Watchlist is the YAML-defined set of tickers the pipeline seeds into
// the store on each fetch run.
type Watchlist struct {
	Tickers []WatchlistEntry `yaml:"tickers"`
}

// LoadWatchlist reads and parses a watchlist YAML file.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parsing watchlist: %w", err)
	}

	if len(wl.Tickers) == 0 {
		return nil, fmt.Errorf("watchlist %s contains no tickers", path)
	}

	return &wl, nil
}
