package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/app"
	"github.com/Alias1177/spacradar/internal/config"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	ctx := context.Background()

	if wl, err := config.LoadWatchlist(a.Config.WatchlistPath); err != nil {
		log.Warn().Err(err).Msg("Watchlist unavailable, using stored tickers")
	} else if err := a.Fetcher.Seed(ctx, wl); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed watchlist")
	}

	res, err := a.Pipeline.RunFetch(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Fetch stage failed")
	}

	fmt.Printf("Fetch completed — %d tickers processed\n", len(res.Tickers))
}
