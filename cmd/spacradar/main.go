package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/app"
	"github.com/Alias1177/spacradar/internal/config"
	"github.com/Alias1177/spacradar/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	schedule := flag.Bool("schedule", false, "keep running and execute the pipeline on the configured cron schedule")
	flag.Parse()

	a, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	if !*schedule {
		runOnce(ctx, a)
		return
	}

	log.Info().Str("schedule", a.Config.Schedule).Msg("Starting scheduled pipeline")

	c := cron.New()
	if _, err := c.AddFunc(a.Config.Schedule, func() { runOnce(ctx, a) }); err != nil {
		log.Fatal().Err(err).Str("schedule", a.Config.Schedule).Msg("Invalid cron schedule")
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

func runOnce(ctx context.Context, a *app.App) {
	log.Info().Msg("Starting SPAC anomaly pipeline")

	if wl, err := config.LoadWatchlist(a.Config.WatchlistPath); err != nil {
		log.Warn().Err(err).Msg("Watchlist unavailable, using stored tickers")
	} else if err := a.Fetcher.Seed(ctx, wl); err != nil {
		log.Error().Err(err).Msg("Failed to seed watchlist")
		return
	}

	st, err := a.Pipeline.Run(ctx, models.Today())
	if err != nil {
		log.Error().Err(err).Msg("Pipeline finished with errors")
	}

	fmt.Printf("Pipeline completed — %d new alerts across %d tickers\n",
		len(st.Anomalies), len(st.Tickers))
}

func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}
