package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/app"
	"github.com/Alias1177/spacradar/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	targetDate := flag.String("date", "", "target date (YYYY-MM-DD), defaults to today")
	flag.Parse()

	if *targetDate != "" {
		if _, err := time.Parse(models.DateLayout, *targetDate); err != nil {
			log.Fatal().Str("date", *targetDate).Msg("Invalid target date, expected YYYY-MM-DD")
		}
	}

	a, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	if err := a.Pipeline.RunReport(context.Background(), *targetDate); err != nil {
		log.Fatal().Err(err).Msg("Report stage failed")
	}

	fmt.Println("Report completed")
}
