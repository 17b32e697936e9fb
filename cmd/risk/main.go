package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/app"
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

	res, err := a.Pipeline.RunRisk(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Risk stage failed")
	}

	fmt.Printf("Risk check completed — %d new risk alerts\n", len(res.Anomalies))
}
