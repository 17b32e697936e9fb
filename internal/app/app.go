// Package app builds the wired pipeline shared by every entry point.
package app

import (
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/alerts"
	"github.com/Alias1177/spacradar/internal/api/marketdata"
	"github.com/Alias1177/spacradar/internal/config"
	"github.com/Alias1177/spacradar/internal/database"
	"github.com/Alias1177/spacradar/internal/fetch"
	"github.com/Alias1177/spacradar/internal/pipeline"
	"github.com/Alias1177/spacradar/internal/platform/http"
	"github.com/Alias1177/spacradar/internal/report"
)

// App bundles the wired components an entry point needs.
type App struct {
	Config   *config.Config
	DB       *database.DB
	Market   *marketdata.Client
	Fetcher  *fetch.Fetcher
	Reporter *report.Reporter
	Pipeline *pipeline.Pipeline
}

// SetupLogging configures the global console logger.
func SetupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// New loads configuration and wires every component. The caller owns
// Close.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	SetupLogging(cfg.LogLevel)

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	market := marketdata.NewClient(marketdata.ClientOptions{
		APIKey:         cfg.MarketAPIKey,
		BaseURL:        cfg.MarketBaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	senders, err := buildSenders(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	fetcher := fetch.New(db, market)
	reporter := report.NewReporter(db, cfg.ReportsDir, senders...)

	p := pipeline.New(pipeline.Options{
		Store:        db,
		Market:       market,
		Fetcher:      fetcher,
		Inserter:     alerts.New(db),
		Reporter:     reporter,
		StageTimeout: 5 * time.Minute,
	})

	return &App{
		Config:   cfg,
		DB:       db,
		Market:   market,
		Fetcher:  fetcher,
		Reporter: reporter,
		Pipeline: p,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	a.DB.Close()
}

func buildSenders(cfg *config.Config) ([]report.Sender, error) {
	var senders []report.Sender

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := report.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		senders = append(senders, tg)
	}

	if cfg.DiscordWebhookURL != "" {
		client := http.NewClient(http.ClientOptions{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		})
		senders = append(senders, report.NewDiscordSender(client, cfg.DiscordWebhookURL))
	}

	if len(senders) == 0 {
		log.Warn().Msg("No delivery channel configured, reports will only be written to disk")
	}

	return senders, nil
}
