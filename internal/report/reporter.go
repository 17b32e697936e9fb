package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/models"
)

// AnomalySource is the subset of the store the reporter reads. The
// reporter never trusts in-memory pipeline state: only durably inserted
// alerts make it into the digest.
type AnomalySource interface {
	AnomaliesForDate(ctx context.Context, tradeDate string) ([]models.AnomalyRecord, error)
	LogDelivery(ctx context.Context, alertDate, channel string) error
}

// Reporter builds the daily digest, saves it locally and pushes it to
// the configured chat channels.
type Reporter struct {
	store   AnomalySource
	senders []Sender
	dir     string
	logger  zerolog.Logger
}

// NewReporter creates a Reporter writing report files under dir.
func NewReporter(store AnomalySource, dir string, senders ...Sender) *Reporter {
	return &Reporter{
		store:   store,
		senders: senders,
		dir:     dir,
		logger:  log.With().Str("component", "reporter").Logger(),
	}
}

// Run renders and delivers the report for targetDate. Delivery failures
// are logged and never fail the run; a missing channel just means the
// report only exists on disk.
func (r *Reporter) Run(ctx context.Context, targetDate string) (int, error) {
	anomalies, err := r.store.AnomaliesForDate(ctx, targetDate)
	if err != nil {
		return 0, err
	}

	content := Build(anomalies)
	summary := Summary(len(anomalies))

	path, err := r.save(targetDate, content)
	if err != nil {
		return 0, err
	}
	r.logger.Info().Str("path", path).Int("anomalies", len(anomalies)).Msg("Report saved")

	for _, s := range r.senders {
		if err := s.Send(ctx, targetDate, content, summary); err != nil {
			r.logger.Error().Err(err).Str("channel", s.Channel()).Msg("Report delivery failed")
			continue
		}

		r.logger.Info().Str("channel", s.Channel()).Msg("Report delivered")
		if err := r.store.LogDelivery(ctx, targetDate, s.Channel()); err != nil {
			r.logger.Error().Err(err).Str("channel", s.Channel()).Msg("Failed to log delivery")
		}
	}

	return len(anomalies), nil
}

func (r *Reporter) save(targetDate, content string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(r.dir, Filename(targetDate))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
