// Package alerts owns the single insert-if-new primitive every pipeline
// stage goes through. Keeping one implementation here is what makes the
// per-day dedup policy uniform across rule categories.
package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/models"
)

// Store is the subset of the anomaly store the inserter needs.
type Store interface {
	AnomalyExists(ctx context.Context, ticker, tradeDate string, anomalyType models.AnomalyType, description string) (bool, error)
	InsertAnomaly(ctx context.Context, rec models.AnomalyRecord) error
}

// Inserter deduplicates and persists anomaly records.
type Inserter struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// New creates an Inserter backed by the given store.
func New(store Store) *Inserter {
	return &Inserter{
		store:  store,
		logger: log.With().Str("component", "alerts").Logger(),
		now:    time.Now,
	}
}

// InsertIfNew stores the record unless an identical alert already exists
// for today. The dedup and storage date is always today, regardless of
// which historical trade date triggered the rule: an alert is "for
// today". Returns true when a new row was written.
func (i *Inserter) InsertIfNew(ctx context.Context, rec models.AnomalyRecord) (bool, error) {
	rec.TradeDate = i.now().Format(models.DateLayout)

	exists, err := i.store.AnomalyExists(ctx, rec.Ticker, rec.TradeDate, rec.Type, rec.Description)
	if err != nil {
		return false, err
	}

	if exists {
		i.logger.Info().
			Str("ticker", rec.Ticker).
			Str("date", rec.TradeDate).
			Str("type", string(rec.Type)).
			Msg("Skipped duplicate alert")
		return false, nil
	}

	if err := i.store.InsertAnomaly(ctx, rec); err != nil {
		return false, err
	}

	i.logger.Info().
		Str("ticker", rec.Ticker).
		Str("date", rec.TradeDate).
		Str("type", string(rec.Type)).
		Str("description", rec.Description).
		Msg("New alert")

	return true, nil
}

// InsertAll runs InsertIfNew over a batch and returns the records that
// were actually inserted, with their trade date stamped.
func (i *Inserter) InsertAll(ctx context.Context, recs []models.AnomalyRecord) ([]models.AnomalyRecord, error) {
	var inserted []models.AnomalyRecord

	for _, rec := range recs {
		ok, err := i.InsertIfNew(ctx, rec)
		if err != nil {
			return inserted, err
		}
		if ok {
			rec.TradeDate = i.now().Format(models.DateLayout)
			inserted = append(inserted, rec)
		}
	}

	return inserted, nil
}
