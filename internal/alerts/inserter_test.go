package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/spacradar/models"
)

// fakeStore keeps records in memory, keyed the same way the database
// dedup index is.
type fakeStore struct {
	records   []models.AnomalyRecord
	existsErr error
	insertErr error
}

func (f *fakeStore) AnomalyExists(_ context.Context, ticker, tradeDate string, anomalyType models.AnomalyType, description string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.records {
		if r.Ticker == ticker && r.TradeDate == tradeDate && r.Type == anomalyType && r.Description == description {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertAnomaly(_ context.Context, rec models.AnomalyRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, rec)
	return nil
}

func newTestInserter(store Store) *Inserter {
	ins := New(store)
	ins.now = func() time.Time {
		return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	}
	return ins
}

func TestInsertIfNewDeduplicates(t *testing.T) {
	store := &fakeStore{}
	ins := newTestInserter(store)

	rec := models.AnomalyRecord{
		Ticker:      "ANNA",
		Type:        models.AnomalyVolume,
		Reason:      models.ReasonLow,
		Description: "ANNA ($4.36) had very low volume (5,000)",
	}

	inserted, err := ins.InsertIfNew(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same (ticker, today, type, description) inserted twice: one row.
	inserted, err = ins.InsertIfNew(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.Len(t, store.records, 1)
	assert.Equal(t, "2024-01-01", store.records[0].TradeDate)
}

func TestInsertIfNewDifferentDescriptionIsNewAlert(t *testing.T) {
	store := &fakeStore{}
	ins := newTestInserter(store)

	first := models.AnomalyRecord{
		Ticker:      "ANNA",
		Type:        models.AnomalyVolume,
		Description: "ANNA ($4.36) had very low volume (5,000)",
	}
	second := first
	second.Description = "ANNA ($4.36) had very low volume (4,800)"

	_, err := ins.InsertIfNew(context.Background(), first)
	require.NoError(t, err)
	inserted, err := ins.InsertIfNew(context.Background(), second)
	require.NoError(t, err)

	assert.True(t, inserted)
	assert.Len(t, store.records, 2)
}

func TestInsertIfNewForcesTodayAsStorageDate(t *testing.T) {
	store := &fakeStore{}
	ins := newTestInserter(store)

	// The rule fired on historical data; the stored date is still today.
	rec := models.AnomalyRecord{
		Ticker:      "ANNA",
		TradeDate:   "2023-11-20",
		Type:        models.AnomalyRisk,
		Description: "ANNA is a Chinese SPAC (Country=China)",
	}

	_, err := ins.InsertIfNew(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, "2024-01-01", store.records[0].TradeDate)
}

func TestInsertIfNewPropagatesStoreErrors(t *testing.T) {
	ins := newTestInserter(&fakeStore{existsErr: errors.New("connection reset")})
	_, err := ins.InsertIfNew(context.Background(), models.AnomalyRecord{Ticker: "ANNA"})
	assert.Error(t, err)

	ins = newTestInserter(&fakeStore{insertErr: errors.New("connection reset")})
	_, err = ins.InsertIfNew(context.Background(), models.AnomalyRecord{Ticker: "ANNA"})
	assert.Error(t, err)
}

func TestInsertAllReturnsOnlyNewRecords(t *testing.T) {
	store := &fakeStore{}
	ins := newTestInserter(store)

	recs := []models.AnomalyRecord{
		{Ticker: "ANNA", Type: models.AnomalyRisk, Description: "ANNA is a Chinese SPAC (Country=China)"},
		{Ticker: "ANNA", Type: models.AnomalyRisk, Description: "ANNA is a Chinese SPAC (Country=China)"},
		{Ticker: "BOLT", Type: models.AnomalyRisk, Description: "BOLT trades on a risky exchange (OTC Markets)"},
	}

	inserted, err := ins.InsertAll(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, "ANNA", inserted[0].Ticker)
	assert.Equal(t, "BOLT", inserted[1].Ticker)
	assert.Equal(t, "2024-01-01", inserted[0].TradeDate)
}
