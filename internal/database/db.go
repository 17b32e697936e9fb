package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/spacradar/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spac_list (
			ticker TEXT PRIMARY KEY,
			company TEXT,
			country TEXT,
			exchange TEXT,
			ipo_date DATE
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS spac_data (
			ticker TEXT NOT NULL,
			trade_date DATE NOT NULL,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume BIGINT,
			PRIMARY KEY (ticker, trade_date)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS anomaly_reports (
			id SERIAL PRIMARY KEY,
			ticker TEXT NOT NULL,
			trade_date DATE NOT NULL,
			anomaly_type TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// Makes the application-level dedup check redundant-safe: a second
	// identical insert conflicts instead of producing a duplicate row.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS anomaly_reports_dedup_idx
		ON anomaly_reports (ticker, trade_date, anomaly_type, description)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts_log (
			alert_date DATE NOT NULL,
			alert_channel TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (alert_date, alert_channel)
		)
	`)

	return err
}

// UpsertTicker inserts a watchlist ticker, keeping existing metadata on
// conflict (metadata is owned by UpdateTickerMetadata).
func (db *DB) UpsertTicker(ctx context.Context, t models.Ticker) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO spac_list (ticker, company)
		VALUES ($1, $2)
		ON CONFLICT (ticker)
		DO UPDATE SET company = COALESCE(NULLIF(EXCLUDED.company, ''), spac_list.company)
	`, t.Symbol, t.Company)

	return err
}

// UpdateTickerMetadata refreshes country, exchange and IPO date for a ticker.
func (db *DB) UpdateTickerMetadata(ctx context.Context, symbol, country, exchange string, ipoDate *time.Time) error {
	var ipo sql.NullTime
	if ipoDate != nil {
		ipo = sql.NullTime{Time: *ipoDate, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		UPDATE spac_list
		SET country = $1, exchange = $2, ipo_date = $3
		WHERE ticker = $4
	`, country, exchange, ipo, symbol)

	return err
}

// ListTickers returns all watched tickers ordered by symbol.
func (db *DB) ListTickers(ctx context.Context) ([]models.Ticker, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ticker, company, country, exchange, ipo_date
		FROM spac_list
		ORDER BY ticker
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []models.Ticker
	for rows.Next() {
		var t models.Ticker
		var company, country, exchange sql.NullString
		var ipo sql.NullTime

		if err := rows.Scan(&t.Symbol, &company, &country, &exchange, &ipo); err != nil {
			return nil, err
		}

		t.Company = company.String
		t.Country = country.String
		t.Exchange = exchange.String
		if ipo.Valid {
			ipoDate := ipo.Time
			t.IPODate = &ipoDate
		}

		tickers = append(tickers, t)
	}

	return tickers, rows.Err()
}

// UpsertDailyBar stores one finalized OHLCV row, replacing any existing
// row for the same (ticker, trade_date).
func (db *DB) UpsertDailyBar(ctx context.Context, bar models.DailyBar) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO spac_data (ticker, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, trade_date)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`, bar.Ticker, bar.TradeDate, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)

	return err
}

// RecentBars returns up to limit bars for a ticker, newest first.
func (db *DB) RecentBars(ctx context.Context, ticker string, limit int) ([]models.DailyBar, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ticker, trade_date, open, high, low, close, volume
		FROM spac_data
		WHERE ticker = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []models.DailyBar
	for rows.Next() {
		var b models.DailyBar
		if err := rows.Scan(&b.Ticker, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}

	return bars, rows.Err()
}

// AnomalyExists reports whether an identical alert is already stored for
// the given day.
func (db *DB) AnomalyExists(ctx context.Context, ticker, tradeDate string, anomalyType models.AnomalyType, description string) (bool, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		SELECT id
		FROM anomaly_reports
		WHERE ticker = $1 AND trade_date = $2 AND anomaly_type = $3 AND description = $4
	`, ticker, tradeDate, anomalyType, description).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// InsertAnomaly appends an anomaly record. The unique dedup index turns
// a concurrent duplicate into a no-op instead of a second row.
func (db *DB) InsertAnomaly(ctx context.Context, rec models.AnomalyRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO anomaly_reports (ticker, trade_date, anomaly_type, reason, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker, trade_date, anomaly_type, description) DO NOTHING
	`, rec.Ticker, rec.TradeDate, rec.Type, rec.Reason, rec.Description)

	return err
}

// AnomaliesForDate returns all anomalies stored for one day, in a fixed
// order so the rendered report is identical across runs.
func (db *DB) AnomaliesForDate(ctx context.Context, tradeDate string) ([]models.AnomalyRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ticker, trade_date::text, anomaly_type, reason, description
		FROM anomaly_reports
		WHERE trade_date = $1
		ORDER BY ticker, anomaly_type, description
	`, tradeDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []models.AnomalyRecord
	for rows.Next() {
		var rec models.AnomalyRecord
		var reason sql.NullString

		if err := rows.Scan(&rec.Ticker, &rec.TradeDate, &rec.Type, &reason, &rec.Description); err != nil {
			return nil, err
		}

		rec.Reason = models.VolumeReason(reason.String)
		anomalies = append(anomalies, rec)
	}

	return anomalies, rows.Err()
}

// LogDelivery records that a report for a given day was dispatched on a
// channel. Audit only, not part of the dedup logic.
func (db *DB) LogDelivery(ctx context.Context, alertDate, channel string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO alerts_log (alert_date, alert_channel, sent_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (alert_date, alert_channel)
		DO UPDATE SET sent_at = NOW()
	`, alertDate, channel)

	return err
}
