package models

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for trade dates.
const DateLayout = "2006-01-02"

// AnomalyType classifies an alert into one of the report categories.
type AnomalyType string

const (
	AnomalyVolume    AnomalyType = "Volume"
	AnomalyLifecycle AnomalyType = "Lifecycle"
	AnomalyRisk      AnomalyType = "Risk"
)

// VolumeReason tags a Volume alert with the condition that produced it.
// The report builder buckets by this tag instead of re-parsing the
// rendered description.
type VolumeReason string

const (
	ReasonNone  VolumeReason = ""
	ReasonLow   VolumeReason = "low"
	ReasonSpike VolumeReason = "spike"
	ReasonZero  VolumeReason = "zero"
)

// Ticker is one watched SPAC with the metadata the risk and lifecycle
// rules read. Metadata is refreshed by the fetch stage.
type Ticker struct {
	Symbol   string
	Company  string
	Country  string
	Exchange string
	IPODate  *time.Time
}

// DailyBar is one finalized OHLCV row for a ticker.
type DailyBar struct {
	Ticker    string
	TradeDate time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// AnomalyRecord is a single rule-triggered observation. TradeDate is
// always the day the alert was inserted, not the day of the data that
// triggered it. The (Ticker, TradeDate, Type, Description) tuple is the
// dedup key.
type AnomalyRecord struct {
	Ticker      string
	TradeDate   string
	Type        AnomalyType
	Reason      VolumeReason
	Description string
}

// State is the accumulator threaded through the pipeline stages.
type State struct {
	Tickers   []string
	Anomalies []AnomalyRecord
}

// StageResult is the delta a single stage produces. Stages never touch
// the shared State directly; the orchestrator folds results in order.
type StageResult struct {
	Tickers   []string
	Anomalies []AnomalyRecord
}

// Merge appends a stage result to the accumulator. Entries written by
// earlier stages are never removed or reordered. A stage that resolved
// the ticker set fills in an empty one.
func (s *State) Merge(r StageResult) {
	if len(s.Tickers) == 0 && len(r.Tickers) > 0 {
		s.Tickers = r.Tickers
	}
	s.Anomalies = append(s.Anomalies, r.Anomalies...)
}

// Today returns the current date in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}

// FormatInt renders n with comma grouping, e.g. 1234567 -> "1,234,567".
// Alert descriptions format every volume through this helper: the
// description string is part of the dedup key, so the wording must be
// identical across runs.
func FormatInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatPrice renders a price with two decimals, e.g. 4.356 -> "4.36".
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
