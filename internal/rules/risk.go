package rules

import (
	"fmt"
	"strings"

	"github.com/Alias1177/spacradar/models"
)

// EvaluateRisk flags tickers by jurisdiction and listing venue. Both
// conditions may fire for the same ticker, producing two separate
// alerts. Matching is case-sensitive on purpose: exchange names arrive
// in a fixed casing from the feed.
func EvaluateRisk(symbol, country, exchange string) []models.AnomalyRecord {
	var alerts []models.AnomalyRecord

	if country != "" && strings.Contains(country, "China") {
		alerts = append(alerts, models.AnomalyRecord{
			Ticker:      symbol,
			Type:        models.AnomalyRisk,
			Description: fmt.Sprintf("%s is a Chinese SPAC (Country=%s)", symbol, country),
		})
	}

	if exchange != "" && (strings.Contains(exchange, "OTC") || strings.Contains(exchange, "Pink")) {
		alerts = append(alerts, models.AnomalyRecord{
			Ticker:      symbol,
			Type:        models.AnomalyRisk,
			Description: fmt.Sprintf("%s trades on a risky exchange (%s)", symbol, exchange),
		})
	}

	return alerts
}
