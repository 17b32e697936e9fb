// Package report renders the daily anomaly digest and delivers it to
// chat channels. The builder is deterministic: for a fixed input set the
// output is byte-identical across runs, so every ordering below is
// explicit.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Alias1177/spacradar/models"
)

const reportHeader = "# 📊 Daily SPAC Alerts\n\n"

// EmptyReport is the exact document produced when there are no
// anomalies for the target day.
const EmptyReport = reportHeader + "✅ No anomalies today."

// Build renders the Markdown digest for one day's anomalies.
func Build(anomalies []models.AnomalyRecord) string {
	if len(anomalies) == 0 {
		return EmptyReport
	}

	grouped := make(map[models.AnomalyType][]models.AnomalyRecord)
	tickerCategories := make(map[string]map[models.AnomalyType]bool)

	for _, a := range anomalies {
		grouped[a.Type] = append(grouped[a.Type], a)
		if tickerCategories[a.Ticker] == nil {
			tickerCategories[a.Ticker] = make(map[models.AnomalyType]bool)
		}
		tickerCategories[a.Ticker][a.Type] = true
	}

	var b strings.Builder
	b.WriteString(reportHeader)

	writePrioritySection(&b, anomalies, tickerCategories)

	if len(grouped[models.AnomalyVolume]) > 0 {
		writeVolumeSection(&b, grouped[models.AnomalyVolume])
		delete(grouped, models.AnomalyVolume)
	}

	// Remaining categories, one subsection each, alphabetical.
	categories := make([]string, 0, len(grouped))
	for c := range grouped {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, c := range categories {
		records := grouped[models.AnomalyType(c)]
		sortRecords(records)

		b.WriteString(fmt.Sprintf("## 🔹 %s Alerts\n\n", c))
		for _, a := range records {
			b.WriteString(fmt.Sprintf("- [**%s**](%s) (%s) → %s\n", a.Ticker, a.Ticker, a.TradeDate, a.Description))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Summary is the short delivery caption accompanying the document.
func Summary(anomalyCount int) string {
	if anomalyCount == 0 {
		return "✅ No anomalies today."
	}
	return fmt.Sprintf("⚡ %d anomalies detected today.", anomalyCount)
}

// Filename is the report file name for a target date.
func Filename(targetDate string) string {
	return fmt.Sprintf("spac_alerts_%s.md", targetDate)
}

// writePrioritySection lists tickers appearing under more than one
// anomaly category, each with all of its alerts.
func writePrioritySection(b *strings.Builder, anomalies []models.AnomalyRecord, tickerCategories map[string]map[models.AnomalyType]bool) {
	var priority []string
	for ticker, cats := range tickerCategories {
		if len(cats) > 1 {
			priority = append(priority, ticker)
		}
	}
	if len(priority) == 0 {
		return
	}
	sort.Strings(priority)

	b.WriteString("## ⚠️ Priority: Multi-Category Tickers\n\n")

	for _, ticker := range priority {
		cats := make([]string, 0, len(tickerCategories[ticker]))
		for c := range tickerCategories[ticker] {
			cats = append(cats, string(c))
		}
		sort.Strings(cats)

		var own []models.AnomalyRecord
		for _, a := range anomalies {
			if a.Ticker == ticker {
				own = append(own, a)
			}
		}
		sortRecords(own)

		b.WriteString(fmt.Sprintf("- [**%s**](%s) → in categories: *%s*\n", ticker, ticker, strings.Join(cats, ", ")))
		for _, a := range own {
			b.WriteString(fmt.Sprintf("  - (%s) [%s] %s\n", a.TradeDate, a.Type, a.Description))
		}
		b.WriteString("\n")
	}
}

// volumeBuckets holds one ticker's volume alerts split by reason.
type volumeBuckets struct {
	tradeDate string
	lows      []string
	spikes    []string
	zeros     []string
}

// writeVolumeSection renders the three reason buckets, each only when
// non-empty. Within a ticker duplicate descriptions collapse set-wise.
func writeVolumeSection(b *strings.Builder, records []models.AnomalyRecord) {
	merged := make(map[string]*volumeBuckets)

	sorted := append([]models.AnomalyRecord(nil), records...)
	sortRecords(sorted)

	for _, a := range sorted {
		m := merged[a.Ticker]
		if m == nil {
			m = &volumeBuckets{tradeDate: a.TradeDate}
			merged[a.Ticker] = m
		}

		switch bucketReason(a) {
		case models.ReasonLow:
			m.lows = append(m.lows, a.Description)
		case models.ReasonZero:
			m.zeros = append(m.zeros, a.Description)
		default:
			m.spikes = append(m.spikes, a.Description)
		}
	}

	b.WriteString("## 🔹 Volume Alerts\n\n")

	writeVolumeBucket(b, "### 🔻 Very Low Volume (Price ≥ $0.20)\n\n", merged, func(m *volumeBuckets) []string { return m.lows })
	writeVolumeBucket(b, "### 🚀 Volume Spikes\n\n", merged, func(m *volumeBuckets) []string { return m.spikes })
	writeVolumeBucket(b, "### ⚠️ Suspicious Zero-Volume\n\n", merged, func(m *volumeBuckets) []string { return m.zeros })
}

func writeVolumeBucket(b *strings.Builder, header string, merged map[string]*volumeBuckets, pick func(*volumeBuckets) []string) {
	var tickers []string
	for ticker, m := range merged {
		if len(pick(m)) > 0 {
			tickers = append(tickers, ticker)
		}
	}
	if len(tickers) == 0 {
		return
	}
	sort.Strings(tickers)

	b.WriteString(header)
	for _, ticker := range tickers {
		m := merged[ticker]
		b.WriteString(fmt.Sprintf("- [**%s**](%s) (%s) → %s\n", ticker, ticker, m.tradeDate, strings.Join(dedupe(pick(m)), "; ")))
	}
	b.WriteString("\n")
}

// bucketReason returns the record's typed reason, falling back to the
// historical substring probe for rows stored before reasons existed.
func bucketReason(a models.AnomalyRecord) models.VolumeReason {
	if a.Reason != models.ReasonNone {
		return a.Reason
	}
	if strings.Contains(a.Description, "very low volume") {
		return models.ReasonLow
	}
	if strings.Contains(a.Description, "zero volume") || strings.Contains(a.Description, "(0)") {
		return models.ReasonZero
	}
	return models.ReasonSpike
}

// dedupe collapses duplicate strings and returns the survivors sorted.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// sortRecords orders records by ticker, type, description, date.
func sortRecords(records []models.AnomalyRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		return a.TradeDate < b.TradeDate
	})
}
