// Package rules holds the anomaly rule evaluators. Each evaluator is a
// pure function from ticker data to candidate alerts; persistence and
// dedup happen downstream in the alerts package.
package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/Alias1177/spacradar/models"
)

const (
	// Prices below this are treated as dead listings and excluded from
	// the low-volume rule.
	lowVolumeMinPrice = 0.20
	lowVolumeCutoff   = 10_000
	spikeFactor       = 3
)

// VolumeInputs carries everything the volume rule needs for one ticker.
// The averages are optional; zero means unknown and disables the
// corresponding spike check.
type VolumeInputs struct {
	Today           models.DailyBar
	AvgVolume10Day  int64
	AvgVolume3Month int64
	LocalAvg5Day    float64
}

// EvaluateVolume produces at most one low-volume alert and at most one
// merged spike alert. Every exceeded spike threshold becomes a clause in
// a single description, joined by "; ", so one underlying event never
// yields several alerts.
func EvaluateVolume(in VolumeInputs) []models.AnomalyRecord {
	bar := in.Today
	var alerts []models.AnomalyRecord

	if bar.Close >= lowVolumeMinPrice && bar.Volume < lowVolumeCutoff {
		reason := models.ReasonLow
		if bar.Volume == 0 {
			reason = models.ReasonZero
		}
		alerts = append(alerts, models.AnomalyRecord{
			Ticker: bar.Ticker,
			Type:   models.AnomalyVolume,
			Reason: reason,
			Description: fmt.Sprintf("%s ($%s) had very low volume (%s)",
				bar.Ticker, models.FormatPrice(bar.Close), models.FormatInt(bar.Volume)),
		})
	}

	var spikeReasons []string
	if in.AvgVolume10Day > 0 && bar.Volume > spikeFactor*in.AvgVolume10Day {
		spikeReasons = append(spikeReasons,
			fmt.Sprintf(">3× 10-day avg (%s)", models.FormatInt(in.AvgVolume10Day)))
	}
	if in.AvgVolume3Month > 0 && bar.Volume > spikeFactor*in.AvgVolume3Month {
		spikeReasons = append(spikeReasons,
			fmt.Sprintf(">3× 90-day avg (%s)", models.FormatInt(in.AvgVolume3Month)))
	}
	if in.LocalAvg5Day > 0 && float64(bar.Volume) > spikeFactor*in.LocalAvg5Day {
		spikeReasons = append(spikeReasons,
			fmt.Sprintf(">3× local 5-day avg (%s)", models.FormatInt(int64(math.Round(in.LocalAvg5Day)))))
	}

	if len(spikeReasons) > 0 {
		alerts = append(alerts, models.AnomalyRecord{
			Ticker: bar.Ticker,
			Type:   models.AnomalyVolume,
			Reason: models.ReasonSpike,
			Description: fmt.Sprintf("%s volume %s is %s",
				bar.Ticker, models.FormatInt(bar.Volume), strings.Join(spikeReasons, "; ")),
		})
	}

	return alerts
}

// LocalAverage computes the trailing volume average from stored bars,
// newest first, excluding the latest bar. Returns 0 when there is no
// history to average.
func LocalAverage(bars []models.DailyBar) float64 {
	if len(bars) < 2 {
		return 0
	}

	var sum int64
	for _, b := range bars[1:] {
		sum += b.Volume
	}

	return float64(sum) / float64(len(bars)-1)
}
