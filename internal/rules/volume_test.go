package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/spacradar/models"
)

func bar(ticker string, close float64, volume int64) models.DailyBar {
	return models.DailyBar{Ticker: ticker, Close: close, Volume: volume}
}

func TestEvaluateVolumeLow(t *testing.T) {
	tests := []struct {
		name     string
		in       VolumeInputs
		expected []string
	}{
		{
			name:     "low volume above price floor",
			in:       VolumeInputs{Today: bar("ANNA", 4.356, 5000)},
			expected: []string{"ANNA ($4.36) had very low volume (5,000)"},
		},
		{
			name:     "price at the floor still qualifies",
			in:       VolumeInputs{Today: bar("ANNA", 0.20, 9999)},
			expected: []string{"ANNA ($0.20) had very low volume (9,999)"},
		},
		{
			name:     "penny listing below floor is ignored",
			in:       VolumeInputs{Today: bar("ANNA", 0.19, 5000)},
			expected: nil,
		},
		{
			name:     "volume at the cutoff is not low",
			in:       VolumeInputs{Today: bar("ANNA", 4.36, 10000)},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := EvaluateVolume(tt.in)
			require.Len(t, alerts, len(tt.expected))
			for i, want := range tt.expected {
				assert.Equal(t, want, alerts[i].Description)
				assert.Equal(t, models.AnomalyVolume, alerts[i].Type)
				assert.Equal(t, models.ReasonLow, alerts[i].Reason)
			}
		})
	}
}

func TestEvaluateVolumeZero(t *testing.T) {
	alerts := EvaluateVolume(VolumeInputs{Today: bar("ANNA", 1.50, 0)})
	require.Len(t, alerts, 1)
	assert.Equal(t, models.ReasonZero, alerts[0].Reason)
	assert.Equal(t, "ANNA ($1.50) had very low volume (0)", alerts[0].Description)
}

func TestEvaluateVolumeSpikeMergesReasons(t *testing.T) {
	// Exceeds all three thresholds: exactly one alert with one clause
	// per threshold, joined by "; ".
	in := VolumeInputs{
		Today:           bar("BOLT", 10.00, 1_000_000),
		AvgVolume10Day:  100_000,
		AvgVolume3Month: 90_000,
		LocalAvg5Day:    50_000,
	}

	alerts := EvaluateVolume(in)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.ReasonSpike, alerts[0].Reason)
	assert.Equal(t,
		"BOLT volume 1,000,000 is >3× 10-day avg (100,000); >3× 90-day avg (90,000); >3× local 5-day avg (50,000)",
		alerts[0].Description)
}

func TestEvaluateVolumeSpikeSingleThreshold(t *testing.T) {
	in := VolumeInputs{
		Today:           bar("BOLT", 10.00, 400_000),
		AvgVolume10Day:  100_000,
		AvgVolume3Month: 500_000,
	}

	alerts := EvaluateVolume(in)
	require.Len(t, alerts, 1)
	assert.Equal(t, "BOLT volume 400,000 is >3× 10-day avg (100,000)", alerts[0].Description)
}

func TestEvaluateVolumeUnknownAveragesDisableSpike(t *testing.T) {
	alerts := EvaluateVolume(VolumeInputs{Today: bar("BOLT", 10.00, 1_000_000)})
	assert.Empty(t, alerts)
}

func TestEvaluateVolumeExactlyTripleIsNoSpike(t *testing.T) {
	in := VolumeInputs{
		Today:          bar("BOLT", 10.00, 300_000),
		AvgVolume10Day: 100_000,
	}
	assert.Empty(t, EvaluateVolume(in))
}

func TestEvaluateVolumeLowAndSpikeAreSeparateAlerts(t *testing.T) {
	// A thin listing can be both "very low" in absolute terms and a
	// spike relative to an even thinner history.
	in := VolumeInputs{
		Today:        bar("ANNA", 4.36, 9000),
		LocalAvg5Day: 1000,
	}

	alerts := EvaluateVolume(in)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.ReasonLow, alerts[0].Reason)
	assert.Equal(t, models.ReasonSpike, alerts[1].Reason)
}

func TestLocalAverage(t *testing.T) {
	bars := []models.DailyBar{
		bar("ANNA", 1, 500), // latest, excluded
		bar("ANNA", 1, 100),
		bar("ANNA", 1, 200),
		bar("ANNA", 1, 300),
	}
	assert.InDelta(t, 200.0, LocalAverage(bars), 1e-9)

	assert.Zero(t, LocalAverage(nil))
	assert.Zero(t, LocalAverage(bars[:1]))
}
