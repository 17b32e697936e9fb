package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/spacradar/models"
)

func TestEvaluateRisk(t *testing.T) {
	tests := []struct {
		name     string
		country  string
		exchange string
		expected []string
	}{
		{
			name:     "no risk",
			country:  "United States",
			exchange: "NASDAQ",
			expected: nil,
		},
		{
			name:     "chinese spac",
			country:  "China",
			exchange: "NYSE",
			expected: []string{"ANNA is a Chinese SPAC (Country=China)"},
		},
		{
			name:     "substring country match",
			country:  "Mainland China",
			exchange: "NYSE",
			expected: []string{"ANNA is a Chinese SPAC (Country=Mainland China)"},
		},
		{
			name:     "otc exchange",
			country:  "United States",
			exchange: "OTC Markets",
			expected: []string{"ANNA trades on a risky exchange (OTC Markets)"},
		},
		{
			name:     "pink sheets",
			country:  "United States",
			exchange: "Pink Open Market",
			expected: []string{"ANNA trades on a risky exchange (Pink Open Market)"},
		},
		{
			name:     "both rules fire as two alerts",
			country:  "China",
			exchange: "OTC Pink",
			expected: []string{
				"ANNA is a Chinese SPAC (Country=China)",
				"ANNA trades on a risky exchange (OTC Pink)",
			},
		},
		{
			name:     "matching is case sensitive",
			country:  "china",
			exchange: "otc markets",
			expected: nil,
		},
		{
			name:     "empty metadata",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := EvaluateRisk("ANNA", tt.country, tt.exchange)
			require.Len(t, alerts, len(tt.expected))
			for i, want := range tt.expected {
				assert.Equal(t, want, alerts[i].Description)
				assert.Equal(t, models.AnomalyRisk, alerts[i].Type)
			}
		})
	}
}
