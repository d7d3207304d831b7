package dqsi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKDEResult(t *testing.T) {
	tests := []struct {
		name    string
		kde     string
		score   float64
		wantErr bool
	}{
		{name: "valid", kde: "trader_id", score: 0.85},
		{name: "zero score", kde: "trader_id", score: 0.0},
		{name: "full score", kde: "trader_id", score: 1.0},
		{name: "missing name", kde: "", score: 0.5, wantErr: true},
		{name: "negative score", kde: "trader_id", score: -0.1, wantErr: true},
		{name: "score above one", kde: "trader_id", score: 1.01, wantErr: true},
		{name: "NaN score", kde: "trader_id", score: math.NaN(), wantErr: true},
		{name: "infinite score", kde: "trader_id", score: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewKDEResult(tt.kde, tt.score, RiskTierHigh, DimensionCompleteness, TierFoundational)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kde, result.Name)
			assert.Equal(t, tt.score, result.Score)
			assert.Equal(t, 3, result.RiskWeight)
		})
	}
}

func TestRiskTierWeight(t *testing.T) {
	assert.Equal(t, 3, RiskTierHigh.Weight())
	assert.Equal(t, 2, RiskTierMedium.Weight())
	assert.Equal(t, 1, RiskTierLow.Weight())
}

func TestParseRiskTier(t *testing.T) {
	tier, err := ParseRiskTier("  HIGH ")
	require.NoError(t, err)
	assert.Equal(t, RiskTierHigh, tier)

	_, err = ParseRiskTier("severe")
	assert.Error(t, err)
}

func TestDimensionTierWeight(t *testing.T) {
	assert.Equal(t, 1.0, TierFoundational.Weight())
	assert.Equal(t, 0.75, TierEnhanced.Weight())
}

func TestKDEResultWeighting(t *testing.T) {
	result, err := NewKDEResult("notional", 0.8, RiskTierMedium, DimensionAccuracy, TierEnhanced)
	require.NoError(t, err)

	// weight = risk 2 * tier 0.75
	assert.InDelta(t, 1.5, result.Weight(), 1e-9)
	assert.InDelta(t, 1.2, result.WeightedScore(), 1e-9)
}

func TestKDEResultWithWeights(t *testing.T) {
	result, err := NewKDEResult("notional", 0.8, RiskTierMedium, DimensionAccuracy, TierEnhanced)
	require.NoError(t, err)

	reweighted := result.WithWeights(5, 0.5)
	assert.InDelta(t, 2.5, reweighted.Weight(), 1e-9)
	assert.InDelta(t, 2.0, reweighted.WeightedScore(), 1e-9)

	// The original keeps the tier defaults.
	assert.InDelta(t, 1.5, result.Weight(), 1e-9)
}

func TestKDEResultCopies(t *testing.T) {
	result, err := NewKDEResult("trader_id", 0.6, RiskTierHigh, DimensionCompleteness, TierFoundational)
	require.NoError(t, err)

	flagged := result.WithImputed().WithDetails("placeholder").WithSynthetic()
	assert.True(t, flagged.Imputed)
	assert.True(t, flagged.Synthetic)
	assert.Equal(t, "placeholder", flagged.Details)

	// Originals are untouched.
	assert.False(t, result.Imputed)
	assert.False(t, result.Synthetic)
	assert.Empty(t, result.Details)
}
