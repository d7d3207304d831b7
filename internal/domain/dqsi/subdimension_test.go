package dqsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubDimensionsReturnsCopy(t *testing.T) {
	first := SubDimensions()
	first[0].Name = "mutated"
	assert.Equal(t, "null_presence", SubDimensions()[0].Name)
}

func TestSubDimensionsFor(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		role     string
		contains []string
		excludes []string
	}{
		{
			name:     "fallback ignores role",
			strategy: StrategyFallback,
			role:     RoleProducer,
			contains: []string{"null_presence", "format", "timeliness_lag", "volume_drop"},
			excludes: []string{"reference_match", "reconciliation_match", "duplicate_rate"},
		},
		{
			name:     "role aware producer",
			strategy: StrategyRoleAware,
			role:     RoleProducer,
			contains: []string{"null_presence", "reference_match", "reconciliation_match", "duplicate_rate", "cross_consistency"},
			excludes: []string{"reference_type"},
		},
		{
			name:     "role aware consumer",
			strategy: StrategyRoleAware,
			role:     RoleConsumer,
			contains: []string{"null_presence", "reference_type"},
			excludes: []string{"reference_match", "reconciliation_match", "duplicate_rate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := SubDimensionsFor(tt.strategy, tt.role)
			for _, want := range tt.contains {
				assert.Contains(t, names, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, names, unwanted)
			}
		})
	}
}

func TestDimensionsFor(t *testing.T) {
	fallback := DimensionsFor(StrategyFallback, "")
	assert.Equal(t, []string{
		DimensionCompleteness,
		DimensionConformity,
		DimensionTimeliness,
		DimensionCoverage,
	}, fallback)

	producer := DimensionsFor(StrategyRoleAware, RoleProducer)
	require.Contains(t, producer, DimensionAccuracy)
	assert.Contains(t, producer, DimensionUniqueness)
	assert.Contains(t, producer, DimensionConsistency)

	consumer := DimensionsFor(StrategyRoleAware, RoleConsumer)
	assert.Contains(t, consumer, DimensionAccuracy)
	assert.NotContains(t, consumer, DimensionUniqueness)
}
