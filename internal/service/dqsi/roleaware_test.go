package dqsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
)

func roleAwareConfig() domain.QualityConfig {
	cfg := domain.DefaultQualityConfig()
	cfg.Strategy = domain.StrategyRoleAware
	return cfg
}

func TestRoleAwareConsumerBlend(t *testing.T) {
	strategy := NewRoleAwareStrategy(roleAwareConfig(), nil)

	// Consumer with no reference data: completeness 1.0 (0.40),
	// conformity 1.0 (0.30), reference_validation 0.5 (0.20),
	// basic_rules 1.0 (0.10) -> 0.9.
	result := strategy.scoreField("trader_id", domain.FieldValueOf("TRD-001"), Metadata{Role: "consumer"})
	assert.InDelta(t, 0.9, result.Score, 1e-9)
	assert.Contains(t, result.Details, "consumer role")
	assert.Contains(t, result.Details, "reference_validation=0.50")
}

func TestRoleAwareProducerBlend(t *testing.T) {
	strategy := NewRoleAwareStrategy(roleAwareConfig(), nil)

	meta := Metadata{
		Role:          "producer",
		ReferenceData: map[string]interface{}{"trader_id": "TRD-001"},
	}

	// Producer on a foundational-dimension field: completeness 1.0,
	// conformity 1.0, accuracy 1.0 (exact reference match),
	// reconciliation 0.5 (no data), business_rules 1.0.
	// (0.25+0.20+0.25+0.075+0.10)/0.95
	result := strategy.scoreField("trader_id", domain.FieldValueOf("TRD-001"), meta)
	assert.InDelta(t, 0.875/0.95, result.Score, 1e-9)
	assert.Contains(t, result.Details, "producer role")
	assert.Contains(t, result.Details, "reconciliation=0.50")
}

func TestRoleAwareProducerEnhancedDimensionPlaceholders(t *testing.T) {
	strategy := NewRoleAwareStrategy(roleAwareConfig(), nil)

	meta := Metadata{
		Role:          "producer",
		ReferenceData: map[string]interface{}{"notional": 100.0},
	}

	// notional sits in an enhanced dimension, so the uniqueness and
	// consistency placeholders join the blend and all weights apply:
	// 0.25 + 0.20 + 0.25 + 0.15*0.5 + 0.10 + 0.03*0.8 + 0.02*0.75
	result := strategy.scoreField("notional", domain.FieldValueOf(100.0), meta)
	assert.InDelta(t, 0.914, result.Score, 1e-9)
	assert.Contains(t, result.Details, "uniqueness=0.80")
	assert.Contains(t, result.Details, "consistency=0.75")
}

func TestRoleAwareEmptyAndImputed(t *testing.T) {
	strategy := NewRoleAwareStrategy(roleAwareConfig(), nil)

	result := strategy.scoreField("trader_id", domain.FieldValueOf(nil), Metadata{})
	assert.Equal(t, 0.0, result.Score)

	// A placeholder overrides the blended score entirely.
	result = strategy.scoreField("trader_id", domain.FieldValueOf("unknown"), Metadata{Role: "producer"})
	assert.Equal(t, domain.ScoreImputed, result.Score)
	assert.True(t, result.Imputed)
	assert.Contains(t, result.Details, "producer role")
}

func TestRoleDefaultsToConsumer(t *testing.T) {
	strategy := NewRoleAwareStrategy(roleAwareConfig(), nil)

	blank := strategy.scoreField("trader_id", domain.FieldValueOf("TRD-001"), Metadata{})
	consumer := strategy.scoreField("trader_id", domain.FieldValueOf("TRD-001"), Metadata{Role: "consumer"})
	assert.Equal(t, consumer.Score, blank.Score)
	assert.Contains(t, blank.Details, "consumer role")
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		observed interface{}
		expected interface{}
		want     float64
	}{
		{name: "exact string match", observed: "TRD-001", expected: "TRD-001", want: 1.0},
		{name: "number vs numeric string", observed: 100.5, expected: "100.5", want: 1.0},
		{name: "within tight tolerance", observed: 100.05, expected: 100.0, want: 0.95},
		{name: "within loose tolerance", observed: 100.5, expected: 100.0, want: 0.8},
		{name: "outside tolerance", observed: 110.0, expected: 100.0, want: 0.3},
		{name: "both zero", observed: 0.0, expected: 0.0, want: 1.0},
		{name: "nonzero vs zero", observed: 5.0, expected: 0.0, want: 0.3},
		{name: "case-insensitive match", observed: "USD", expected: "usd", want: 0.9},
		{name: "whitespace folded match", observed: "US D", expected: "usd", want: 0.8},
		{name: "no agreement", observed: "USD", expected: "EUR", want: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareValues(domain.FieldValueOf(tt.observed), domain.FieldValueOf(tt.expected))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCompareAgainst(t *testing.T) {
	value := domain.FieldValueOf("TRD-001")

	// No source or no entry: no opinion.
	assert.Equal(t, 0.5, compareAgainst("trader_id", value, nil))
	assert.Equal(t, 0.5, compareAgainst("trader_id", value, map[string]interface{}{"other": 1}))

	assert.Equal(t, 1.0, compareAgainst("trader_id", value, map[string]interface{}{"trader_id": "TRD-001"}))
}

func TestBusinessRuleScore(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value interface{}
		want  float64
	}{
		{name: "positive numeric", field: "notional", value: 250000.0, want: 1.0},
		{name: "zero numeric", field: "notional", value: 0.0, want: 0.5},
		{name: "negative numeric", field: "notional", value: -1.0, want: 0.2},
		{name: "unparsable numeric", field: "notional", value: "lots", want: 0.3},
		{name: "valid timestamp", field: "trade_date", value: "2024-03-15", want: 1.0},
		{name: "invalid timestamp", field: "trade_date", value: "junk", want: 0.3},
		{name: "plausible identifier", field: "trader_id", value: "TRD-001", want: 1.0},
		{name: "degenerate identifier", field: "trader_id", value: "X", want: 0.4},
		{name: "anything else", field: "venue", value: "XNAS", want: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, businessRuleScore(tt.field, domain.FieldValueOf(tt.value)), 1e-9)
		})
	}
}

func TestBasicRuleScore(t *testing.T) {
	assert.Equal(t, 1.0, basicRuleScore("notional", domain.FieldValueOf("100.5")))
	assert.Equal(t, 0.5, basicRuleScore("notional", domain.FieldValueOf("lots")))
	assert.Equal(t, 1.0, basicRuleScore("trade_date", domain.FieldValueOf("2024-03-15")))
	assert.Equal(t, 0.5, basicRuleScore("trade_date", domain.FieldValueOf("junk")))
	assert.Equal(t, 1.0, basicRuleScore("venue", domain.FieldValueOf("XNAS")))
}

func TestReferenceTypeScore(t *testing.T) {
	value := domain.FieldValueOf("TRD-001")

	assert.Equal(t, 0.5, referenceTypeScore("trader_id", value, nil))
	assert.Equal(t, 0.5, referenceTypeScore("trader_id", value, map[string]interface{}{}))

	// Same kind is good enough for a consumer.
	assert.Equal(t, 0.9, referenceTypeScore("trader_id", value, map[string]interface{}{"trader_id": "anything"}))

	// A numeric string against a number is still compatible.
	numeric := domain.FieldValueOf("100.5")
	assert.Equal(t, 0.8, referenceTypeScore("notional", numeric, map[string]interface{}{"notional": 100.5}))

	// Incompatible kinds.
	assert.Equal(t, 0.4, referenceTypeScore("trader_id", value, map[string]interface{}{"trader_id": 42.0}))
}

func TestRoleAwareScoreKDEs(t *testing.T) {
	strategy := NewRoleAwareStrategy(roleAwareConfig(), nil)

	data := map[string]interface{}{
		"trader_id": "TRD-001",
		"notional":  250000.0,
	}
	results := strategy.ScoreKDEs(data, Metadata{Role: "producer"})

	require.Len(t, results, 4)
	assert.Equal(t, "notional", results[0].Name)
	assert.Equal(t, "trader_id", results[1].Name)
	assert.True(t, results[2].Synthetic)
	assert.True(t, results[3].Synthetic)
}
